package pof_test

import (
	"testing"

	"github.com/portableobject/pof"
)

func planet(pos int32, name string, massEarths float64, satellites ...string) pof.Map {
	sats := make([]interface{}, len(satellites))
	for i, s := range satellites {
		sats[i] = s
	}
	return pof.Map{
		{Key: "pos", Value: pos},
		{Key: "name", Value: name},
		{Key: "mass_earths", Value: massEarths},
		{Key: "notable_satellites", Value: sats},
	}
}

var solarSystem = pof.Map{
	{Key: "title", Value: "Interesting facts about Solar system"},
	{Key: "galaxy", Value: "Milky Way"},
	{Key: "age", Value: int64(4568)},
	{Key: "stars", Value: []interface{}{"Sun"}},
	{Key: "planets", Value: pof.Collection{
		planet(1, "Mercury", 0.055),
		planet(2, "Venus", 0.815),
		planet(3, "Earth", 1.0, "Moon"),
		planet(4, "Mars", 0.107, "Phobos", "Deimos"),
		planet(5, "Jupiter", 317.83, "Io", "Europa", "Ganymede", "Callisto"),
		planet(6, "Saturn", 95.16, "Titan", "Rhea", "Enceladus"),
		planet(7, "Uranus", 14.536, "Oberon", "Titania", "Miranda", "Ariel", "Umbriel"),
		planet(8, "Neptune", 17.15, "Tritan"),
	}},
}

var benchCompressors = []struct {
	name string
	c    pof.Compressor
}{
	{"Plain", nil},
	{"Snappy", pof.SnappyCompressor{Incremental: true}},
	{"Zlib", pof.ZlibCompressor{Level: pof.ZlibDefaultCompression}},
	{"Zstd", pof.ZstdCompressor{}},
}

func BenchmarkEncodeComplexData(b *testing.B) {
	for _, bc := range benchCompressors {
		b.Run(bc.name, func(b *testing.B) {
			enc := pof.NewEncoder(nil)
			enc.Compression = bc.c

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := enc.Marshal(solarSystem)
				if err != nil {
					b.FailNow()
				}
			}
		})
	}
}

func BenchmarkDecodeComplexData(b *testing.B) {
	for _, bc := range benchCompressors {
		b.Run(bc.name, func(b *testing.B) {
			enc := pof.NewEncoder(nil)
			enc.Compression = bc.c
			buf, err := enc.Marshal(solarSystem)
			if err != nil {
				b.Fatal(err)
			}

			dec := pof.NewDecoder(nil)
			dec.Compression = bc.c

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := dec.Unmarshal(buf)
				if err != nil {
					b.FailNow()
				}
			}
		})
	}
}

func BenchmarkDeltaComplexData(b *testing.B) {
	enc := pof.NewEncoder(nil)
	old, err := enc.Marshal(solarSystem)
	if err != nil {
		b.Fatal(err)
	}

	changed := append(pof.Map(nil), solarSystem...)
	changed[2].Value = int64(4569)
	new, err := enc.Marshal(changed)
	if err != nil {
		b.Fatal(err)
	}

	var c pof.PofDeltaCompressor

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.ExtractDelta(old, new); err != nil {
			b.FailNow()
		}
	}
}
