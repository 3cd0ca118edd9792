package main

import (
	crand "crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"

	"github.com/dgryski/go-ddmin"
	"github.com/portableobject/pof"
)

var (
	iterations = flag.Int("n", 0, "number of random streams to try, 0 for no limit")
	maxLen     = flag.Int("len", 200, "maximum random stream length")
)

// check decodes b and copies it through a WritingHandler. It returns
// false when either step panics.
func check(b []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if _, err := pof.NewDecoder(nil).Unmarshal(b); err != nil {
		return true
	}
	h := pof.NewWritingHandler(nil)
	if err := pof.NewParser(h).Parse(b); err != nil {
		panic(err)
	}
	return true
}

func main() {
	flag.Parse()

	// streams start with a collection so the random tail is parsed as
	// elements rather than rejected at the first byte
	prefix := pof.AppendPackedInt32(nil, pof.TCollection)
	prefix = pof.AppendPackedInt32(prefix, 4)

	for i := 0; *iterations == 0 || i < *iterations; i++ {
		b := make([]byte, len(prefix)+mrand.Intn(*maxLen))
		copy(b, prefix)
		crand.Read(b[len(prefix):])

		if check(b) {
			continue
		}

		min := ddmin.Minimize(b, func(d []byte) ddmin.Result {
			if check(d) {
				return ddmin.Pass
			}
			return ddmin.Fail
		})
		fmt.Println(hex.Dump(min))
		os.Exit(1)
	}
}
