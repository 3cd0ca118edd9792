//go:build !clibs
// +build !clibs

package pof

import (
	"bytes"
	"compress/zlib"
	"sync"

	"go.uber.org/zap"
)

var zlibWriterPools = make(map[int]*sync.Pool)

func init() {
	// -1 => 9
	for i := zlib.DefaultCompression; i <= zlib.BestCompression; i++ {
		level := i
		zlibWriterPools[i] = &sync.Pool{
			New: func() interface{} {
				Logger().Debug("zlib writer pool miss", zap.Int("level", level))
				zw, _ := zlib.NewWriterLevel(nil, level)
				return zw
			},
		}
	}
}

func zlibEncode(buf []byte, level int) ([]byte, error) {
	pool := zlibWriterPools[level]
	if pool == nil {
		return nil, invariantViolation("zlib: unknown level %d", level)
	}

	var comp bytes.Buffer
	zw := pool.Get().(*zlib.Writer)
	defer pool.Put(zw)
	zw.Reset(&comp)

	if _, err := zw.Write(buf); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return comp.Bytes(), nil
}

func zlibDecode(uln int, buf []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, malformed("zlib: %v", err).because(err)
	}
	defer zr.Close()

	dec := bytes.NewBuffer(make([]byte, 0, uln))
	if _, err := dec.ReadFrom(zr); err != nil {
		return nil, malformed("zlib: %v", err).because(err)
	}
	return dec.Bytes(), nil
}
