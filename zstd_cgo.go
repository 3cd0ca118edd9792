//go:build clibs
// +build clibs

package pof

import (
	"github.com/DataDog/zstd"
)

func zstdEncode(buf []byte, level int) ([]byte, error) {
	return zstd.CompressLevel(nil, buf, level)
}

func zstdDecode(d, buf []byte) ([]byte, error) {
	out, err := zstd.Decompress(d, buf)
	if err != nil {
		return nil, malformed("zstd: %v", err).because(err)
	}
	return out, nil
}
