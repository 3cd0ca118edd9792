//go:build !clibs
// +build !clibs

package pof

import "github.com/klauspost/compress/zstd"

func zstdEncode(buf []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(buf, nil), nil
}

var decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

func zstdDecode(d, buf []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(buf, d)
	if err != nil {
		return nil, malformed("zstd: %v", err).because(err)
	}
	return out, nil
}
