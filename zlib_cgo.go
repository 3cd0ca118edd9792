//go:build clibs
// +build clibs

package pof

/*
#cgo LDFLAGS: -lz

#include <zlib.h>

*/
import "C"

import (
	"unsafe"
)

func zlibEncode(buf []byte, level int) ([]byte, error) {
	dLen := C.compressBound(C.uLong(len(buf)))
	dst := make([]byte, dLen)

	var src *C.Bytef
	if len(buf) > 0 {
		src = (*C.Bytef)(unsafe.Pointer(&buf[0]))
	}
	rc := C.compress2((*C.Bytef)(unsafe.Pointer(&dst[0])), (*C.uLongf)(unsafe.Pointer(&dLen)),
		src, C.uLong(len(buf)), C.int(level))
	if rc != C.Z_OK {
		return nil, invariantViolation("zlib: compress2 returned %d", int(rc))
	}
	return dst[:dLen], nil
}

func zlibDecode(uln int, buf []byte) ([]byte, error) {
	if uln == 0 {
		return []byte{}, nil
	}
	if len(buf) == 0 {
		return nil, malformed("zlib: empty block")
	}
	dst := make([]byte, uln)
	dLen := C.uLongf(uln)

	rc := C.uncompress((*C.Bytef)(unsafe.Pointer(&dst[0])), &dLen,
		(*C.Bytef)(unsafe.Pointer(&buf[0])), C.uLong(len(buf)))
	if rc != C.Z_OK {
		return nil, malformed("zlib: uncompress returned %d", int(rc))
	}
	return dst[:dLen], nil
}
