package pof

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Kind classifies an Error.
type Kind uint8

const (
	KindMalformedStream Kind = iota + 1
	KindUnexpectedEndOfStream
	KindFormatViolation
	KindProtocolViolation
	KindInvariantViolation
	KindUnsupported
	KindUnknownType
)

// Errors
var (
	ErrMalformedStream       = errors.New("pof: malformed stream")
	ErrUnexpectedEndOfStream = errors.New("pof: unexpected end of stream")
	ErrFormatViolation       = errors.New("pof: format violation")
	ErrProtocolViolation     = errors.New("pof: protocol violation")
	ErrInvariantViolation    = errors.New("pof: invariant violation")
	ErrUnsupported           = errors.New("pof: unsupported operation")
	ErrUnknownType           = errors.New("pof: unknown type")

	ErrTooLarge = errors.New("pof: document too large to be compressed")
	ErrNotFound = errors.New("pof: no such value")
)

var kindErrors = map[Kind]error{
	KindMalformedStream:       ErrMalformedStream,
	KindUnexpectedEndOfStream: ErrUnexpectedEndOfStream,
	KindFormatViolation:       ErrFormatViolation,
	KindProtocolViolation:     ErrProtocolViolation,
	KindInvariantViolation:    ErrInvariantViolation,
	KindUnsupported:           ErrUnsupported,
	KindUnknownType:           ErrUnknownType,
}

func (k Kind) String() string {
	if err, ok := kindErrors[k]; ok {
		return strings.TrimPrefix(err.Error(), "pof: ")
	}
	return "kind " + strconv.Itoa(int(k))
}

// Error is the error type returned by every operation in this package.
// errors.Is matches it against the sentinel of its Kind.
type Error struct {
	Kind   Kind
	Offset int // byte offset in the stream, -1 if not applicable
	Tag    int
	HasTag bool
	Detail string
	Cause  error
}

// internal constants used for details
const (
	errBadPackedInt   = "packed integer overflow"
	errIllegalType    = "illegal type"
	errBadZone        = "illegal time zone discriminant"
	errBadLength      = "negative length"
	errBadCount       = "negative element count"
	errBadChar        = "illegal char encoding"
	errInt128Overflow = "too many bits for 128-bit integer"
	errDuplicateID    = "duplicate identity"
	errMissingID      = "missing identity"
	errIdentityInUser = "identity inside user type property stream"
	errBadDelta       = "malformed delta"
	errBadOffset      = "bad offset"
	errTrailingBytes  = "trailing bytes after value"
	errDoubleIdentity = "identity already registered for this value"
	errNoFrame        = "no complex value to end"
	errQuadArithmetic = "128-bit float arithmetic"
)

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(kindErrors[e.Kind].Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.HasTag {
		sb.WriteString(" (tag ")
		sb.WriteString(TypeName(e.Tag))
		sb.WriteString(")")
	}
	if e.Offset >= 0 {
		sb.WriteString(" at offset ")
		sb.WriteString(strconv.Itoa(e.Offset))
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	return target != nil && kindErrors[e.Kind] == target
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Offset: -1, Detail: detail}
}

func (e *Error) at(offset int) *Error {
	e.Offset = offset
	return e
}

func (e *Error) withTag(tag int) *Error {
	e.Tag, e.HasTag = tag, true
	return e
}

func (e *Error) because(cause error) *Error {
	e.Cause = cause
	return e
}

func malformed(format string, args ...interface{}) *Error {
	return newError(KindMalformedStream, format, args...)
}

func endOfStream(offset int) *Error {
	return newError(KindUnexpectedEndOfStream, "").at(offset)
}

func formatViolation(format string, args ...interface{}) *Error {
	return newError(KindFormatViolation, format, args...)
}

func protocolViolation(format string, args ...interface{}) *Error {
	return newError(KindProtocolViolation, format, args...)
}

func invariantViolation(format string, args ...interface{}) *Error {
	return newError(KindInvariantViolation, format, args...)
}

func unsupported(format string, args ...interface{}) *Error {
	return newError(KindUnsupported, format, args...)
}

func unknownType(format string, args ...interface{}) *Error {
	return newError(KindUnknownType, format, args...)
}

// abort carries an error raised by a Handler through the parser's panic
// boundary so it reaches the caller unchanged.
type abort struct{ err error }

// fail unwinds to the nearest recoverError.
func fail(err error) {
	if e, ok := err.(*Error); ok {
		panic(e)
	}
	panic(abort{err})
}

func recoverError(err *error) {
	if r := recover(); r != nil {
		if _, ok := r.(runtime.Error); ok {
			panic(r)
		}

		switch e := r.(type) {
		case *Error:
			*err = e
		case abort:
			*err = e.err
		case string:
			*err = errors.New(e)
		case error:
			*err = e
		default:
			panic(r)
		}
	}
}
