package pof

import "math"

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
	nan    = math.NaN()
)

// Parser walks an encoded stream and reports its structure to a Handler.
// A Parser is not safe for concurrent use.
type Parser struct {
	h   Handler
	in  *input
	tag int
}

// NewParser returns a Parser that drives h.
func NewParser(h Handler) *Parser {
	return &Parser{h: h}
}

// Parse parses exactly one value, reported at position -1. Bytes left over
// after the value are an error.
func (p *Parser) Parse(b []byte) (err error) {
	n, err := p.ParseValue(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return malformed(errTrailingBytes).at(n)
	}
	return nil
}

// ParseValue parses the value at the start of b and returns the number of
// bytes it occupies.
func (p *Parser) ParseValue(b []byte) (n int, err error) {
	defer p.tagError(&err)
	defer recoverError(&err)

	p.in, p.tag = newInput(b), TUnknown
	p.parseValue(-1)
	return p.in.offset(), nil
}

// ParseUniformValue parses a value of type typ whose tag was omitted by its
// container.
func (p *Parser) ParseUniformValue(b []byte, typ int) (n int, err error) {
	defer p.tagError(&err)
	defer recoverError(&err)

	p.in, p.tag = newInput(b), typ
	p.parseUniformValue(-1, typ, true)
	return p.in.offset(), nil
}

// tagError names the value being decoded in stream errors that do not
// carry a tag yet. Errors raised by the Handler are left alone.
func (p *Parser) tagError(err *error) {
	e, ok := (*err).(*Error)
	if !ok || e.HasTag || p.tag == TUnknown {
		return
	}
	if e.Kind == KindMalformedStream || e.Kind == KindUnexpectedEndOfStream {
		e.withTag(p.tag)
	}
}

func (p *Parser) check(err error) {
	if err != nil {
		fail(err)
	}
}

func (p *Parser) parseValue(pos int) {
	typ := p.in.readPacked()
	if typ == TIdentity {
		p.check(p.h.RegisterIdentity(p.in.readPacked()))
		typ = p.in.readPacked()
	}
	p.parseUniformValue(pos, typ, false)
}

// parseUniformValue parses the payload of a value of type typ. uniform is
// set when the tag came from a container declaration rather than the
// stream, which matters only for user types.
func (p *Parser) parseUniformValue(pos, typ int, uniform bool) {
	in, h := p.in, p.h
	start := in.offset()
	outer := p.tag
	p.tag = typ

	switch typ {
	case TInt16:
		p.check(h.OnInt16(pos, int16(in.readPackedInt32())))
	case TInt32:
		p.check(h.OnInt32(pos, in.readPackedInt32()))
	case TInt64:
		p.check(h.OnInt64(pos, in.readPackedInt64()))
	case TInt128:
		p.check(h.OnInt128(pos, in.readBigInt()))
	case TFloat32:
		p.check(h.OnFloat32(pos, in.readFloat32()))
	case TFloat64:
		p.check(h.OnFloat64(pos, in.readFloat64()))
	case TFloat128:
		p.check(h.OnFloat128(pos, readQuad(in)))
	case TDecimal32:
		p.check(h.OnDecimal32(pos, readDecimal(in)))
	case TDecimal64:
		p.check(h.OnDecimal64(pos, readDecimal(in)))
	case TDecimal128:
		p.check(h.OnDecimal128(pos, readDecimal(in)))
	case TBoolean:
		p.check(h.OnBoolean(pos, in.readPacked() != 0))
	case TOctet:
		p.check(h.OnOctet(pos, in.readByte()))
	case TOctetString:
		if b, ok := in.readOctets(); ok {
			p.check(h.OnOctetString(pos, b))
		} else {
			p.check(h.OnNullReference(pos))
		}
	case TChar:
		p.check(h.OnChar(pos, in.readChar()))
	case TCharString:
		if s, ok := in.readString(); ok {
			p.check(h.OnCharString(pos, s))
		} else {
			p.check(h.OnNullReference(pos))
		}
	case TDate:
		p.check(h.OnDate(pos, readRawDate(in)))
	case TYearMonthInterval:
		p.check(h.OnYearMonthInterval(pos, readYearMonthInterval(in)))
	case TTime:
		p.check(h.OnTime(pos, readRawTime(in)))
	case TTimeInterval:
		p.check(h.OnTimeInterval(pos, readTimeInterval(in)))
	case TDateTime:
		p.check(h.OnDateTime(pos, readRawDateTime(in)))
	case TDayTimeInterval:
		p.check(h.OnDayTimeInterval(pos, readDayTimeInterval(in)))

	case TCollection, TArray:
		n := readCount(in, typ)
		if typ == TCollection {
			p.check(h.BeginCollection(pos, n))
		} else {
			p.check(h.BeginArray(pos, n))
		}
		for i := 0; i < n; i++ {
			p.parseValue(i)
		}
		p.check(h.EndComplexValue())

	case TUniformCollection, TUniformArray:
		elem := readType(in)
		n := readCount(in, typ)
		if typ == TUniformCollection {
			p.check(h.BeginUniformCollection(pos, n, elem))
		} else {
			p.check(h.BeginUniformArray(pos, n, elem))
		}
		for i := 0; i < n; i++ {
			p.parseUniformValue(i, elem, true)
		}
		p.check(h.EndComplexValue())

	case TSparseArray:
		p.check(h.BeginSparseArray(pos, readCount(in, typ)))
		for i := in.readPacked(); i >= 0; i = in.readPacked() {
			p.parseValue(i)
		}
		p.check(h.EndComplexValue())

	case TUniformSparseArray:
		elem := readType(in)
		p.check(h.BeginUniformSparseArray(pos, readCount(in, typ), elem))
		for i := in.readPacked(); i >= 0; i = in.readPacked() {
			p.parseUniformValue(i, elem, true)
		}
		p.check(h.EndComplexValue())

	case TMap:
		n := readCount(in, typ)
		p.check(h.BeginMap(pos, n))
		for i := 0; i < n; i++ {
			p.parseValue(i)
			p.parseValue(i)
		}
		p.check(h.EndComplexValue())

	case TUniformKeysMap:
		key := readType(in)
		n := readCount(in, typ)
		p.check(h.BeginUniformKeysMap(pos, n, key))
		for i := 0; i < n; i++ {
			p.parseUniformValue(i, key, true)
			p.parseValue(i)
		}
		p.check(h.EndComplexValue())

	case TUniformMap:
		key := readType(in)
		val := readType(in)
		n := readCount(in, typ)
		p.check(h.BeginUniformMap(pos, n, key, val))
		for i := 0; i < n; i++ {
			p.parseUniformValue(i, key, true)
			p.parseUniformValue(i, val, true)
		}
		p.check(h.EndComplexValue())

	case TReference:
		p.check(h.OnIdentityReference(pos, in.readPacked()))

	case VBooleanFalse, VBooleanTrue:
		p.check(h.OnBoolean(pos, typ == VBooleanTrue))
	case VStringZeroLength:
		p.check(h.OnCharString(pos, ""))
	case VCollectionEmpty:
		p.check(h.BeginCollection(pos, 0))
		p.check(h.EndComplexValue())
	case VReferenceNull:
		p.check(h.OnNullReference(pos))
	case VFPPosInfinity:
		p.check(h.OnFloat64(pos, posInf))
	case VFPNegInfinity:
		p.check(h.OnFloat64(pos, negInf))
	case VFPNaN:
		p.check(h.OnFloat64(pos, nan))

	default:
		switch {
		case IsTinyInt(typ):
			p.check(h.OnInt32(pos, int32(DecodeTinyInt(typ))))
		case typ >= 0:
			p.parseUserType(pos, typ, uniform)
		default:
			panic(malformed(errIllegalType).at(start).withTag(typ))
		}
	}

	p.tag = outer
}

func (p *Parser) parseUserType(pos, typ int, uniform bool) {
	in, h := p.in, p.h
	off := in.offset()
	v := in.readPacked()

	if uniform {
		switch v {
		case TIdentity:
			p.check(h.RegisterIdentity(in.readPacked()))
			off = in.offset()
			v = in.readPacked()
		case VReferenceNull:
			p.check(h.OnNullReference(pos))
			return
		}
	}
	if v < 0 {
		panic(malformed("negative version %d", v).at(off).withTag(typ))
	}

	p.check(h.BeginUserType(pos, typ, v))
	for i := in.readPacked(); i >= 0; i = in.readPacked() {
		p.parseValue(i)
	}
	p.check(h.EndComplexValue())
}
