package pof

import "reflect"

// Decoder decodes POF streams into Go values.
type Decoder struct {
	// Context resolves user types. Streams holding user types fail with
	// ErrUnknownType when it is nil.
	Context Context

	// Compression must match the Encoder's.
	Compression Compressor
}

// NewDecoder returns a Decoder for ctx without compression.
func NewDecoder(ctx Context) *Decoder {
	return &Decoder{Context: ctx}
}

// Unmarshal decodes the single value in b. Bytes after the value are an
// error.
func (d *Decoder) Unmarshal(b []byte) (interface{}, error) {
	if d.Compression != nil {
		var err error
		if b, err = d.Compression.Decompress(b); err != nil {
			return nil, err
		}
	}

	r := NewBufferReader(b, d.Context)
	v, err := r.ReadObject(0)
	if err != nil {
		return nil, err
	}
	if off := r.Offset(); off != len(b) {
		return nil, malformed(errTrailingBytes).at(off)
	}
	return v, nil
}

// UnmarshalInto decodes b into po. The stream must hold a user type whose
// id matches the one registered for po.
func (d *Decoder) UnmarshalInto(b []byte, po PortableObject) error {
	v, err := d.Unmarshal(b)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	dst, src := reflect.ValueOf(po), reflect.ValueOf(v)
	if dst.Kind() != reflect.Ptr || dst.IsNil() || src.Type() != dst.Type() {
		return invariantViolation("cannot decode %T into %T", v, po)
	}
	dst.Elem().Set(src.Elem())
	return nil
}
