package pof

// Encoder encodes Go values as POF streams.
type Encoder struct {
	// Context resolves user types. It may be nil when no user types are
	// written.
	Context Context

	// Compression, when set, is applied to the whole stream.
	Compression Compressor
}

// NewEncoder returns an Encoder for ctx without compression.
func NewEncoder(ctx Context) *Encoder {
	return &Encoder{Context: ctx}
}

// Marshal returns the POF encoding of v
func (e *Encoder) Marshal(v interface{}) ([]byte, error) {
	h := NewWritingHandler(make([]byte, 0, 32))
	if err := e.MarshalTo(h, v); err != nil {
		return nil, err
	}

	b := h.Bytes()
	if e.Compression != nil {
		return e.Compression.Compress(b)
	}
	return b, nil
}

// MarshalTo writes v as a complete value to h, which must be between
// values.
func (e *Encoder) MarshalTo(h *WritingHandler, v interface{}) error {
	if d := h.Depth(); d != 0 {
		return protocolViolation("handler is %d values deep", d)
	}
	w := NewBufferWriter(h, e.Context)
	if err := w.WriteObject(0, v); err != nil {
		return err
	}
	if d := h.Depth(); d != 0 {
		return invariantViolation("%d complex values left open", d)
	}
	return nil
}
