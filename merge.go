package pof

// Merger concatenates independently encoded values into one collection
// without decoding them.
type Merger struct {
	numElements int
	finalized   bool
	body        []byte
	buf         []byte
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{body: make([]byte, 0, 32)}
}

// Append adds the single value encoded in b. A value that is malformed or
// followed by other bytes is rejected and the Merger is left unchanged.
func (m *Merger) Append(b []byte) error {
	if m.finalized {
		return protocolViolation("finalized document")
	}

	end, err := SkipValue(b, 0)
	if err != nil {
		return err
	}
	if end != len(b) {
		return malformed(errTrailingBytes).at(end)
	}

	m.body = append(m.body, b...)
	m.numElements++
	return nil
}

// Len returns the number of appended values.
func (m *Merger) Len() int { return m.numElements }

// Finish returns the merged collection. Append fails after Finish.
func (m *Merger) Finish() []byte {
	if !m.finalized {
		m.buf = appendPacked(make([]byte, 0, len(m.body)+6), TCollection)
		m.buf = appendPacked(m.buf, m.numElements)
		m.buf = append(m.buf, m.body...)
		m.body = nil
		m.finalized = true
	}
	return m.buf
}
