package pof

import "sort"

// Evolvable is a user type that keeps the properties it does not know
// about. A value read from a newer version writes those properties back
// unchanged.
type Evolvable interface {
	// ImplVersion is the version of the type this code implements.
	ImplVersion() int

	// DataVersion is the version of the stream the value was read from.
	DataVersion() int
	SetDataVersion(v int)

	// FutureData holds the encoded properties past the last known one.
	FutureData() []byte
	SetFutureData(b []byte)
}

// EvolvableData implements the stored part of Evolvable. Embed it and
// add an ImplVersion method.
type EvolvableData struct {
	dataVersion int
	future      []byte
}

func (e *EvolvableData) DataVersion() int       { return e.dataVersion }
func (e *EvolvableData) SetDataVersion(v int)   { e.dataVersion = v }
func (e *EvolvableData) FutureData() []byte     { return e.future }
func (e *EvolvableData) SetFutureData(b []byte) { e.future = b }

// SimpleEvolvable is an Evolvable with a fixed implementation version.
type SimpleEvolvable struct {
	EvolvableData
	Version int
}

func (e *SimpleEvolvable) ImplVersion() int { return e.Version }

// EvolvableHolder keeps one Evolvable per level of a type hierarchy, keyed
// by the level's type id.
type EvolvableHolder struct {
	m map[int]Evolvable
}

// Get returns the Evolvable for typeID, creating one with implementation
// version impl on first use.
func (h *EvolvableHolder) Get(typeID, impl int) Evolvable {
	if e, ok := h.m[typeID]; ok {
		return e
	}
	if h.m == nil {
		h.m = make(map[int]Evolvable)
	}
	e := &SimpleEvolvable{Version: impl}
	h.m[typeID] = e
	return e
}

func (h *EvolvableHolder) lookup(typeID int) (Evolvable, bool) {
	if h == nil {
		return nil, false
	}
	e, ok := h.m[typeID]
	return e, ok
}

// TypeIDs returns the held type ids in ascending order.
func (h *EvolvableHolder) TypeIDs() []int {
	if h == nil {
		return nil
	}
	ids := make([]int, 0, len(h.m))
	for id := range h.m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (h *EvolvableHolder) IsEmpty() bool { return h == nil || len(h.m) == 0 }

// PortableLevel is one level of a type hierarchy. Each level is written
// as a nested user type whose index and type id are TypeID.
type PortableLevel struct {
	TypeID      int
	ImplVersion int
	ReadLevel   func(r Reader) error
	WriteLevel  func(w Writer) error
}

// PortableType is a user type made of independently versioned levels.
type PortableType interface {
	Levels() []PortableLevel

	// Holder keeps the version and future data of every level, including
	// levels this code does not know.
	Holder() *EvolvableHolder
}

// HierarchySerializer serializes PortableType values. Levels unknown to
// the reading code are kept in the holder and written back as read.
type HierarchySerializer struct {
	TypeID int
}

func levelsOf(pt PortableType) map[int]PortableLevel {
	m := make(map[int]PortableLevel)
	for _, l := range pt.Levels() {
		m[l.TypeID] = l
	}
	return m
}

func (s HierarchySerializer) Serialize(w Writer, v interface{}) error {
	pt, ok := v.(PortableType)
	if !ok {
		return invariantViolation("%T is not a PortableType", v)
	}
	levels := levelsOf(pt)
	holder := pt.Holder()

	ids := holder.TypeIDs()
	for id := range levels {
		if _, ok := holder.lookup(id); !ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	for _, id := range ids {
		nw, err := w.CreateNestedWriterType(id, id)
		if err != nil {
			return err
		}

		var (
			version int
			future  []byte
		)
		ev, held := holder.lookup(id)
		if held {
			version, future = ev.DataVersion(), ev.FutureData()
		}
		l, known := levels[id]
		if known && l.ImplVersion > version {
			version = l.ImplVersion
		}
		if err := nw.SetVersionID(version); err != nil {
			return err
		}
		if known && l.WriteLevel != nil {
			if err := l.WriteLevel(nw); err != nil {
				return err
			}
		}
		if err := nw.WriteRemainder(future); err != nil {
			return err
		}
	}
	return w.WriteRemainder(nil)
}

func (s HierarchySerializer) Deserialize(r Reader) (interface{}, error) {
	v, err := newInstance(r.Context(), s.TypeID)
	if err != nil {
		return nil, err
	}
	pt, ok := v.(PortableType)
	if !ok {
		return nil, invariantViolation("%T is not a PortableType", v)
	}
	if err := r.RegisterIdentity(v); err != nil {
		return nil, err
	}
	levels := levelsOf(pt)
	holder := pt.Holder()
	if holder == nil {
		return nil, invariantViolation("%T has no evolvable holder", v)
	}

	for {
		i, err := r.NextPropertyIndex()
		if err != nil {
			return nil, err
		}
		if i < 0 {
			break
		}
		nr, err := r.CreateNestedReader(i)
		if err != nil {
			return nil, err
		}

		l, known := levels[i]
		ev := holder.Get(i, l.ImplVersion)
		ev.SetDataVersion(nr.VersionID())
		if known && l.ReadLevel != nil {
			if err := l.ReadLevel(nr); err != nil {
				return nil, err
			}
		}
		future, err := nr.ReadRemainder()
		if err != nil {
			return nil, err
		}
		ev.SetFutureData(future)
	}

	if _, err := r.ReadRemainder(); err != nil {
		return nil, err
	}
	return v, nil
}
