package pof

import (
	"reflect"
	"sort"
	"sync"
)

// Serializer converts one user type to and from its property stream.
type Serializer interface {
	Serialize(w Writer, v interface{}) error
	Deserialize(r Reader) (interface{}, error)
}

// Context maps user types to type ids and serializers.
type Context interface {
	Serializer(typeID int) (Serializer, error)
	TypeID(v interface{}) (int, error)
	TypeFor(typeID int) (reflect.Type, error)
	IsUserType(v interface{}) bool
	ReferencesEnabled() bool
}

type registration struct {
	typ reflect.Type
	ser Serializer
}

// SimpleContext is an explicit type registry. Register every user type
// before the context is shared between goroutines.
type SimpleContext struct {
	// References makes writers emit identities for user type pointers and
	// replace repeated pointers with references.
	References bool

	mu    sync.RWMutex
	byID  map[int]registration
	byTyp map[reflect.Type]int
}

// NewSimpleContext returns an empty registry.
func NewSimpleContext() *SimpleContext {
	return &SimpleContext{
		byID:  make(map[int]registration),
		byTyp: make(map[reflect.Type]int),
	}
}

// Register binds typeID to the Go type of proto. A nil serializer selects
// PortableObjectSerializer, which requires proto to be a pointer to a type
// implementing PortableObject.
func (c *SimpleContext) Register(typeID int, proto interface{}, s Serializer) error {
	if typeID < 0 {
		return invariantViolation("negative user type id %d", typeID)
	}
	t := reflect.TypeOf(proto)
	if t == nil {
		return invariantViolation("nil prototype for user type %d", typeID)
	}
	if s == nil {
		if _, ok := proto.(PortableObject); !ok || t.Kind() != reflect.Ptr {
			return invariantViolation("%s is not a pointer to a PortableObject", t)
		}
		s = PortableObjectSerializer{TypeID: typeID}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[typeID]; ok {
		return invariantViolation("user type %d registered twice", typeID)
	}
	if id, ok := c.byTyp[t]; ok {
		return invariantViolation("%s already registered as user type %d", t, id)
	}
	c.byID[typeID] = registration{typ: t, ser: s}
	c.byTyp[t] = typeID
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (c *SimpleContext) MustRegister(typeID int, proto interface{}, s Serializer) *SimpleContext {
	if err := c.Register(typeID, proto, s); err != nil {
		panic(err)
	}
	return c
}

// TypeIDs returns the registered ids in ascending order.
func (c *SimpleContext) TypeIDs() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *SimpleContext) Serializer(typeID int) (Serializer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.byID[typeID]
	if !ok {
		return nil, unknownType("no serializer for user type %d", typeID)
	}
	return r.ser, nil
}

func (c *SimpleContext) TypeID(v interface{}) (int, error) {
	t := reflect.TypeOf(v)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if id, ok := c.byTyp[t]; ok {
		return id, nil
	}
	return -1, unknownType("no user type id for %v", t)
}

func (c *SimpleContext) TypeFor(typeID int) (reflect.Type, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.byID[typeID]
	if !ok {
		return nil, unknownType("no Go type for user type %d", typeID)
	}
	return r.typ, nil
}

func (c *SimpleContext) IsUserType(v interface{}) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.byTyp[reflect.TypeOf(v)]
	return ok
}

func (c *SimpleContext) ReferencesEnabled() bool { return c.References }

// newInstance allocates a value of the Go type registered for typeID. A
// pointer type yields a pointer to a new zero value.
func newInstance(ctx Context, typeID int) (interface{}, error) {
	if ctx == nil {
		return nil, unknownType("no context for user type %d", typeID)
	}
	t, err := ctx.TypeFor(typeID)
	if err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return reflect.New(t).Elem().Interface(), nil
}

// PortableObject is a user type that serializes itself.
type PortableObject interface {
	ReadExternal(r Reader) error
	WriteExternal(w Writer) error
}

// PortableObjectSerializer serializes PortableObject values. Values that
// also implement Evolvable carry their data version and future data
// across a round trip.
type PortableObjectSerializer struct {
	TypeID int
}

func (s PortableObjectSerializer) Serialize(w Writer, v interface{}) error {
	po, ok := v.(PortableObject)
	if !ok {
		return invariantViolation("%T is not a PortableObject", v)
	}

	var future []byte
	if e, ok := v.(Evolvable); ok {
		version := e.ImplVersion()
		if dv := e.DataVersion(); dv > version {
			version = dv
		}
		if err := w.SetVersionID(version); err != nil {
			return err
		}
		future = e.FutureData()
	}

	if err := po.WriteExternal(w); err != nil {
		return err
	}
	return w.WriteRemainder(future)
}

func (s PortableObjectSerializer) Deserialize(r Reader) (interface{}, error) {
	if r.UserTypeID() != s.TypeID {
		return nil, invariantViolation("serializer for user type %d asked to read user type %d", s.TypeID, r.UserTypeID())
	}
	v, err := newInstance(r.Context(), s.TypeID)
	if err != nil {
		return nil, err
	}
	po, ok := v.(PortableObject)
	if !ok {
		return nil, invariantViolation("%T is not a PortableObject", v)
	}
	if err := r.RegisterIdentity(v); err != nil {
		return nil, err
	}

	e, evolvable := v.(Evolvable)
	if evolvable {
		e.SetDataVersion(r.VersionID())
	}
	if err := po.ReadExternal(r); err != nil {
		return nil, err
	}

	future, err := r.ReadRemainder()
	if err != nil {
		return nil, err
	}
	if evolvable {
		e.SetFutureData(future)
	}
	return v, nil
}
