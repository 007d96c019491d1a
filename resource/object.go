package resource

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/analyzere/analyzere-go/faults"
)

const (
	AttrID   = "id"
	AttrType = "type"

	wireTypeKey = "_type"
)

// Object is a materialized API value: a typed attribute bag. A nil type marks
// an untyped embedded object.
type Object struct {
	typ   *Type
	attrs map[string]Value
}

// New builds an object of typ from attrs. The wire discriminator "_type" is
// stored as "type".
func New(typ *Type, attrs map[string]Value) *Object {
	obj := &Object{typ: typ, attrs: make(map[string]Value, len(attrs))}
	for key, value := range attrs {
		obj.attrs[publicKey(key)] = value
	}
	return obj
}

func NewEmbedded(attrs map[string]Value) *Object {
	return New(nil, attrs)
}

func publicKey(key string) string {
	if key == wireTypeKey {
		return AttrType
	}
	return key
}

func (o *Object) Type() *Type {
	if o == nil {
		return nil
	}
	return o.typ
}

// Get returns the attribute value. The context is accepted so objects and
// references share a call surface; objects never block.
func (o *Object) Get(_ context.Context, name string) (Value, error) {
	return o.Value(name), nil
}

func (o *Object) Value(name string) Value {
	if o == nil {
		return nil
	}
	return o.attrs[name]
}

func (o *Object) Has(name string) bool {
	if o == nil {
		return false
	}
	_, ok := o.attrs[name]
	return ok
}

func (o *Object) Set(name string, value Value) {
	if o.attrs == nil {
		o.attrs = map[string]Value{}
	}
	o.attrs[name] = value
}

func (o *Object) Delete(name string) {
	delete(o.attrs, name)
}

// Keys returns attribute names in sorted order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	var keys []string
	for key := range o.attrs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// ID returns the id attribute as a string, or "" for unsaved objects.
func (o *Object) ID() string {
	if o == nil {
		return ""
	}
	switch typed := o.attrs[AttrID].(type) {
	case string:
		return typed
	case nil:
		return ""
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func (o *Object) HasID() bool {
	return o.ID() != ""
}

// Object returns the receiver.
func (o *Object) Object(context.Context) (*Object, error) {
	return o, nil
}

// Attributes returns a shallow copy of the attribute map.
func (o *Object) Attributes() map[string]Value {
	if o == nil {
		return nil
	}
	return maps.Clone(o.attrs)
}

func (o *Object) Clear() {
	clear(o.attrs)
}

// Update copies every attribute of other onto o. The type of o is kept.
func (o *Object) Update(other *Object) {
	if other == nil {
		return
	}
	if o.attrs == nil {
		o.attrs = make(map[string]Value, len(other.attrs))
	}
	maps.Copy(o.attrs, other.attrs)
}

// Copy returns a shallow copy: the attribute map is new, nested objects,
// lists and references are shared.
func (o *Object) Copy() *Object {
	if o == nil {
		return nil
	}
	return &Object{typ: o.typ, attrs: maps.Clone(o.attrs)}
}

// DeepCopy duplicates every nested container. Unresolved references are
// copied without resolving.
func (o *Object) DeepCopy() *Object {
	if o == nil {
		return nil
	}
	attrs := make(map[string]Value, len(o.attrs))
	for key, value := range o.attrs {
		attrs[key] = deepCopyValue(value)
	}
	return &Object{typ: o.typ, attrs: attrs}
}

func deepCopyValue(value Value) Value {
	switch typed := value.(type) {
	case *Object:
		return typed.DeepCopy()
	case *Reference:
		return typed.DeepCopy()
	case *Collection:
		return typed.deepCopy()
	case []Value:
		copied := make([]Value, len(typed))
		for idx, item := range typed {
			copied[idx] = deepCopyValue(item)
		}
		return copied
	case map[string]Value:
		copied := make(map[string]Value, len(typed))
		for key, item := range typed {
			copied[key] = deepCopyValue(item)
		}
		return copied
	default:
		return value
	}
}

// Equal reports structural equality: same type descriptor and identical
// attributes.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if !sameType(o.typ, other.typ) {
		return false
	}
	if len(o.attrs) != len(other.attrs) {
		return false
	}
	for key, value := range o.attrs {
		otherValue, ok := other.attrs[key]
		if !ok || !Equal(value, otherValue) {
			return false
		}
	}
	return true
}

// ToMap inlines the public attributes using wire names. Values are
// serialized with ToWire.
func (o *Object) ToMap() map[string]Value {
	if o == nil {
		return nil
	}
	out := make(map[string]Value, len(o.attrs))
	for key, value := range o.attrs {
		if strings.HasPrefix(key, "_") {
			continue
		}
		if key == AttrType {
			key = wireTypeKey
		}
		out[key] = ToWire(value)
	}
	return out
}

func (o *Object) String() string {
	if o == nil {
		return "null"
	}
	encoded, err := json.MarshalIndent(o.ToMap(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// Hash derives a key from a uuid id. Objects without a uuid id hash to 0.
func (o *Object) Hash() uint64 {
	parsed, err := uuid.Parse(o.ID())
	if err != nil {
		return 0
	}
	var hash uint64
	for idx, b := range parsed {
		hash ^= uint64(b) << (8 * (idx % 8))
	}
	return hash
}

// Decode copies the serialized attributes into target, typically a pointer to
// a struct carrying mapstructure tags.
func (o *Object) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(timeLayoutMicros),
	})
	if err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to build object decoder", err)
	}
	if err := decoder.Decode(o.decodeInput()); err != nil {
		return faults.NewTypedError(faults.ValidationError, "failed to decode "+o.typ.String()+" attributes", err)
	}
	return nil
}

func (o *Object) decodeInput() map[string]Value {
	out := make(map[string]Value, len(o.attrs))
	for key, value := range o.attrs {
		out[key] = decodeValue(value)
	}
	return out
}

func decodeValue(value Value) Value {
	switch typed := value.(type) {
	case *Object:
		return typed.decodeInput()
	case *Reference:
		return map[string]Value{"ref_id": typed.ID(), "href": typed.Href()}
	case *Collection:
		return decodeValue(typed.Items)
	case []Value:
		out := make([]Value, len(typed))
		for idx, item := range typed {
			out[idx] = decodeValue(item)
		}
		return out
	default:
		return value
	}
}
