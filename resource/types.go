package resource

import (
	"context"
	"strings"

	"github.com/iancoleman/strcase"
)

// Value is an attribute value. Materialized graphs only hold nil, bool,
// string, int64, float64, time.Time, *Object, []Value, *Reference and
// *Collection; caller-built objects may also hold map[string]Value.
type Value = any

// Kind tells how an object of a type behaves on serialization and
// materialization.
type Kind int

const (
	// KindEmbedded objects have no identity and are always inlined.
	KindEmbedded Kind = iota
	// KindNested objects are inlined but may appear as top-level list items
	// and may carry an id.
	KindNested
	// KindResource objects live at a collection path and serialize as a
	// ref_id once persisted.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindEmbedded:
		return "embedded"
	case KindNested:
		return "nested"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Trait flags the sub-resources a resource type exposes.
type Trait uint8

const (
	TraitData Trait = 1 << iota
	TraitMetrics
	TraitOptimization
)

// Type describes a resource family. Types are compared by value so two
// generic types built for the same collection are equal.
type Type struct {
	Name       string
	Collection string
	Kind       Kind
	Traits     Trait
	Generic    bool
}

// NewType declares a type. Resource types get their collection name from the
// snake-cased type name plus "s" (LayerView -> layer_views).
func NewType(name string, kind Kind, traits ...Trait) *Type {
	typ := &Type{Name: name, Kind: kind}
	for _, trait := range traits {
		typ.Traits |= trait
	}
	if kind == KindResource {
		typ.Collection = strcase.ToSnake(name) + "s"
	}
	return typ
}

// GenericType is the fallback for references to collections nobody
// registered. It keeps the collection so the object can still be reloaded.
func GenericType(collection string) *Type {
	singular := strings.TrimSuffix(collection, "s")
	return &Type{
		Name:       strcase.ToCamel(singular),
		Collection: collection,
		Kind:       KindResource,
		Generic:    true,
	}
}

func (t *Type) KindOf() Kind {
	if t == nil {
		return KindEmbedded
	}
	return t.Kind
}

func (t *Type) Has(trait Trait) bool {
	return t != nil && t.Traits&trait == trait
}

// Path returns the API path of the collection, or of one member when id is
// not empty.
func (t *Type) Path(id string) string {
	if t == nil || t.Collection == "" {
		return ""
	}
	if id == "" {
		return t.Collection + "/"
	}
	return t.Collection + "/" + id
}

func (t *Type) String() string {
	if t == nil {
		return "EmbeddedResource"
	}
	return t.Name
}

func sameType(a *Type, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Resolver fetches the object a reference points at.
type Resolver interface {
	Resolve(ctx context.Context, collection string, id string) (*Object, error)
}

type ResolverFunc func(ctx context.Context, collection string, id string) (*Object, error)

func (f ResolverFunc) Resolve(ctx context.Context, collection string, id string) (*Object, error) {
	return f(ctx, collection, id)
}

// Entity is the call surface shared by materialized objects and references.
// Reading an entity's object through a reference resolves it.
type Entity interface {
	ID() string
	Object(ctx context.Context) (*Object, error)
}

var (
	_ Entity = (*Object)(nil)
	_ Entity = (*Reference)(nil)
)
