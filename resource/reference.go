package resource

import (
	"context"

	"github.com/analyzere/analyzere-go/faults"
)

// Reference points at a resource by href without holding its data. The first
// access to anything but the identity resolves it through the resolver; the
// resolved object is then reused for every later access.
//
// References are not safe for concurrent use.
type Reference struct {
	collection string
	id         string
	href       string

	resolver Resolver
	resolved *Object
}

func NewReference(href string, resolver Resolver) (*Reference, error) {
	collection, id, err := ParseHref(href)
	if err != nil {
		return nil, err
	}
	return &Reference{
		collection: collection,
		id:         id,
		href:       href,
		resolver:   resolver,
	}, nil
}

// NewResolvedReference wraps an object that is already in memory.
func NewResolvedReference(href string, obj *Object, resolver Resolver) (*Reference, error) {
	ref, err := NewReference(href, resolver)
	if err != nil {
		return nil, err
	}
	ref.resolved = obj
	return ref, nil
}

func (r *Reference) ID() string         { return r.id }
func (r *Reference) Href() string       { return r.href }
func (r *Reference) Collection() string { return r.collection }
func (r *Reference) Resolved() bool     { return r.resolved != nil }

// Resolve fetches the target on first use. A failed fetch leaves the reference
// unresolved so the next access tries again.
func (r *Reference) Resolve(ctx context.Context) (*Object, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	if r.resolver == nil {
		return nil, faults.NewTypedError(
			faults.InternalError,
			"reference "+r.href+" has no resolver",
			nil,
		)
	}

	obj, err := r.resolver.Resolve(ctx, r.collection, r.id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, faults.NewTypedError(faults.ServerError, "reference "+r.href+" resolved to nothing", nil)
	}
	r.resolved = obj
	return obj, nil
}

func (r *Reference) Object(ctx context.Context) (*Object, error) {
	return r.Resolve(ctx)
}

// Get resolves the reference and returns one attribute of the target.
func (r *Reference) Get(ctx context.Context, name string) (Value, error) {
	if name == AttrID {
		return r.id, nil
	}
	obj, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return obj.Value(name), nil
}

// Invoke resolves the reference and runs fn on the target. When fn returns a
// persisted resource or a reference, this reference is repointed at it so a
// chain of calls keeps tracking the latest identity.
func (r *Reference) Invoke(ctx context.Context, fn func(context.Context, *Object) (Value, error)) (Value, error) {
	obj, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	result, err := fn(ctx, obj)
	if err != nil {
		return nil, err
	}
	r.track(result)
	return result, nil
}

// InvokeType resolves the reference and runs fn on the target's type. Type
// level calls never repoint the reference.
func (r *Reference) InvokeType(ctx context.Context, fn func(context.Context, *Type) (Value, error)) (Value, error) {
	obj, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return fn(ctx, obj.Type())
}

func (r *Reference) track(result Value) {
	switch typed := result.(type) {
	case *Reference:
		if typed == nil || typed == r {
			return
		}
		r.collection = typed.collection
		r.id = typed.id
		r.href = typed.href
	case *Object:
		if typed == nil || typed.Type().KindOf() != KindResource || !typed.HasID() {
			return
		}
		id := typed.ID()
		collection := typed.Type().Collection
		r.href = RebaseHref(r.href, collection, id)
		r.collection = collection
		r.id = id
	}
}

// Copy returns a reference to the same href. An unresolved reference stays
// unresolved; a resolved one carries a shallow copy of its target.
func (r *Reference) Copy() *Reference {
	copied := &Reference{
		collection: r.collection,
		id:         r.id,
		href:       r.href,
		resolver:   r.resolver,
	}
	if r.resolved != nil {
		copied.resolved = r.resolved.Copy()
	}
	return copied
}

// DeepCopy is Copy with a fully duplicated target.
func (r *Reference) DeepCopy() *Reference {
	copied := r.Copy()
	if r.resolved != nil {
		copied.resolved = r.resolved.DeepCopy()
	}
	return copied
}

func (r *Reference) String() string {
	return r.href
}
