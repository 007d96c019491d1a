package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/analyzere/analyzere-go/faults"
)

var (
	testLayerType = NewType("Layer", KindResource)
	testViewType  = NewType("LayerView", KindResource, TraitMetrics)
)

type countingResolver struct {
	calls   atomic.Int32
	failFor int32
	objects map[string]*Object
}

func (r *countingResolver) Resolve(_ context.Context, collection string, id string) (*Object, error) {
	call := r.calls.Add(1)
	if call <= r.failFor {
		return nil, faults.NewResponseError(faults.ServerError, "boom", 500, `{"message":"boom"}`, nil)
	}
	obj, ok := r.objects[collection+"/"+id]
	if !ok {
		return nil, faults.NewResponseError(faults.InvalidRequestError, "not found", 404, "", nil)
	}
	return obj, nil
}

func newLayerResolver() *countingResolver {
	return &countingResolver{objects: map[string]*Object{
		"layers/abc": New(testLayerType, map[string]Value{
			"id":          "abc",
			"_type":       "CatXL",
			"description": "cat layer",
			"meta_data":   NewEmbedded(map[string]Value{"tags": []Value{"a"}}),
		}),
	}}
}

func TestReferenceIsLazy(t *testing.T) {
	t.Parallel()

	resolver := newLayerResolver()
	ref, err := NewReference("https://api.example.com/layers/abc", resolver)
	if err != nil {
		t.Fatalf("NewReference returned error: %v", err)
	}

	if ref.ID() != "abc" || ref.Collection() != "layers" || ref.Href() != "https://api.example.com/layers/abc" {
		t.Fatalf("unexpected identity %s %s %s", ref.Collection(), ref.ID(), ref.Href())
	}
	if id, err := ref.Get(context.Background(), AttrID); err != nil || id != "abc" {
		t.Fatalf("expected id without resolution, got %v %v", id, err)
	}
	if resolver.calls.Load() != 0 || ref.Resolved() {
		t.Fatalf("expected no resolution for identity access, got %d calls", resolver.calls.Load())
	}

	description, err := ref.Get(context.Background(), "description")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if description != "cat layer" {
		t.Fatalf("unexpected description %v", description)
	}
	if _, err := ref.Get(context.Background(), "type"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if resolver.calls.Load() != 1 {
		t.Fatalf("expected exactly one resolution, got %d", resolver.calls.Load())
	}
	if !ref.Resolved() {
		t.Fatal("expected reference to be resolved")
	}
}

func TestReferenceResolutionFailureIsRetried(t *testing.T) {
	t.Parallel()

	resolver := newLayerResolver()
	resolver.failFor = 1
	ref, err := NewReference("https://api.example.com/layers/abc", resolver)
	if err != nil {
		t.Fatalf("NewReference returned error: %v", err)
	}

	_, err = ref.Get(context.Background(), "description")
	if !faults.IsCategory(err, faults.ServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if ref.Resolved() {
		t.Fatal("expected reference to stay unresolved after failure")
	}

	if _, err := ref.Resolve(context.Background()); err != nil {
		t.Fatalf("expected second resolution to succeed, got %v", err)
	}
	if resolver.calls.Load() != 2 {
		t.Fatalf("expected two resolution attempts, got %d", resolver.calls.Load())
	}
}

func TestReferenceCopy(t *testing.T) {
	t.Parallel()

	t.Run("unresolved_copy_does_not_resolve", func(t *testing.T) {
		t.Parallel()

		resolver := newLayerResolver()
		ref, _ := NewReference("https://api.example.com/layers/abc", resolver)

		shallow := ref.Copy()
		deep := ref.DeepCopy()
		if resolver.calls.Load() != 0 {
			t.Fatalf("expected copies not to resolve, got %d calls", resolver.calls.Load())
		}
		if shallow == ref || shallow.Href() != ref.Href() || shallow.Resolved() || deep.Resolved() {
			t.Fatalf("expected new unresolved references to the same href")
		}
	})

	t.Run("resolved_copy_shares_nested_containers", func(t *testing.T) {
		t.Parallel()

		resolver := newLayerResolver()
		ref, _ := NewReference("https://api.example.com/layers/abc", resolver)
		original, err := ref.Resolve(context.Background())
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}

		shallow := ref.Copy()
		shallowObj, _ := shallow.Object(context.Background())
		if shallowObj == original {
			t.Fatal("expected a new top-level object")
		}
		if shallowObj.Value("meta_data") != original.Value("meta_data") {
			t.Fatal("expected shallow copy to share nested objects")
		}

		deep := ref.DeepCopy()
		deepObj, _ := deep.Object(context.Background())
		if deepObj.Value("meta_data") == original.Value("meta_data") {
			t.Fatal("expected deep copy to duplicate nested objects")
		}
		if !deepObj.Equal(original) {
			t.Fatal("expected deep copy to stay structurally equal")
		}
		if resolver.calls.Load() != 1 {
			t.Fatalf("expected copies of a resolved reference not to refetch, got %d", resolver.calls.Load())
		}
	})
}

func TestReferenceInvokeTracksReturnedIdentity(t *testing.T) {
	t.Parallel()

	resolver := newLayerResolver()
	ref, _ := NewReference("https://api.example.com/v2/layers/abc", resolver)

	result, err := ref.Invoke(context.Background(), func(_ context.Context, obj *Object) (Value, error) {
		return New(testViewType, map[string]Value{"id": "view1", "layer": obj.ID()}), nil
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if result.(*Object).ID() != "view1" {
		t.Fatalf("unexpected result %v", result)
	}
	if ref.ID() != "view1" || ref.Collection() != "layer_views" {
		t.Fatalf("expected reference to follow result, got %s/%s", ref.Collection(), ref.ID())
	}
	if ref.Href() != "https://api.example.com/v2/layer_views/view1" {
		t.Fatalf("unexpected href %q", ref.Href())
	}

	_, err = ref.Invoke(context.Background(), func(context.Context, *Object) (Value, error) {
		return 42.0, nil
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if ref.ID() != "view1" {
		t.Fatalf("expected scalar results to leave the reference alone, got %s", ref.ID())
	}
}

func TestReferenceInvokeTypeDoesNotTrack(t *testing.T) {
	t.Parallel()

	resolver := newLayerResolver()
	ref, _ := NewReference("https://api.example.com/layers/abc", resolver)

	var seen *Type
	_, err := ref.InvokeType(context.Background(), func(_ context.Context, typ *Type) (Value, error) {
		seen = typ
		return New(typ, map[string]Value{"id": "other"}), nil
	})
	if err != nil {
		t.Fatalf("InvokeType returned error: %v", err)
	}
	if seen != testLayerType {
		t.Fatalf("expected the resolved type, got %v", seen)
	}
	if ref.ID() != "abc" {
		t.Fatalf("expected type level call not to repoint the reference, got %s", ref.ID())
	}
}

func TestReferenceInvokePropagatesErrors(t *testing.T) {
	t.Parallel()

	ref, _ := NewReference("https://api.example.com/layers/abc", newLayerResolver())
	want := errors.New("call failed")
	_, err := ref.Invoke(context.Background(), func(context.Context, *Object) (Value, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if ref.ID() != "abc" {
		t.Fatalf("expected failed call to keep identity, got %s", ref.ID())
	}
}

func TestUnknownCollectionComparesStructurally(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testLayerType)
	resolver := ResolverFunc(func(_ context.Context, collection string, id string) (*Object, error) {
		return New(registry.Lookup(collection), map[string]Value{"id": id, "name": "x"}), nil
	})

	first, _ := NewReference("https://api.example.com/widget_things/w1", resolver)
	second, _ := NewReference("https://api.example.com/widget_things/w1", resolver)

	a, err := first.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	b, _ := second.Resolve(context.Background())

	if a.Type() == b.Type() {
		t.Fatal("expected independent generic type descriptors")
	}
	if !a.Type().Generic || a.Type().Collection != "widget_things" || a.Type().Name != "WidgetThing" {
		t.Fatalf("unexpected generic type %+v", a.Type())
	}
	if !a.Equal(b) {
		t.Fatal("expected generic objects with the same attributes to be equal")
	}

	b.Set("name", "y")
	if a.Equal(b) {
		t.Fatal("expected differing attributes to compare unequal")
	}
}
