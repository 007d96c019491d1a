package resource

import (
	"strings"
	"testing"
	"time"
)

func TestObjectCopySemantics(t *testing.T) {
	t.Parallel()

	tags := []Value{"a", "b"}
	original := New(testLayerType, map[string]Value{
		"id":   "abc",
		"tags": tags,
		"meta": NewEmbedded(map[string]Value{"k": "v"}),
	})

	shallow := original.Copy()
	shallow.Set("description", "changed")
	if original.Has("description") {
		t.Fatal("expected shallow copy to own its attribute map")
	}
	shallow.Value("meta").(*Object).Set("k", "shared")
	if original.Value("meta").(*Object).Value("k") != "shared" {
		t.Fatal("expected shallow copy to share nested objects")
	}

	deep := original.DeepCopy()
	deep.Value("tags").([]Value)[0] = "z"
	deep.Value("meta").(*Object).Set("k", "own")
	if tags[0] != "a" || original.Value("meta").(*Object).Value("k") != "shared" {
		t.Fatal("expected deep copy to duplicate nested containers")
	}
}

func TestObjectClearAndUpdate(t *testing.T) {
	t.Parallel()

	local := New(testLayerType, map[string]Value{"foo": "local only", "description": "x"})
	echoed := NewEmbedded(map[string]Value{"id": "new", "description": "x"})

	local.Clear()
	local.Update(echoed)

	if local.Has("foo") {
		t.Fatal("expected clear to drop local-only attributes")
	}
	if local.ID() != "new" || local.Type() != testLayerType {
		t.Fatalf("expected updated id and kept type, got %q %v", local.ID(), local.Type())
	}
}

func TestObjectIDAndHash(t *testing.T) {
	t.Parallel()

	if New(testLayerType, nil).HasID() {
		t.Fatal("expected unsaved object to have no id")
	}
	if got := New(testLayerType, map[string]Value{"id": int64(7)}).ID(); got != "7" {
		t.Fatalf("expected numeric id to render, got %q", got)
	}

	withUUID := New(testLayerType, map[string]Value{"id": "1b4e28ba-2fa1-11d2-883f-0016d3cca427"})
	same := New(testLayerType, map[string]Value{"id": "1b4e28ba-2fa1-11d2-883f-0016d3cca427"})
	if withUUID.Hash() == 0 || withUUID.Hash() != same.Hash() {
		t.Fatalf("expected stable non-zero hash, got %d %d", withUUID.Hash(), same.Hash())
	}
	if New(testLayerType, map[string]Value{"id": "plain"}).Hash() != 0 {
		t.Fatal("expected non-uuid id to hash to zero")
	}
}

func TestObjectEqualRequiresSameType(t *testing.T) {
	t.Parallel()

	attrs := map[string]Value{"id": "a"}
	if New(testLayerType, attrs).Equal(New(testViewType, attrs)) {
		t.Fatal("expected different types to compare unequal")
	}
	if !New(testLayerType, attrs).Equal(New(testLayerType, attrs)) {
		t.Fatal("expected identical objects to compare equal")
	}
}

func TestObjectString(t *testing.T) {
	t.Parallel()

	obj := New(nil, map[string]Value{"type": "Fee", "name": "brokerage"})
	rendered := obj.String()
	if !strings.Contains(rendered, `"_type": "Fee"`) || !strings.Contains(rendered, `"name": "brokerage"`) {
		t.Fatalf("unexpected rendering %s", rendered)
	}
}

func TestObjectDecode(t *testing.T) {
	t.Parallel()

	type premium struct {
		Value    float64 `mapstructure:"value"`
		Currency string  `mapstructure:"currency"`
	}
	type layer struct {
		ID       string    `mapstructure:"id"`
		Type     string    `mapstructure:"type"`
		Premium  premium   `mapstructure:"premium"`
		Created  time.Time `mapstructure:"created"`
		Count    int       `mapstructure:"count"`
		SourceID string    `mapstructure:"source_id"`
	}

	created := time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC)
	obj := New(testLayerType, map[string]Value{
		"id":        "abc",
		"_type":     "CatXL",
		"premium":   NewEmbedded(map[string]Value{"value": int64(10), "currency": "USD"}),
		"created":   created,
		"count":     "3",
		"source_id": "s1",
	})

	var decoded layer
	if err := obj.Decode(&decoded); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded.ID != "abc" || decoded.Type != "CatXL" || decoded.Premium.Value != 10 || decoded.Premium.Currency != "USD" {
		t.Fatalf("unexpected decoded value %+v", decoded)
	}
	if !decoded.Created.Equal(created) || decoded.Count != 3 {
		t.Fatalf("unexpected decoded value %+v", decoded)
	}
}
