package resource

import (
	"fmt"

	"github.com/analyzere/analyzere-go/faults"
)

const (
	wireHref  = "href"
	wireItems = "items"
	wireMeta  = "meta"
)

// Materializer turns decoded JSON into objects, references and collections.
// References it creates resolve through Resolver.
type Materializer struct {
	Resolver Resolver
}

// Materialize converts value. The hint types mappings that carry an id, or
// every mapping when the hint is a nested type; it does not propagate to
// nested attributes.
func (m Materializer) Materialize(value Value, hint *Type) (Value, error) {
	switch typed := value.(type) {
	case []Value:
		items := make([]Value, len(typed))
		for idx, item := range typed {
			converted, err := m.Materialize(item, hint)
			if err != nil {
				return nil, err
			}
			items[idx] = converted
		}
		return items, nil
	case map[string]Value:
		return m.materializeMap(typed, hint)
	default:
		return value, nil
	}
}

// Object materializes value and requires the result to be an object.
func (m Materializer) Object(value Value, hint *Type) (*Object, error) {
	materialized, err := m.Materialize(value, hint)
	if err != nil {
		return nil, err
	}
	obj, ok := materialized.(*Object)
	if !ok {
		return nil, faults.NewTypedError(
			faults.ServerError,
			fmt.Sprintf("expected an object in response, got %T", materialized),
			nil,
		)
	}
	return obj, nil
}

func (m Materializer) materializeMap(values map[string]Value, hint *Type) (Value, error) {
	if rawHref, ok := values[wireHref]; ok {
		href, isString := rawHref.(string)
		if !isString {
			return nil, validationError(fmt.Sprintf("href must be a string, got %T", rawHref))
		}
		return NewReference(href, m.Resolver)
	}

	rawItems, hasItems := values[wireItems]
	rawMeta, hasMeta := values[wireMeta]
	if hasItems && hasMeta {
		return m.materializeCollection(rawItems, rawMeta, hint)
	}

	var typ *Type
	if _, hasID := values[AttrID]; hint != nil && (hasID || hint.Kind == KindNested) {
		typ = hint
	}

	obj := &Object{typ: typ, attrs: make(map[string]Value, len(values))}
	for key, raw := range values {
		converted, err := m.Materialize(raw, nil)
		if err != nil {
			return nil, err
		}
		obj.attrs[publicKey(key)] = converted
	}
	return obj, nil
}

func (m Materializer) materializeCollection(rawItems Value, rawMeta Value, hint *Type) (*Collection, error) {
	itemList, ok := rawItems.([]Value)
	if !ok && rawItems != nil {
		return nil, validationError(fmt.Sprintf("collection items must be a list, got %T", rawItems))
	}
	metaMap, ok := rawMeta.(map[string]Value)
	if !ok && rawMeta != nil {
		return nil, validationError(fmt.Sprintf("collection meta must be an object, got %T", rawMeta))
	}

	items, err := m.Materialize(itemList, hint)
	if err != nil {
		return nil, err
	}
	meta, err := m.materializeMap(metaMap, nil)
	if err != nil {
		return nil, err
	}
	metaObj, ok := meta.(*Object)
	if !ok {
		return nil, validationError("collection meta must not be a link or a collection")
	}
	return &Collection{Items: items.([]Value), Meta: metaObj}, nil
}

func validationError(message string) error {
	return faults.NewTypedError(faults.ValidationError, message, nil)
}
