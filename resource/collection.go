package resource

// Collection is one page of a list response. Meta keeps every key the server
// sent, known or not.
type Collection struct {
	Items []Value
	Meta  *Object
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Collection) At(idx int) Value {
	if c == nil || idx < 0 || idx >= len(c.Items) {
		return nil
	}
	return c.Items[idx]
}

// Objects returns the items that materialized as objects, in order.
func (c *Collection) Objects() []*Object {
	if c == nil {
		return nil
	}
	out := make([]*Object, 0, len(c.Items))
	for _, item := range c.Items {
		if obj, ok := item.(*Object); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (c *Collection) Limit() int64      { return c.metaInt("limit") }
func (c *Collection) Offset() int64     { return c.metaInt("offset") }
func (c *Collection) TotalCount() int64 { return c.metaInt("total_count") }

func (c *Collection) metaInt(name string) int64 {
	if c == nil {
		return 0
	}
	switch typed := c.Meta.Value(name).(type) {
	case int64:
		return typed
	case float64:
		return int64(typed)
	default:
		return 0
	}
}

func (c *Collection) deepCopy() *Collection {
	if c == nil {
		return nil
	}
	items := make([]Value, len(c.Items))
	for idx, item := range c.Items {
		items[idx] = deepCopyValue(item)
	}
	return &Collection{Items: items, Meta: c.Meta.DeepCopy()}
}
