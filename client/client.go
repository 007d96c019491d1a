// Package client exposes the resource operations of the Analyze Re API on top
// of a server.Requester.
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/analyzere/analyzere-go/catalog"
	"github.com/analyzere/analyzere-go/config"
	debugctx "github.com/analyzere/analyzere-go/debugctx"
	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/internal/metrics"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

// Client runs resource operations through one requester. References it
// materializes resolve back through the same client.
type Client struct {
	requester    server.Requester
	registry     *resource.Registry
	materializer resource.Materializer
	metrics      *metrics.Recorder
	baseURL      string
	upload       config.Upload
}

type Option func(*Client)

// WithRegistry replaces the catalog registry used to type references.
func WithRegistry(registry *resource.Registry) Option {
	return func(c *Client) {
		if registry != nil {
			c.registry = registry
		}
	}
}

// WithBaseURL sets the URL references are built against. By default it is
// taken from the requester when the requester exposes one.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = recorder
	}
}

// WithUploadDefaults sets the chunk size and poll interval used by UploadData
// unless the call overrides them.
func WithUploadDefaults(upload config.Upload) Option {
	return func(c *Client) {
		if upload.ChunkSize > 0 {
			c.upload.ChunkSize = upload.ChunkSize
		}
		if upload.PollInterval > 0 {
			c.upload.PollInterval = upload.PollInterval
		}
	}
}

type baseURLProvider interface {
	BaseURL() string
}

func New(requester server.Requester, opts ...Option) *Client {
	c := &Client{
		requester: requester,
		registry:  catalog.NewRegistry(),
		baseURL:   config.DefaultBaseURL,
		upload: config.Upload{
			ChunkSize:    config.DefaultChunkSize,
			PollInterval: config.DefaultPollInterval,
		},
	}
	if provider, ok := requester.(baseURLProvider); ok {
		c.baseURL = provider.BaseURL()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.materializer = resource.Materializer{Resolver: resource.ResolverFunc(c.resolve)}
	return c
}

func (c *Client) Registry() *resource.Registry { return c.registry }

func (c *Client) Materializer() resource.Materializer { return c.materializer }

func (c *Client) Requester() server.Requester { return c.requester }

func (c *Client) resolve(ctx context.Context, collection string, id string) (*resource.Object, error) {
	debugctx.Printf(ctx, "resolving reference collection=%q id=%q", collection, id)
	return c.Retrieve(ctx, c.registry.Lookup(collection), id)
}

// Retrieve fetches one resource.
func (c *Client) Retrieve(ctx context.Context, typ *resource.Type, id string) (*resource.Object, error) {
	if err := requireResourceType(typ); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, faults.NewMissingIDError("")
	}

	value, err := c.requester.Request(ctx, server.RequestSpec{
		Method: http.MethodGet,
		Path:   typ.Path(id),
	})
	if err != nil {
		return nil, err
	}
	return c.materializer.Object(value, typ)
}

// List fetches one page of a collection. Params become query parameters
// (limit, offset, filters, ...).
func (c *Client) List(ctx context.Context, typ *resource.Type, params map[string]string) (*resource.Collection, error) {
	if err := requireResourceType(typ); err != nil {
		return nil, err
	}

	value, err := c.requester.Request(ctx, server.RequestSpec{
		Method: http.MethodGet,
		Path:   typ.Path(""),
		Query:  params,
	})
	if err != nil {
		return nil, err
	}
	materialized, err := c.materializer.Materialize(value, typ)
	if err != nil {
		return nil, err
	}

	switch typed := materialized.(type) {
	case *resource.Collection:
		return typed, nil
	case []resource.Value:
		return &resource.Collection{Items: typed, Meta: resource.NewEmbedded(nil)}, nil
	default:
		return nil, faults.NewTypedError(
			faults.ServerError,
			fmt.Sprintf("expected a collection listing %s, got %T", typ.Collection, materialized),
			nil,
		)
	}
}

// Save creates the resource when it has no id and replaces it otherwise.
// Every local attribute is then replaced by the server's representation, so
// attributes the server ignores are dropped.
func (c *Client) Save(ctx context.Context, entity resource.Entity) (*resource.Object, error) {
	return objectResult(c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		return c.save(ctx, obj)
	}))
}

func (c *Client) save(ctx context.Context, obj *resource.Object) (*resource.Object, error) {
	if err := requireResourceType(obj.Type()); err != nil {
		return nil, err
	}

	method := http.MethodPost
	if obj.HasID() {
		method = http.MethodPut
	}
	value, err := c.requester.Request(ctx, server.RequestSpec{
		Method: method,
		Path:   obj.Type().Path(obj.ID()),
		Body:   obj.ToMap(),
	})
	if err != nil {
		return nil, err
	}
	saved, err := c.materializer.Object(value, nil)
	if err != nil {
		return nil, err
	}

	obj.Clear()
	obj.Update(saved)
	return obj, nil
}

// Reload replaces every attribute with a fresh copy from the server.
func (c *Client) Reload(ctx context.Context, entity resource.Entity) (*resource.Object, error) {
	return objectResult(c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		if !obj.HasID() {
			return nil, faults.NewMissingIDError("")
		}
		fresh, err := c.Retrieve(ctx, obj.Type(), obj.ID())
		if err != nil {
			return nil, err
		}
		obj.Clear()
		obj.Update(fresh)
		return obj, nil
	}))
}

// Reference returns an unresolved reference to a persisted resource.
func (c *Client) Reference(obj *resource.Object) (*resource.Reference, error) {
	if obj == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "reference requires an object", nil)
	}
	if !obj.HasID() {
		return nil, faults.NewMissingIDError("")
	}
	return c.ReferenceTo(obj.Type(), obj.ID())
}

// ReferenceTo returns an unresolved reference to typ/id.
func (c *Client) ReferenceTo(typ *resource.Type, id string) (*resource.Reference, error) {
	if err := requireResourceType(typ); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, faults.NewMissingIDError("")
	}
	href, err := resource.JoinURL(c.baseURL, typ.Path(id))
	if err != nil {
		return nil, err
	}
	return resource.NewReference(href, c.materializer.Resolver)
}

// apply runs fn on the object behind entity. References go through Invoke so
// they follow the identity fn returns.
func (c *Client) apply(
	ctx context.Context,
	entity resource.Entity,
	fn func(context.Context, *resource.Object) (resource.Value, error),
) (resource.Value, error) {
	if entity == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "operation requires a resource", nil)
	}
	if ref, ok := entity.(*resource.Reference); ok {
		return ref.Invoke(ctx, fn)
	}
	obj, err := entity.Object(ctx)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "operation requires a resource", nil)
	}
	return fn(ctx, obj)
}

func objectResult(value resource.Value, err error) (*resource.Object, error) {
	if err != nil {
		return nil, err
	}
	obj, ok := value.(*resource.Object)
	if !ok {
		return nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("expected an object, got %T", value), nil)
	}
	return obj, nil
}

func requireResourceType(typ *resource.Type) error {
	if typ.KindOf() != resource.KindResource || typ.Collection == "" {
		return faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("%s is not a resource type", typ),
			nil,
		)
	}
	return nil
}

// resourcePath returns the API path of a persisted resource that supports
// trait. Generic types are assumed to support every trait.
func resourcePath(obj *resource.Object, trait resource.Trait, operation string) (string, error) {
	typ := obj.Type()
	if err := requireResourceType(typ); err != nil {
		return "", err
	}
	if !typ.Generic && !typ.Has(trait) {
		return "", faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("%s does not support %s", typ, operation),
			nil,
		)
	}
	if !obj.HasID() {
		return "", faults.NewMissingIDError("")
	}
	return typ.Path(obj.ID()), nil
}
