package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

const (
	portfolioViewsCollection = "portfolio_views"
	marginalsPath            = "portfolio_view_marginals"
)

// OptimizationResult fetches the result of an optimization view.
func (c *Client) OptimizationResult(ctx context.Context, entity resource.Entity, opts ...CallOption) (resource.Value, error) {
	options := buildCallOptions(opts)
	return c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := resourcePath(obj, resource.TraitOptimization, "optimization results")
		if err != nil {
			return nil, err
		}
		value, err := c.requester.Request(ctx, options.spec(path+"/result"))
		if err != nil {
			return nil, err
		}
		return c.materializer.Materialize(value, nil)
	})
}

// PortfolioViewMarginal asks the server for the portfolio view obtained by
// adding and removing layer views from view, and returns an unresolved
// reference to it. Ids are read without resolving references.
func (c *Client) PortfolioViewMarginal(
	ctx context.Context,
	view resource.Entity,
	add []resource.Entity,
	remove []resource.Entity,
) (*resource.Reference, error) {
	if collection := entityCollection(view); collection != portfolioViewsCollection {
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("marginals require a portfolio view, got %q", collection),
			nil,
		)
	}
	viewRef, err := refID(view)
	if err != nil {
		return nil, err
	}
	addRefs, err := refIDs(add)
	if err != nil {
		return nil, err
	}
	removeRefs, err := refIDs(remove)
	if err != nil {
		return nil, err
	}

	value, err := c.requester.Request(ctx, server.RequestSpec{
		Method: http.MethodPost,
		Path:   marginalsPath,
		Body: map[string]resource.Value{
			"portfolio_view_id":     viewRef,
			"add_layer_view_ids":    addRefs,
			"remove_layer_view_ids": removeRefs,
		},
	})
	if err != nil {
		return nil, err
	}

	id, err := marginalViewID(value)
	if err != nil {
		return nil, err
	}
	return c.ReferenceTo(c.registry.Lookup(portfolioViewsCollection), id)
}

func entityCollection(entity resource.Entity) string {
	switch typed := entity.(type) {
	case *resource.Reference:
		if typed != nil {
			return typed.Collection()
		}
	case *resource.Object:
		if typed != nil && typed.Type() != nil {
			return typed.Type().Collection
		}
	}
	return ""
}

func refID(entity resource.Entity) (map[string]resource.Value, error) {
	if entity == nil || entity.ID() == "" {
		return nil, faults.NewMissingIDError("")
	}
	return map[string]resource.Value{"ref_id": entity.ID()}, nil
}

func refIDs(entities []resource.Entity) ([]resource.Value, error) {
	refs := make([]resource.Value, 0, len(entities))
	for _, entity := range entities {
		ref, err := refID(entity)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func marginalViewID(value resource.Value) (string, error) {
	payload, ok := value.(map[string]resource.Value)
	if ok {
		if view, isMap := payload["portfolio_view"].(map[string]resource.Value); isMap {
			if id, isString := view["ref_id"].(string); isString && id != "" {
				return id, nil
			}
		}
	}
	return "", faults.NewTypedError(faults.ServerError, "marginal response is missing portfolio_view.ref_id", nil)
}
