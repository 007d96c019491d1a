package client

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

const metricsOperation = "metrics"

// CallOption tunes one metrics or optimization request.
type CallOption func(*callOptions)

type callOptions struct {
	params    map[string]string
	autoRetry bool
}

// WithParam adds a query parameter (perspective, currency, filter, ...).
func WithParam(name string, value string) CallOption {
	return func(o *callOptions) {
		o.params[name] = value
	}
}

func WithParams(params map[string]string) CallOption {
	return func(o *callOptions) {
		maps.Copy(o.params, params)
	}
}

// WithoutAutoRetry makes a 503 with Retry-After fail with RetryAfterError
// instead of being waited out.
func WithoutAutoRetry() CallOption {
	return func(o *callOptions) {
		o.autoRetry = false
	}
}

func buildCallOptions(opts []CallOption) callOptions {
	options := callOptions{params: map[string]string{}, autoRetry: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

func (o callOptions) spec(path string) server.RequestSpec {
	spec := server.RequestSpec{
		Method:           http.MethodGet,
		Path:             path,
		DisableAutoRetry: !o.autoRetry,
	}
	if len(o.params) > 0 {
		spec.Query = o.params
	}
	return spec
}

// Vectorize joins values with "," for use in a metrics path.
func Vectorize(values ...float64) string {
	parts := make([]string, len(values))
	for idx, value := range values {
		parts[idx] = formatFloat(value)
	}
	return strings.Join(parts, ",")
}

// VectorizeRange encodes ranges for a windowed metrics path: bounds within a
// range are joined with "_" and ranges with ",". Every range needs at least
// one bound.
func VectorizeRange(ranges ...[]float64) (string, error) {
	if len(ranges) == 0 {
		return "", faults.NewTypedError(faults.ValidationError, "at least one probability range is required", nil)
	}
	parts := make([]string, len(ranges))
	for idx, bounds := range ranges {
		if len(bounds) == 0 {
			return "", faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("probability range %d has no bounds", idx),
				nil,
			)
		}
		encoded := make([]string, len(bounds))
		for pos, bound := range bounds {
			encoded[pos] = formatFloat(bound)
		}
		parts[idx] = strings.Join(encoded, "_")
	}
	return strings.Join(parts, ","), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func (c *Client) getMetrics(
	ctx context.Context,
	entity resource.Entity,
	suffix string,
	opts []CallOption,
) (resource.Value, error) {
	options := buildCallOptions(opts)
	return c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := resourcePath(obj, resource.TraitMetrics, metricsOperation)
		if err != nil {
			return nil, err
		}
		value, err := c.requester.Request(ctx, options.spec(path+"/"+suffix))
		if err != nil {
			return nil, err
		}
		return c.materializer.Materialize(value, nil)
	})
}

func (c *Client) getRawMetrics(
	ctx context.Context,
	entity resource.Entity,
	suffix string,
	opts []CallOption,
) ([]byte, error) {
	options := buildCallOptions(opts)
	value, err := c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := resourcePath(obj, resource.TraitMetrics, metricsOperation)
		if err != nil {
			return nil, err
		}
		response, err := c.requester.Execute(ctx, options.spec(path+"/"+suffix))
		if err != nil {
			return nil, err
		}
		return response.Body, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

func (c *Client) TailMetrics(ctx context.Context, entity resource.Entity, probabilities []float64, opts ...CallOption) (resource.Value, error) {
	return c.getMetrics(ctx, entity, "tail_metrics/"+Vectorize(probabilities...), opts)
}

func (c *Client) WindowMetrics(ctx context.Context, entity resource.Entity, ranges [][]float64, opts ...CallOption) (resource.Value, error) {
	encoded, err := VectorizeRange(ranges...)
	if err != nil {
		return nil, err
	}
	return c.getMetrics(ctx, entity, "window_metrics/"+encoded, opts)
}

func (c *Client) CoMetrics(ctx context.Context, entity resource.Entity, probabilities []float64, opts ...CallOption) (resource.Value, error) {
	return c.getMetrics(ctx, entity, "co_metrics/"+Vectorize(probabilities...), opts)
}

func (c *Client) WindowCoMetrics(ctx context.Context, entity resource.Entity, ranges [][]float64, opts ...CallOption) (resource.Value, error) {
	encoded, err := VectorizeRange(ranges...)
	if err != nil {
		return nil, err
	}
	return c.getMetrics(ctx, entity, "window_co_metrics/"+encoded, opts)
}

// EL returns the expected loss.
func (c *Client) EL(ctx context.Context, entity resource.Entity, opts ...CallOption) (float64, error) {
	value, err := c.getMetrics(ctx, entity, "el", opts)
	if err != nil {
		return 0, err
	}
	return toFloat(value)
}

// EP returns exceedance probabilities for the given loss thresholds.
func (c *Client) EP(ctx context.Context, entity resource.Entity, thresholds []float64, opts ...CallOption) (resource.Value, error) {
	return c.getMetrics(ctx, entity, "exceedance_probabilities/"+Vectorize(thresholds...), opts)
}

func (c *Client) TVaR(ctx context.Context, entity resource.Entity, probabilities []float64, opts ...CallOption) (resource.Value, error) {
	return c.getMetrics(ctx, entity, "tvar/"+Vectorize(probabilities...), opts)
}

func (c *Client) WindowVaR(ctx context.Context, entity resource.Entity, ranges [][]float64, opts ...CallOption) (resource.Value, error) {
	encoded, err := VectorizeRange(ranges...)
	if err != nil {
		return nil, err
	}
	return c.getMetrics(ctx, entity, "window_var/"+encoded, opts)
}

// DownloadYLT returns the raw year loss table.
func (c *Client) DownloadYLT(ctx context.Context, entity resource.Entity, opts ...CallOption) ([]byte, error) {
	return c.getRawMetrics(ctx, entity, "ylt", opts)
}

// DownloadYELT returns the raw year event loss table.
func (c *Client) DownloadYELT(ctx context.Context, entity resource.Entity, opts ...CallOption) ([]byte, error) {
	return c.getRawMetrics(ctx, entity, "yelt", opts)
}

// BackAllocation allocates the metrics of entity back to the view sourceID.
func (c *Client) BackAllocation(ctx context.Context, entity resource.Entity, sourceID string, opts ...CallOption) (resource.Value, error) {
	if sourceID == "" {
		return nil, faults.NewTypedError(faults.ValidationError, "back allocation requires a source id", nil)
	}
	return c.getMetrics(ctx, entity, "back_allocations", append(opts, WithParam("source_id", sourceID)))
}

func toFloat(value resource.Value) (float64, error) {
	switch typed := value.(type) {
	case float64:
		return typed, nil
	case int64:
		return float64(typed), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, faults.NewTypedError(faults.ServerError, "expected a number in response", err)
		}
		return parsed, nil
	default:
		return 0, faults.NewTypedError(faults.ServerError, fmt.Sprintf("expected a number in response, got %T", value), nil)
	}
}
