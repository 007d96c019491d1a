package client

import (
	"context"
	"io"
	"net/http"

	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
	"github.com/analyzere/analyzere-go/upload"
)

const dataOperation = "data operations"

func dataPath(obj *resource.Object) (string, error) {
	path, err := resourcePath(obj, resource.TraitData, dataOperation)
	if err != nil {
		return "", err
	}
	return path + "/data", nil
}

// UploadData uploads source as the data of a persisted data resource and
// waits for the server to finish processing it. A processing failure is
// reported in the returned status, not as an error.
func (c *Client) UploadData(ctx context.Context, entity resource.Entity, source io.Reader, opts ...upload.Option) (*upload.Status, error) {
	value, err := c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := resourcePath(obj, resource.TraitData, dataOperation)
		if err != nil {
			return nil, err
		}

		sessionOpts := []upload.Option{
			upload.WithMetrics(c.metrics),
			upload.WithChunkSize(c.upload.ChunkSize),
			upload.WithPollInterval(c.upload.PollInterval),
		}
		session, err := upload.NewSession(c.requester, c.materializer, path, source, append(sessionOpts, opts...)...)
		if err != nil {
			return nil, err
		}
		return session.Run(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*upload.Status), nil
}

// UploadStatus reads the processing status of the last upload.
func (c *Client) UploadStatus(ctx context.Context, entity resource.Entity) (*upload.Status, error) {
	value, err := c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := dataPath(obj)
		if err != nil {
			return nil, err
		}
		return upload.FetchStatus(ctx, c.requester, c.materializer, path)
	})
	if err != nil {
		return nil, err
	}
	return value.(*upload.Status), nil
}

// DownloadData returns the raw data of a data resource.
func (c *Client) DownloadData(ctx context.Context, entity resource.Entity) ([]byte, error) {
	value, err := c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := dataPath(obj)
		if err != nil {
			return nil, err
		}
		response, err := c.requester.Execute(ctx, server.RequestSpec{
			Method: http.MethodGet,
			Path:   path,
		})
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

func (c *Client) DeleteData(ctx context.Context, entity resource.Entity) error {
	_, err := c.apply(ctx, entity, func(ctx context.Context, obj *resource.Object) (resource.Value, error) {
		path, err := dataPath(obj)
		if err != nil {
			return nil, err
		}
		_, err = c.requester.Execute(ctx, server.RequestSpec{
			Method: http.MethodDelete,
			Path:   path,
		})
		return nil, err
	})
	return err
}
