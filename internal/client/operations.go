package client

import (
	"context"
	"net/http"

	"github.com/skybi/fleetdash/internal/fleet"
)

const pathOperations = "/api/operations"

// GetOperations retrieves the operation log; opts may be nil
func (client *Client) GetOperations(ctx context.Context, opts *ListOptions) ([]fleet.Operation, error) {
	var operations fleet.List[fleet.Operation]
	if err := client.Request(ctx, pathOperations, &RequestOptions{Query: opts.query()}, &operations); err != nil {
		return nil, err
	}
	return operations, nil
}

// GetOperation retrieves a single operation
func (client *Client) GetOperation(ctx context.Context, id fleet.ID) (*fleet.Operation, error) {
	operation := new(fleet.Operation)
	err := client.Request(ctx, pathOperations+"/"+escape(id), &RequestOptions{
		Route: pathOperations + "/{id}",
	}, operation)
	if err != nil {
		return nil, err
	}
	return operation, nil
}

// CancelOperation cancels a pending or running operation
func (client *Client) CancelOperation(ctx context.Context, id fleet.ID) (*fleet.Result, error) {
	result := new(fleet.Result)
	err := client.Request(ctx, pathOperations+"/"+escape(id)+"/cancel", &RequestOptions{
		Method: http.MethodPost,
		Route:  pathOperations + "/{id}/cancel",
	}, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}
