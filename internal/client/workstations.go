package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/skybi/fleetdash/internal/fleet"
)

const pathWorkstations = "/api/workstations"

// ListOptions restricts a list request to a window of the result
type ListOptions struct {
	Skip  int
	Limit int
}

func (opts *ListOptions) query() url.Values {
	if opts == nil {
		return nil
	}
	query := url.Values{}
	if opts.Skip > 0 {
		query.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(query) == 0 {
		return nil
	}
	return query
}

// GetWorkstations retrieves the registered workstations; opts may be nil
func (client *Client) GetWorkstations(ctx context.Context, opts *ListOptions) ([]fleet.Workstation, error) {
	var workstations fleet.List[fleet.Workstation]
	if err := client.Request(ctx, pathWorkstations, &RequestOptions{Query: opts.query()}, &workstations); err != nil {
		return nil, err
	}
	return workstations, nil
}

// AddWorkstation registers a new workstation
func (client *Client) AddWorkstation(ctx context.Context, create *fleet.WorkstationCreate) (*fleet.Workstation, error) {
	workstation := new(fleet.Workstation)
	err := client.Request(ctx, pathWorkstations, &RequestOptions{
		Method: http.MethodPost,
		Body:   create,
	}, workstation)
	if err != nil {
		return nil, err
	}
	return workstation, nil
}

// RemoveWorkstation removes a workstation
func (client *Client) RemoveWorkstation(ctx context.Context, id fleet.ID) (*fleet.Result, error) {
	result := new(fleet.Result)
	err := client.Request(ctx, pathWorkstations+"/"+escape(id), &RequestOptions{
		Method: http.MethodDelete,
		Route:  pathWorkstations + "/{id}",
	}, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TestConnection makes the backend check whether a workstation is reachable
func (client *Client) TestConnection(ctx context.Context, id fleet.ID) (*fleet.Result, error) {
	result := new(fleet.Result)
	err := client.Request(ctx, pathWorkstations+"/"+escape(id)+"/test-connection", &RequestOptions{
		Method: http.MethodPost,
		Route:  pathWorkstations + "/{id}/test-connection",
	}, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}
