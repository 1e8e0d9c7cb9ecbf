package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/graphtutorial/internal/http"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
)

// getResource issues one GET for path with params and decodes the JSON body
// into T. Fields T does not declare are ignored.
func getResource[T any](ctx context.Context, httpClient *http.Client, path string, params *graph.QueryParams) (*T, error) {
	var query url.Values

	if params != nil {
		err := params.Validate()
		if err != nil {
			return nil, err
		}

		query = params.ToValues()
	}

	resp, err := httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}

	var result T

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s response: %w", graph.ErrInvalidResponse, path, err)
	}

	return &result, nil
}
