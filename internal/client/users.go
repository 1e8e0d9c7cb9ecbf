package client

import (
	"context"

	"github.com/fivetwenty-io/graphtutorial/internal/http"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
)

// UsersClient queries user resources.
type UsersClient struct {
	httpClient *http.Client
}

// NewUsersClient creates a new users client.
func NewUsersClient(httpClient *http.Client) *UsersClient {
	return &UsersClient{
		httpClient: httpClient,
	}
}

// Me gets the signed-in user.
func (c *UsersClient) Me(ctx context.Context, params *graph.QueryParams) (*graph.UserProfile, error) {
	return getResource[graph.UserProfile](ctx, c.httpClient, "/me", params)
}
