package client

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/graphtutorial/internal/http"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
)

// Static errors for err113 compliance.
var (
	ErrFolderRequired = errors.New("mail folder is required")
	ErrNoMorePages    = errors.New("no more pages")
)

// MessagesClient queries the signed-in user's messages.
type MessagesClient struct {
	httpClient *http.Client
}

// NewMessagesClient creates a new messages client.
func NewMessagesClient(httpClient *http.Client) *MessagesClient {
	return &MessagesClient{
		httpClient: httpClient,
	}
}

// ListInFolder lists one page of messages in folder, which may be a folder
// id or a well-known name such as Inbox.
func (c *MessagesClient) ListInFolder(ctx context.Context, folder string, params *graph.QueryParams) (*graph.MessageCollectionPage, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return nil, ErrFolderRequired
	}

	path := "/me/mailFolders/" + url.PathEscape(folder) + "/messages"

	return getResource[graph.MessageCollectionPage](ctx, c.httpClient, path, params)
}

// ListNext follows a continuation link returned in a previous page.
func (c *MessagesClient) ListNext(ctx context.Context, page *graph.MessageCollectionPage) (*graph.MessageCollectionPage, error) {
	if page == nil || !page.HasMore() {
		return nil, ErrNoMorePages
	}

	return getResource[graph.MessageCollectionPage](ctx, c.httpClient, page.NextLink, nil)
}
