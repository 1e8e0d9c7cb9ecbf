package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/fivetwenty-io/graphtutorial/internal/client"
	graphhttp "github.com/fivetwenty-io/graphtutorial/internal/http"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCredential for testing.
type MockCredential struct {
	mu            sync.Mutex
	state         graph.InitState
	token         string
	err           error
	scopes        [][]string
	invalidations int
}

func newMockCredential(token string, err error) *MockCredential {
	return &MockCredential{state: graph.StateInitialized, token: token, err: err}
}

func (m *MockCredential) Initialize(settings *graph.Settings, prompt graph.DeviceCodePrompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = graph.StateInitialized

	return nil
}

func (m *MockCredential) GetToken(ctx context.Context, scopes []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scopes = append(m.scopes, scopes)

	return m.token, m.err
}

func (m *MockCredential) State() graph.InitState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *MockCredential) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidations++
}

func (m *MockCredential) invalidated() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.invalidations
}

// MockLogger for testing.
type MockLogger struct {
	graph.NopLogger

	mu       sync.Mutex
	messages []string
}

func (l *MockLogger) Debug(msg string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
}

func (l *MockLogger) logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.messages...)
}

func (m *MockCredential) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.scopes)
}

var testSettings = &graph.Settings{
	ClientID:        "client-id",
	TenantID:        "common",
	GraphUserScopes: []string{"user.read", "mail.read"},
}

func newTestClient(t *testing.T, endpoint string, credential graph.CredentialManager) *Client {
	t.Helper()

	client := New(&graph.Config{GraphEndpoint: endpoint, RetryMax: -1})
	err := client.InitializeForUser(testSettings, credential)
	require.NoError(t, err)

	return client
}

func TestClient_InitializeForUser(t *testing.T) {
	t.Parallel()

	t.Run("new client is uninitialized", func(t *testing.T) {
		t.Parallel()

		client := New(nil)
		assert.Equal(t, graph.StateUninitialized, client.State())
		assert.NotNil(t, client.Users())
		assert.NotNil(t, client.Messages())
	})

	t.Run("requires settings and credential", func(t *testing.T) {
		t.Parallel()

		client := New(nil)

		err := client.InitializeForUser(nil, newMockCredential("token", nil))
		require.ErrorIs(t, err, graph.ErrNotInitialized)

		err = client.InitializeForUser(testSettings, nil)
		require.ErrorIs(t, err, graph.ErrNotInitialized)
		assert.Equal(t, graph.StateUninitialized, client.State())
	})

	t.Run("requires an initialized credential", func(t *testing.T) {
		t.Parallel()

		client := New(nil)
		credential := &MockCredential{}

		err := client.InitializeForUser(testSettings, credential)
		require.ErrorIs(t, err, graph.ErrNotInitialized)
	})

	t.Run("requires user scopes", func(t *testing.T) {
		t.Parallel()

		client := New(nil)

		err := client.InitializeForUser(&graph.Settings{ClientID: "client-id"}, newMockCredential("token", nil))
		require.ErrorIs(t, err, graph.ErrInvalidArgument)
	})

	t.Run("binds credential and scopes", func(t *testing.T) {
		t.Parallel()

		credential := newMockCredential("user-token", nil)
		client := New(nil)

		err := client.InitializeForUser(testSettings, credential)
		require.NoError(t, err)
		assert.Equal(t, graph.StateInitialized, client.State())

		token, err := client.GetUserToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user-token", token)
		assert.Equal(t, [][]string{{"user.read", "mail.read"}}, credential.scopes)
	})
}

func TestClient_NotInitialized(t *testing.T) {
	t.Parallel()

	client := New(nil)

	_, err := client.GetUserToken(context.Background())
	require.ErrorIs(t, err, graph.ErrNotInitialized)

	user, err := client.GetCurrentUser(context.Background())
	require.ErrorIs(t, err, graph.ErrNotInitialized)
	assert.Nil(t, user)

	page, err := client.GetInboxPage(context.Background())
	require.ErrorIs(t, err, graph.ErrNotInitialized)
	assert.Nil(t, page)
}

func TestClient_GetCurrentUser(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/me", request.URL.Path)
		assert.Equal(t, "GET", request.Method)
		assert.Equal(t, "$select=displayName,mail,userPrincipalName", request.URL.RawQuery)
		assert.Equal(t, "Bearer user-token", request.Header.Get("Authorization"))

		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{
			"@odata.context": "https://graph.microsoft.com/v1.0/$metadata#users(displayName,mail,userPrincipalName)/$entity",
			"id": "87d349ed-44d7-43e1-9a83-5f2406dee5bd",
			"displayName": "Adele Vance",
			"mail": "AdeleV@contoso.com",
			"userPrincipalName": "AdeleV@contoso.com"
		}`))
	}))
	defer server.Close()

	credential := newMockCredential("user-token", nil)
	client := newTestClient(t, server.URL, credential)

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Adele Vance", user.DisplayName)
	assert.Equal(t, "AdeleV@contoso.com", user.Mail)
	assert.Equal(t, "AdeleV@contoso.com", user.UserPrincipalName)
	assert.Equal(t, [][]string{{"user.read", "mail.read"}}, credential.scopes)
}

func inboxMessages(count int, base time.Time) []map[string]interface{} {
	messages := make([]map[string]interface{}, 0, count)

	// Stride through the hours so the server order is not sorted.
	for i := range count {
		hour := (i * 7) % count
		messages = append(messages, map[string]interface{}{
			"id":               "message-" + strconv.Itoa(hour),
			"subject":          "Message " + strconv.Itoa(hour),
			"isRead":           hour%2 == 0,
			"receivedDateTime": base.Add(time.Duration(hour) * time.Hour).Format(time.RFC3339),
			"from": map[string]interface{}{
				"emailAddress": map[string]string{
					"name":    "Sender",
					"address": "sender@contoso.com",
				},
			},
		})
	}

	return messages
}

func TestClient_GetInboxPage(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/me/mailFolders/Inbox/messages", request.URL.Path)
		assert.Equal(t,
			"$orderby=receivedDateTime%20desc&$select=from,isRead,receivedDateTime,subject&$top=25",
			request.URL.RawQuery)

		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]interface{}{
			"value":           inboxMessages(30, base),
			"@odata.nextLink": "https://graph.microsoft.com/v1.0/me/mailFolders/Inbox/messages?$skip=25",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, newMockCredential("user-token", nil))

	page, err := client.GetInboxPage(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Messages, 25)
	assert.True(t, page.HasMore())

	assert.Equal(t, base.Add(29*time.Hour), page.Messages[0].ReceivedDateTime.UTC())
	assert.Equal(t, base.Add(5*time.Hour), page.Messages[24].ReceivedDateTime.UTC())

	for i := 1; i < len(page.Messages); i++ {
		assert.False(t, page.Messages[i].ReceivedDateTime.After(page.Messages[i-1].ReceivedDateTime))
	}

	require.NotNil(t, page.Messages[0].From)
	assert.Equal(t, "Sender", page.Messages[0].Sender())
	assert.Equal(t, "sender@contoso.com", page.Messages[0].From.EmailAddress.Address)
}

func TestClient_Failures(t *testing.T) {
	t.Parallel()

	t.Run("unauthorized", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusUnauthorized)
			_, _ = writer.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken","message":"Access token is empty."}}`))
		}))
		defer server.Close()

		credential := newMockCredential("user-token", nil)
		client := newTestClient(t, server.URL, credential)

		_, err := client.GetCurrentUser(context.Background())
		require.ErrorIs(t, err, graph.ErrUnauthenticated)
		assert.False(t, graph.IsRemoteError(err))
		assert.Equal(t, 1, credential.invalidated())
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusInternalServerError)
			_, _ = writer.Write([]byte(`upstream failure`))
		}))
		defer server.Close()

		credential := newMockCredential("user-token", nil)
		client := newTestClient(t, server.URL, credential)

		page, err := client.GetInboxPage(context.Background())
		require.Error(t, err)
		assert.Nil(t, page)
		assert.Zero(t, credential.invalidated())

		remoteErr := &graph.RemoteError{}
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, 500, remoteErr.StatusCode)
		assert.Equal(t, "upstream failure", remoteErr.Body)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			_, _ = writer.Write([]byte(`{"displayName": `))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, newMockCredential("user-token", nil))

		_, err := client.GetCurrentUser(context.Background())
		require.ErrorIs(t, err, graph.ErrInvalidResponse)
	})

	t.Run("token acquisition failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			t.Error("request should not be sent")
		}))
		defer server.Close()

		credential := newMockCredential("", graph.ErrAuthTimeout)
		client := newTestClient(t, server.URL, credential)

		_, err := client.GetInboxPage(context.Background())
		require.ErrorIs(t, err, graph.ErrUnauthenticated)
		require.ErrorIs(t, err, graph.ErrAuthTimeout)
		assert.Equal(t, 1, credential.calls())
	})
}

func TestMessagesClient(t *testing.T) {
	t.Parallel()

	t.Run("requires a folder", func(t *testing.T) {
		t.Parallel()

		client := New(nil)

		_, err := client.Messages().ListInFolder(context.Background(), " ", nil)
		require.ErrorIs(t, err, ErrFolderRequired)
	})

	t.Run("rejects invalid query parameters", func(t *testing.T) {
		t.Parallel()

		client := New(nil)

		_, err := client.Messages().ListInFolder(context.Background(), "Inbox", graph.NewQueryParams().WithTop(-1))
		require.ErrorIs(t, err, graph.ErrInvalidArgument)
	})

	t.Run("follows continuation links", func(t *testing.T) {
		t.Parallel()

		var server *httptest.Server

		server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")

			if request.URL.Query().Get("$skip") == "" {
				_ = json.NewEncoder(writer).Encode(map[string]interface{}{
					"value":           []map[string]interface{}{{"subject": "first"}},
					"@odata.nextLink": server.URL + "/me/mailFolders/Archive/messages?$skip=1",
				})

				return
			}

			assert.Equal(t, "/me/mailFolders/Archive/messages", request.URL.Path)
			_ = json.NewEncoder(writer).Encode(map[string]interface{}{
				"value": []map[string]interface{}{{"subject": "second"}},
			})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, newMockCredential("user-token", nil))

		first, err := client.Messages().ListInFolder(context.Background(), "Archive", nil)
		require.NoError(t, err)
		require.True(t, first.HasMore())

		second, err := client.Messages().ListNext(context.Background(), first)
		require.NoError(t, err)
		require.Len(t, second.Messages, 1)
		assert.Equal(t, "second", second.Messages[0].Subject)

		_, err = client.Messages().ListNext(context.Background(), second)
		require.ErrorIs(t, err, ErrNoMorePages)
	})
	t.Run("refuses continuation links to another host", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			t.Error("request should not be sent")
		}))
		defer server.Close()

		credential := newMockCredential("user-token", nil)
		client := newTestClient(t, server.URL, credential)

		page := &graph.MessageCollectionPage{NextLink: "https://graph.example.net/v1.0/me/messages?$skip=25"}

		next, err := client.Messages().ListNext(context.Background(), page)
		require.ErrorIs(t, err, graphhttp.ErrForeignHost)
		require.ErrorIs(t, err, graph.ErrInvalidResponse)
		assert.Nil(t, next)
		assert.Zero(t, credential.calls())
	})
}

func TestClient_RequestLogging(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"displayName": "Adele Vance"}`))
	}))
	defer server.Close()

	tests := []struct {
		name     string
		debug    bool
		expected []string
	}{
		{name: "debug logs requests and responses", debug: true, expected: []string{"API Request", "API Response"}},
		{name: "without debug only responses are logged", debug: false, expected: []string{"API Response"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := &MockLogger{}
			client := New(&graph.Config{GraphEndpoint: server.URL, RetryMax: -1, Debug: tt.debug, Logger: logger})
			require.NoError(t, client.InitializeForUser(testSettings, newMockCredential("user-token", nil)))

			_, err := client.GetCurrentUser(context.Background())
			require.NoError(t, err)

			var apiMessages []string

			for _, msg := range logger.logged() {
				if strings.HasPrefix(msg, "API ") {
					apiMessages = append(apiMessages, msg)
				}
			}

			assert.Equal(t, tt.expected, apiMessages)
		})
	}
}
