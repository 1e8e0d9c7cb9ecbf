// Package graph provides types, interfaces, and helpers for reading a user's
// profile and mailbox through the Microsoft Graph v1.0 REST API.
//
// # Overview
//
// The graph package defines the domain types (UserProfile, MessageSummary,
// MessageCollectionPage), the Settings that identify the app registration,
// and the interfaces for the two collaborating components: a
// CredentialManager that owns the OAuth2 device-code credential, and a
// UserClient that issues authenticated, field-selected queries. Concrete
// implementations are provided by the graphclient package, which wires
// configuration, transport, and authentication together.
//
// Getting a client
//
//	import (
//	  "context"
//	  "fmt"
//	  "log"
//
//	  "github.com/fivetwenty-io/graphtutorial/pkg/graph"
//	  "github.com/fivetwenty-io/graphtutorial/pkg/graphclient"
//	)
//
//	func example() {
//	  settings := &graph.Settings{
//	    ClientID:        "00000000-0000-0000-0000-000000000000",
//	    TenantID:        "common",
//	    GraphUserScopes: []string{"user.read", "mail.read"},
//	  }
//
//	  prompt := func(ctx context.Context, info graph.DeviceCodeInfo) error {
//	    fmt.Println(info.Message)
//	    return nil
//	  }
//
//	  cli, err := graphclient.InitializeForUserAuth(settings, prompt, nil)
//	  if err != nil { log.Fatal(err) }
//
//	  user, err := cli.GetCurrentUser(context.Background())
//	  if err != nil { log.Fatal(err) }
//	  fmt.Println(user.DisplayName)
//	}
//
// # Initialization
//
// Both components start uninitialized. Every operation checks the
// initialization state first and returns ErrNotInitialized rather than
// dereferencing missing state. There are no package-level singletons: the
// caller owns the credential and the client and passes them explicitly.
//
// # Queries
//
// QueryParams expresses the OData options used by the client ($select,
// $top, $orderby, $filter). Response bodies are decoded into the declared
// result type; fields that were not selected or are unknown are ignored.
//
// # Errors
//
// Failures are reported with the sentinel errors in errors.go and the
// RemoteError type. Use errors.Is and errors.As to branch on them.
//
// # Interceptors and rate limiting
//
// The package includes request/response interceptors (logging, headers,
// request correlation ids, rate limiting) and a RateLimiter that honours
// Retry-After when Graph throttles the client.
package graph
