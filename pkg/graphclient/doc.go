// Package graphclient provides the primary entry point for constructing a
// device-code credential and a Microsoft Graph user client that implement the
// graph.CredentialManager and graph.UserClient interfaces.
//
// It layers configuration, HTTP transport and authentication on top of the
// types defined in the graph package. Most applications call
// InitializeForUserAuth once and keep the returned client for the life of the
// process.
//
// Quick start
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
//	  ctx := context.Background()
//
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
//	  // The first call prompts for sign in; later calls reuse the token.
//	  user, err := cli.GetCurrentUser(ctx)
//	  if err != nil { log.Fatal(err) }
//	  fmt.Println("Hello,", user.DisplayName)
//	}
//
// # Sovereign clouds and tests
//
// Config.AuthorityHost and Config.GraphEndpoint move the identity and Graph
// endpoints; Config.HTTPClient replaces the transport for both.
//
// # Helpers
//
// NewCredentialManager and NewUserClient build the two halves separately when
// the caller wants to share one credential between clients.
package graphclient
