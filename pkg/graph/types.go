package graph

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Settings identifies the app registration and the delegated scopes the
// signed-in user grants to it.
type Settings struct {
	ClientID        string   `json:"clientId"        yaml:"clientId"`
	TenantID        string   `json:"tenantId"        yaml:"tenantId"`
	GraphUserScopes []string `json:"graphUserScopes" yaml:"graphUserScopes"`
}

// DeviceCodeInfo is what the user needs to complete a device-code sign in.
type DeviceCodeInfo struct {
	UserCode        string    `json:"userCode"        yaml:"userCode"`
	VerificationURL string    `json:"verificationUrl" yaml:"verificationUrl"`
	ExpiresAt       time.Time `json:"expiresAt"       yaml:"expiresAt"`
	Message         string    `json:"message"         yaml:"message"`
}

// DeviceCodePrompt displays a device code to the user. It may block until the
// user acknowledges it and must return when ctx is cancelled.
type DeviceCodePrompt func(ctx context.Context, info DeviceCodeInfo) error

// UserProfile is the projection of the signed-in user returned by GET /me.
type UserProfile struct {
	DisplayName       string `json:"displayName"       yaml:"displayName"`
	Mail              string `json:"mail"              yaml:"mail"`
	UserPrincipalName string `json:"userPrincipalName" yaml:"userPrincipalName"`
}

// Email returns the user's mail address, falling back to the UPN for
// accounts without a mailbox address.
func (u *UserProfile) Email() string {
	if u.Mail != "" {
		return u.Mail
	}

	return u.UserPrincipalName
}

// EmailAddress is a name/address pair.
type EmailAddress struct {
	Name    string `json:"name"    yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

// Recipient wraps an EmailAddress the way Graph nests it.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress" yaml:"emailAddress"`
}

// MessageSummary is the projection of one message in a mail folder.
type MessageSummary struct {
	From             *Recipient `json:"from,omitempty"   yaml:"from,omitempty"`
	IsRead           bool       `json:"isRead"           yaml:"isRead"`
	ReceivedDateTime time.Time  `json:"receivedDateTime" yaml:"receivedDateTime"`
	Subject          string     `json:"subject"          yaml:"subject"`
}

// Sender returns the display name of the sender, or its address when no
// name is set.
func (m *MessageSummary) Sender() string {
	if m.From == nil {
		return ""
	}

	if name := strings.TrimSpace(m.From.EmailAddress.Name); name != "" {
		return name
	}

	return m.From.EmailAddress.Address
}

// MessageCollectionPage is one page of messages. NextLink carries the
// continuation token returned by Graph when more messages exist.
type MessageCollectionPage struct {
	Messages []MessageSummary `json:"value"                     yaml:"value"`
	NextLink string           `json:"@odata.nextLink,omitempty" yaml:"nextLink,omitempty"`
}

// HasMore reports whether Graph returned a continuation token.
func (p *MessageCollectionPage) HasMore() bool {
	return p.NextLink != ""
}

// SortNewestFirst orders messages by ReceivedDateTime, newest first, and
// keeps at most limit of them. Messages received at the same instant keep
// their server order. A limit of zero or less keeps every message.
func (p *MessageCollectionPage) SortNewestFirst(limit int) {
	slices.SortStableFunc(p.Messages, func(a, b MessageSummary) int {
		return b.ReceivedDateTime.Compare(a.ReceivedDateTime)
	})

	if limit > 0 && len(p.Messages) > limit {
		p.Messages = p.Messages[:limit]
	}
}
