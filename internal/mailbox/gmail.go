package mailbox

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mail-courier/internal/config"
)

const personalLabel = "CATEGORY_PERSONAL"

// GmailClient implements Client using the Gmail API
type GmailClient struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailClient creates a new Gmail API client
func NewGmailClient(ctx context.Context, cfg *config.GmailConfig) (*GmailClient, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailClient{
		service:   service,
		userEmail: cfg.UserEmail,
	}, nil
}

// ListUnread lists ids of unread personal messages after the watermark
func (c *GmailClient) ListUnread(ctx context.Context, after string, max int64) ([]string, error) {
	response, err := c.service.Users.Messages.List(c.userEmail).
		LabelIds(personalLabel).
		Q(unreadQuery(after)).
		IncludeSpamTrash(false).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(response.Messages))
	for _, msg := range response.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// unreadQuery builds the Gmail search query. The stored watermark is
// epoch-millis text while the "after:" operator takes whole seconds, so the
// last three digits are dropped; the dedup gate catches the boundary message
// that the coarser query re-lists.
func unreadQuery(after string) string {
	if len(after) > 3 {
		return fmt.Sprintf("is:unread after:%s", after[:len(after)-3])
	}
	return "is:unread"
}

// Fetch retrieves one full message and extracts its fields and HTML body
func (c *GmailClient) Fetch(ctx context.Context, id string) (*Mail, error) {
	message, err := c.service.Users.Messages.Get(c.userEmail, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return extractGmailMessage(message)
}

// Close closes the Gmail client (no-op for the Gmail API)
func (c *GmailClient) Close() error {
	return nil
}
