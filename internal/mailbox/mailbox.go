package mailbox

import "context"

// Mail is one fully fetched and extracted message: the metadata that gets
// persisted plus the HTML payload handed to the renderer.
type Mail struct {
	MessageID string
	Timestamp string
	From      string
	Subject   string
	HTML      []byte
}

// Client is the narrow mailbox contract the ingestion pipeline works against.
// ListUnread returns candidate message ids only; Fetch retrieves and extracts
// one full message. Authentication and token refresh are the implementation's
// concern.
type Client interface {
	// ListUnread lists ids of unread messages received after the given
	// watermark (epoch-millis decimal text; "" means no lower bound), capped
	// at max results.
	ListUnread(ctx context.Context, after string, max int64) ([]string, error)

	// Fetch retrieves the full message for id and extracts its fields and
	// HTML body part.
	Fetch(ctx context.Context, id string) (*Mail, error)

	Close() error
}
