package mailbox

import (
	"encoding/base64"
	"fmt"
	"strconv"

	gmail "google.golang.org/api/gmail/v1"
)

// extractGmailMessage pulls the persisted fields and the renderable HTML part
// out of a full Gmail message. Message id, internal date and an HTML body part
// are required; From and Subject default to empty strings.
func extractGmailMessage(msg *gmail.Message) (*Mail, error) {
	if msg.Id == "" {
		return nil, fmt.Errorf("message has no id")
	}
	if msg.InternalDate == 0 {
		return nil, fmt.Errorf("message %s has no internal date", msg.Id)
	}
	if msg.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", msg.Id)
	}

	data := findHTMLPart(msg.Payload)
	if data == "" {
		return nil, fmt.Errorf("message %s has no text/html body part", msg.Id)
	}

	html, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body of message %s: %w", msg.Id, err)
	}

	return &Mail{
		MessageID: msg.Id,
		Timestamp: strconv.FormatInt(msg.InternalDate, 10),
		From:      header(msg.Payload, "From"),
		Subject:   header(msg.Payload, "Subject"),
		HTML:      html,
	}, nil
}

// findHTMLPart walks the part tree and returns the base64url body data of the
// first text/html part.
func findHTMLPart(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
		return part.Body.Data
	}
	for _, sub := range part.Parts {
		if data := findHTMLPart(sub); data != "" {
			return data
		}
	}
	return ""
}

func header(payload *gmail.MessagePart, name string) string {
	for _, h := range payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}
