package mailbox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func fullMessage() *gmail.Message {
	return &gmail.Message{
		Id:           "m1",
		InternalDate: 1700000000123,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "Subject", Value: "hello"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: encodeBody("plain text")},
				},
				{
					MimeType: "text/html",
					Body:     &gmail.MessagePartBody{Data: encodeBody("<p>hello</p>")},
				},
			},
		},
	}
}

func TestExtractGmailMessage(t *testing.T) {
	mail, err := extractGmailMessage(fullMessage())
	require.NoError(t, err)

	assert.Equal(t, "m1", mail.MessageID)
	assert.Equal(t, "1700000000123", mail.Timestamp)
	assert.Equal(t, "alice@example.com", mail.From)
	assert.Equal(t, "hello", mail.Subject)
	assert.Equal(t, "<p>hello</p>", string(mail.HTML))
}

func TestExtractFindsNestedHTMLPart(t *testing.T) {
	msg := fullMessage()
	// wrap the alternative part one level deeper, as multipart/mixed mails do
	msg.Payload = &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Headers:  msg.Payload.Headers,
		Parts:    []*gmail.MessagePart{{MimeType: "multipart/alternative", Parts: msg.Payload.Parts}},
	}

	mail, err := extractGmailMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(mail.HTML))
}

func TestExtractOptionalHeadersDefaultEmpty(t *testing.T) {
	msg := fullMessage()
	msg.Payload.Headers = nil

	mail, err := extractGmailMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "", mail.From)
	assert.Equal(t, "", mail.Subject)
}

func TestExtractMissingID(t *testing.T) {
	msg := fullMessage()
	msg.Id = ""

	_, err := extractGmailMessage(msg)
	assert.Error(t, err)
}

func TestExtractMissingInternalDate(t *testing.T) {
	msg := fullMessage()
	msg.InternalDate = 0

	_, err := extractGmailMessage(msg)
	assert.Error(t, err)
}

func TestExtractMissingHTMLPart(t *testing.T) {
	msg := fullMessage()
	msg.Payload.Parts = msg.Payload.Parts[:1] // text/plain only

	_, err := extractGmailMessage(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text/html")
}

func TestExtractBadBodyEncoding(t *testing.T) {
	msg := fullMessage()
	msg.Payload.Parts[1].Body.Data = "%%% not base64 %%%"

	_, err := extractGmailMessage(msg)
	assert.Error(t, err)
}

func TestUnreadQuery(t *testing.T) {
	assert.Equal(t, "is:unread", unreadQuery(""))
	// millis watermark is truncated to whole seconds for the after: operator
	assert.Equal(t, "is:unread after:1700000000", unreadQuery("1700000000123"))
}
