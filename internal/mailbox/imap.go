package mailbox

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"

	"mail-courier/internal/config"
)

// IMAPClient implements Client against a plain IMAP mailbox. It exists for
// mailboxes without Gmail API access; the pipeline does not care which
// implementation it is handed.
//
// The underlying go-imap client must not be used from multiple goroutines,
// so every command holds mu; the pipeline's concurrent Fetch fan-out is
// serialized here.
type IMAPClient struct {
	client  *client.Client
	uidByID map[string]uint32
	mu      sync.Mutex
}

// NewIMAPClient connects and logs in to the IMAP server
func NewIMAPClient(cfg *config.GmailConfig) (*IMAPClient, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPClient{
		client:  c,
		uidByID: make(map[string]uint32),
	}, nil
}

// ListUnread searches INBOX for unseen messages after the watermark and
// returns their Message-ID headers. IMAP search is date-granular, so the
// watermark only bounds the search; the store-side dedup drops re-listed ids.
func (c *IMAPClient) ListUnread(ctx context.Context, after string, max int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.client.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if after != "" {
		millis, err := strconv.ParseInt(after, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid watermark %q: %w", after, err)
		}
		criteria.Since = time.UnixMilli(millis)
	}

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if int64(len(uids)) > max {
		uids = uids[:max]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	var ids []string
	for msg := range messages {
		if msg.Envelope == nil || msg.Envelope.MessageId == "" {
			continue
		}
		c.uidByID[msg.Envelope.MessageId] = msg.Uid
		ids = append(ids, msg.Envelope.MessageId)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch envelopes: %w", err)
	}
	return ids, nil
}

// Fetch retrieves one message body by the Message-ID recorded during the
// preceding ListUnread call.
func (c *IMAPClient) Fetch(ctx context.Context, id string) (*Mail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uid, ok := c.uidByID[id]
	if !ok {
		return nil, fmt.Errorf("message %s was not listed in this session", id)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqset, items, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if msg == nil || msg.Envelope == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}

	html, err := extractIMAPHTML(msg, section)
	if err != nil {
		return nil, fmt.Errorf("failed to extract message %s: %w", id, err)
	}

	from := ""
	if len(msg.Envelope.From) > 0 {
		from = msg.Envelope.From[0].Address()
	}

	return &Mail{
		MessageID: id,
		Timestamp: strconv.FormatInt(msg.Envelope.Date.UnixMilli(), 10),
		From:      from,
		Subject:   msg.Envelope.Subject,
		HTML:      html,
	}, nil
}

// extractIMAPHTML parses the raw message body and returns the first text/html
// part.
func extractIMAPHTML(msg *imap.Message, section *imap.BodySectionName) ([]byte, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("no body section in fetch response")
	}

	entity, err := message.Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read part: %w", err)
			}
			if strings.Contains(p.Header.Get("Content-Type"), "text/html") {
				return io.ReadAll(p.Body)
			}
		}
		return nil, fmt.Errorf("no text/html part")
	}

	if strings.Contains(entity.Header.Get("Content-Type"), "text/html") {
		return io.ReadAll(entity.Body)
	}
	return nil, fmt.Errorf("no text/html part")
}

// Close logs out from the IMAP server
func (c *IMAPClient) Close() error {
	return c.client.Logout()
}
