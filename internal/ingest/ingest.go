package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"mail-courier/internal/mailbox"
	"mail-courier/internal/model"
)

// Store is the slice of the mail store the ingestion pipeline needs.
type Store interface {
	Watermark() (string, error)
	FindByMessageIDs(ids []string) ([]model.Mail, error)
	InsertMany(newMails []model.NewMail) error
}

// Renderer produces the PDF artifact for one message.
type Renderer interface {
	Render(ctx context.Context, html []byte, messageID string) (string, error)
}

// Skip records one message dropped from the batch and why.
type Skip struct {
	MessageID string
	Reason    error
}

// Summary is the per-run audit trail of the ingestion stage.
type Summary struct {
	Found      int
	Duplicates int
	New        int
	Rendered   int
	Persisted  int
	Skipped    []Skip
}

// Pipeline ingests new mailbox messages: watermark, list, dedup, fetch,
// render, persist. Per-message failures skip that message; listing, store
// reads and the final persist are fatal to the run.
type Pipeline struct {
	store       Store
	mailbox     mailbox.Client
	renderer    Renderer
	maxMessages int64
}

func New(store Store, mb mailbox.Client, renderer Renderer, maxMessages int64) *Pipeline {
	return &Pipeline{
		store:       store,
		mailbox:     mb,
		renderer:    renderer,
		maxMessages: maxMessages,
	}
}

// Run executes one ingestion pass. The returned summary is valid whenever the
// error is nil; skipped messages are reported in the summary, not the error.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	watermark, err := p.store.Watermark()
	if err != nil {
		return nil, err
	}

	ids, err := p.mailbox.ListUnread(ctx, watermark, p.maxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailbox: %w", err)
	}
	summary.Found = len(ids)
	logrus.Infof("Found %d candidate messages", len(ids))

	newIDs, err := p.filterKnown(ids)
	if err != nil {
		return nil, err
	}
	summary.Duplicates = len(ids) - len(newIDs)
	summary.New = len(newIDs)
	logrus.Infof("%d new messages after dedup (%d already stored)", summary.New, summary.Duplicates)

	if len(newIDs) == 0 {
		return summary, nil
	}

	mails := p.fetchAll(ctx, newIDs, summary)

	records := make([]model.NewMail, 0, len(mails))
	for _, m := range mails {
		if _, err := p.renderer.Render(ctx, m.HTML, m.MessageID); err != nil {
			logrus.Warnf("Skipping message %s: %v", m.MessageID, err)
			summary.Skipped = append(summary.Skipped, Skip{MessageID: m.MessageID, Reason: err})
			continue
		}
		summary.Rendered++
		records = append(records, model.NewMail{
			MessageID: m.MessageID,
			Timestamp: m.Timestamp,
			From:      m.From,
			Subject:   m.Subject,
		})
	}

	if len(records) == 0 {
		logrus.Info("No messages survived fetch and render")
		return summary, nil
	}

	if err := p.store.InsertMany(records); err != nil {
		return nil, err
	}
	summary.Persisted = len(records)

	logrus.Infof("Ingestion done: %d found, %d new, %d rendered, %d persisted, %d skipped",
		summary.Found, summary.New, summary.Rendered, summary.Persisted, len(summary.Skipped))
	return summary, nil
}

// filterKnown drops ids that are already stored. The external message id is
// the sole identity key; content differences do not matter. This completes
// before any body fetch is issued.
func (p *Pipeline) filterKnown(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	known, err := p.store.FindByMessageIDs(ids)
	if err != nil {
		return nil, err
	}

	knownIDs := make(map[string]struct{}, len(known))
	for _, m := range known {
		knownIDs[m.MessageID] = struct{}{}
	}

	var newIDs []string
	for _, id := range ids {
		if _, ok := knownIDs[id]; !ok {
			newIDs = append(newIDs, id)
		}
	}
	return newIDs, nil
}

// fetchAll fetches full message bodies concurrently, one goroutine per id;
// the fan-out is already bounded by the listing cap. A failed fetch skips
// that message and never aborts the batch.
func (p *Pipeline) fetchAll(ctx context.Context, ids []string, summary *Summary) []*mailbox.Mail {
	type result struct {
		mail *mailbox.Mail
		err  error
	}

	results := make([]result, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			m, err := p.mailbox.Fetch(ctx, id)
			results[i] = result{mail: m, err: err}
		}(i, id)
	}
	wg.Wait()

	mails := make([]*mailbox.Mail, 0, len(ids))
	for i, res := range results {
		if res.err != nil {
			logrus.Warnf("Skipping message %s: %v", ids[i], res.err)
			summary.Skipped = append(summary.Skipped, Skip{MessageID: ids[i], Reason: res.err})
			continue
		}
		mails = append(mails, res.mail)
	}
	return mails
}
