package deliver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"mail-courier/internal/model"
)

// ErrMissingArtifact marks a persisted record whose PDF is absent from the
// staging directory. That means a prior run recorded metadata without
// completing the render, an inconsistency worth surfacing loudly.
var ErrMissingArtifact = errors.New("artifact file missing")

// Store is the slice of the mail store the delivery pipeline needs.
type Store interface {
	Unsent() ([]model.Mail, error)
	MarkSent(ids []uint) error
}

// Sender delivers one artifact to the destination chat.
type Sender interface {
	SendDocument(ctx context.Context, path, displayName string) error
}

// Artifacts resolves a message id to its artifact path.
type Artifacts interface {
	ArtifactPath(messageID string) string
}

// Summary is the per-run audit trail of the delivery stage. Send failures and
// missing artifacts are counted apart: the former are transient chat errors,
// the latter point at an incomplete prior run.
type Summary struct {
	Unsent           int
	Sent             int
	SendFailures     int
	MissingArtifacts int
}

// Pipeline delivers every persisted, unsent artifact oldest-first. A failed
// send skips that record for this run; successes are marked sent in one batch
// at the end, so a single bad send never blocks already-deliverable mail.
type Pipeline struct {
	store     Store
	sender    Sender
	artifacts Artifacts
}

func New(store Store, sender Sender, artifacts Artifacts) *Pipeline {
	return &Pipeline{
		store:     store,
		sender:    sender,
		artifacts: artifacts,
	}
}

// Run executes one delivery pass. Missing artifacts leave their records
// unsent and are returned as an error naming each message id, after the rest
// of the batch has been processed and marked.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	unsent, err := p.store.Unsent()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Unsent: len(unsent)}
	logrus.Infof("Delivering %d unsent mails", len(unsent))

	var sentIDs []uint
	var missing []error
	for _, mail := range unsent {
		path := p.artifacts.ArtifactPath(mail.MessageID)
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, fmt.Errorf("message %s: %w (%s)", mail.MessageID, ErrMissingArtifact, path))
			summary.MissingArtifacts++
			continue
		}

		if err := p.sender.SendDocument(ctx, path, displayName(mail)); err != nil {
			logrus.Warnf("Failed to send mail %s: %v", mail.MessageID, err)
			summary.SendFailures++
			continue
		}
		sentIDs = append(sentIDs, mail.ID)
		summary.Sent++
	}

	if err := p.store.MarkSent(sentIDs); err != nil {
		return nil, err
	}

	logrus.Infof("Delivery done: %d unsent, %d sent, %d send failures, %d missing artifacts",
		summary.Unsent, summary.Sent, summary.SendFailures, summary.MissingArtifacts)

	if len(missing) > 0 {
		return summary, errors.Join(missing...)
	}
	return summary, nil
}

// displayName is the filename shown in the chat. The subject is the natural
// choice; fall back to the message id for subjectless mail.
func displayName(mail model.Mail) string {
	if mail.Subject != "" {
		return mail.Subject
	}
	return fmt.Sprintf("mail-%s", mail.MessageID)
}
