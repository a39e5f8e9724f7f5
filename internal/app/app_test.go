package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mail-courier/internal/deliver"
	"mail-courier/internal/ingest"
	"mail-courier/internal/mailbox"
	"mail-courier/internal/metrics"
	"mail-courier/internal/model"
	"mail-courier/internal/store"
)

type fakeMailbox struct {
	ids   []string
	mails map[string]*mailbox.Mail
}

func (f *fakeMailbox) ListUnread(ctx context.Context, after string, max int64) ([]string, error) {
	return f.ids, nil
}

func (f *fakeMailbox) Fetch(ctx context.Context, id string) (*mailbox.Mail, error) {
	m, ok := f.mails[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return m, nil
}

func (f *fakeMailbox) Close() error { return nil }

// fileRenderer writes a placeholder artifact, standing in for the browser
type fileRenderer struct {
	dir string
}

func (r fileRenderer) ArtifactPath(messageID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("mail-%s.pdf", messageID))
}

func (r fileRenderer) Render(ctx context.Context, html []byte, messageID string) (string, error) {
	path := r.ArtifactPath(messageID)
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type recordingSender struct {
	sent []string
}

func (s *recordingSender) SendDocument(ctx context.Context, path, displayName string) error {
	s.sent = append(s.sent, displayName)
	return nil
}

func TestRunPassEndToEnd(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Mail{}))

	st := store.New(db)
	mb := &fakeMailbox{
		ids: []string{"m1", "m2"},
		mails: map[string]*mailbox.Mail{
			"m1": {MessageID: "m1", Timestamp: "100", From: "a@example.com", Subject: "first", HTML: []byte("<p>1</p>")},
			"m2": {MessageID: "m2", Timestamp: "200", From: "b@example.com", Subject: "second", HTML: []byte("<p>2</p>")},
		},
	}
	renderer := fileRenderer{dir: t.TempDir()}
	sender := &recordingSender{}
	m := metrics.New()

	ingestion := ingest.New(st, mb, renderer, 30)
	delivery := deliver.New(st, sender, renderer)

	require.NoError(t, runPass(context.Background(), ingestion, delivery, m))

	// both messages delivered oldest-first and marked sent
	assert.Equal(t, []string{"first", "second"}, sender.sent)
	unsent, err := st.Unsent()
	require.NoError(t, err)
	assert.Empty(t, unsent)

	watermark, err := st.Watermark()
	require.NoError(t, err)
	assert.Equal(t, "200", watermark)

	// a second pass over the unchanged mailbox is a no-op
	require.NoError(t, runPass(context.Background(), ingestion, delivery, m))
	assert.Equal(t, []string{"first", "second"}, sender.sent)

	var count int64
	require.NoError(t, db.Model(&model.Mail{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
