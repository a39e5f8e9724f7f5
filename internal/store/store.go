package store

import (
	"fmt"

	"gorm.io/gorm"

	"mail-courier/internal/model"
)

// Store is the only mutator of mail records. It backs both pipelines: the
// ingestion side uses the watermark and dedup lookups, the delivery side the
// unsent queue and the sent flag.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Watermark returns the maximum stored timestamp, or "" when the store is
// empty. Timestamps are epoch-millis decimal text, so string ordering matches
// numeric ordering for same-width values from the provider.
func (s *Store) Watermark() (string, error) {
	var mail model.Mail
	result := s.db.Select("timestamp").Order("timestamp DESC").First(&mail)
	if result.Error == gorm.ErrRecordNotFound {
		return "", nil
	}
	if result.Error != nil {
		return "", fmt.Errorf("failed to read watermark: %w", result.Error)
	}
	return mail.Timestamp, nil
}

// FindByMessageIDs returns the stored records whose message id is in ids.
// An empty result is valid; it only means none of the ids are known yet.
func (s *Store) FindByMessageIDs(ids []string) ([]model.Mail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var mails []model.Mail
	result := s.db.Where("message_id IN ?", ids).Find(&mails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find mails by message ids: %w", result.Error)
	}
	return mails, nil
}

// InsertMany persists the given batch in a single create call.
func (s *Store) InsertMany(newMails []model.NewMail) error {
	if len(newMails) == 0 {
		return nil
	}
	mails := make([]model.Mail, 0, len(newMails))
	for _, nm := range newMails {
		mails = append(mails, model.Mail{
			MessageID:      nm.MessageID,
			Timestamp:      nm.Timestamp,
			From:           nm.From,
			Subject:        nm.Subject,
			SentOnTelegram: false,
		})
	}
	result := s.db.Create(&mails)
	if result.Error != nil {
		return fmt.Errorf("failed to insert mails: %w", result.Error)
	}
	return nil
}

// Unsent returns all undelivered records, oldest first, so the recipient sees
// mail in chronological order.
func (s *Store) Unsent() ([]model.Mail, error) {
	var mails []model.Mail
	result := s.db.Where("sent_on_telegram = ?", false).Order("timestamp ASC").Find(&mails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch unsent mails: %w", result.Error)
	}
	return mails, nil
}

// MarkSent flips the sent flag for exactly the given record ids in one batch
// update. The flag never transitions back.
func (s *Store) MarkSent(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	result := s.db.Model(&model.Mail{}).Where("id IN ?", ids).Update("sent_on_telegram", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark mails as sent: %w", result.Error)
	}
	return nil
}
