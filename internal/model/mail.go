package model

import "time"

// Mail represents one ingested mailbox message. The Gmail message id is the
// dedup key; Timestamp holds the provider's internalDate (epoch millis as
// decimal text) and doubles as the ingestion watermark column.
type Mail struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID      string    `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Timestamp      string    `json:"timestamp" gorm:"type:varchar(32);not null;index"`
	From           string    `json:"from" gorm:"type:varchar(512);column:from_addr"`
	Subject        string    `json:"subject" gorm:"type:varchar(1024)"`
	SentOnTelegram bool      `json:"sent_on_telegram" gorm:"default:false;index"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for Mail
func (Mail) TableName() string {
	return "mails"
}

// NewMail carries the extracted fields of a message that has been rendered but
// not yet persisted.
type NewMail struct {
	MessageID string
	Timestamp string
	From      string
	Subject   string
}
