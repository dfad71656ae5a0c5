package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing status of a received notification
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
	WebhookStatusDead       WebhookStatus = "dead"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookDelivery is the audit record for one received gateway notification
// item. Deduplicated on (psp reference, event code, success): the gateway
// redelivers identical items until it sees an accepting response.
type WebhookDelivery struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID            string        `gorm:"size:64;not null;uniqueIndex" json:"event_id"`
	EventCode          string        `gorm:"size:100;not null;index;uniqueIndex:idx_webhook_deliveries_dedup" json:"event_code"`
	PSPReference       string        `gorm:"column:psp_reference;size:255;not null;uniqueIndex:idx_webhook_deliveries_dedup" json:"psp_reference"`
	Success            bool          `gorm:"not null;uniqueIndex:idx_webhook_deliveries_dedup" json:"success"`
	MerchantReference  string        `gorm:"size:255;index" json:"merchant_reference"`
	Status             WebhookStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	Payload            JSONB         `gorm:"type:jsonb;not null" json:"payload"`
	ProcessingAttempts int           `gorm:"default:0" json:"processing_attempts"`
	LastError          *string       `json:"last_error,omitempty"`
	CreatedAt          time.Time     `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
