package model

import "time"

// PaymentMethod is one configured gateway instance. The HMAC key pair
// supports zero-downtime secret rotation: webhook signatures are accepted
// against the current key and, when set, the previous one.
type PaymentMethod struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	MerchantAccount string    `gorm:"size:100;not null;uniqueIndex" json:"merchant_account"`
	APIKey          string    `gorm:"size:255;not null" json:"-"`
	ClientKey       string    `gorm:"size:255" json:"client_key"`
	HMACKey         string    `gorm:"size:255;not null" json:"-"`
	PreviousHMACKey *string   `gorm:"size:255" json:"-"`
	TestMode        bool      `gorm:"not null;default:true" json:"test_mode"`
	AutoCapture     bool      `gorm:"not null;default:false" json:"auto_capture"`
	CreatedAt       time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// HMACKeys returns the candidate webhook signing keys, current key first.
func (m *PaymentMethod) HMACKeys() []string {
	keys := []string{m.HMACKey}
	if m.PreviousHMACKey != nil && *m.PreviousHMACKey != "" {
		keys = append(keys, *m.PreviousHMACKey)
	}
	return keys
}
