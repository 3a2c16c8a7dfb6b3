package model

import "time"

// StaffSubscription holds a staff device's browser push subscription.
// Kinds is a comma separated list of alert kinds ("assistance", "emergency").
type StaffSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Kinds     string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
