package models

import "time"

type OtpState string

const (
	OtpIssued    OtpState = "Issued"
	OtpConsumed  OtpState = "Consumed"
	OtpExpired   OtpState = "Expired"
	OtpExhausted OtpState = "Exhausted"
)

// OtpChallenge is one issued code. A newer send supersedes older unconsumed rows.
type OtpChallenge struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Phone             string     `json:"phone" gorm:"not null;size:20;index"`
	Code              string     `json:"-" gorm:"not null;size:6"`
	IssuedAt          time.Time  `json:"issued_at" gorm:"not null"`
	ExpiresAt         time.Time  `json:"expires_at" gorm:"not null;index"`
	ResendAt          time.Time  `json:"resend_at" gorm:"not null"`
	ConsumedAt        *time.Time `json:"consumed_at,omitempty"`
	AttemptsRemaining int        `json:"attempts_remaining" gorm:"not null"`
	Superseded        bool       `json:"superseded" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
}

func (OtpChallenge) TableName() string {
	return "otp_challenges"
}

// StateAt reports the challenge state at the given time. Consumed wins over expiry.
func (c *OtpChallenge) StateAt(now time.Time) OtpState {
	switch {
	case c.ConsumedAt != nil:
		return OtpConsumed
	case c.AttemptsRemaining <= 0:
		return OtpExhausted
	case !now.Before(c.ExpiresAt):
		return OtpExpired
	default:
		return OtpIssued
	}
}

// CooldownRemaining is zero once a resend is allowed.
func (c *OtpChallenge) CooldownRemaining(now time.Time) time.Duration {
	if now.Before(c.ResendAt) {
		return c.ResendAt.Sub(now)
	}
	return 0
}
