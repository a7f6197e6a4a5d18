package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTP purposes. The two-letter shortcuts are the wire values the client
// already sends.
const (
	OTPPurposeForgotPassword = "FP"
	OTPPurposeVerifyEmail    = "VE"
	OTPPurposeVerifyIdentity = "VI"
)

// OTP statuses. used and failed are terminal; a refresh re-issues the code
// and expiry on the same record rather than transitioning the status graph.
const (
	OTPStatusUnused = "unused"
	OTPStatusUsed   = "used"
	OTPStatusFailed = "failed"
)

const (
	// OTPLifetime is how long a code stays valid after issue or refresh.
	OTPLifetime = 5 * time.Minute
	// OTPResendCooldown is the minimum gap between deliveries of one record.
	OTPResendCooldown = 5 * time.Minute
)

// ValidOTPPurpose reports whether the wire value names a known purpose.
func ValidOTPPurpose(p string) bool {
	return p == OTPPurposeForgotPassword || p == OTPPurposeVerifyEmail || p == OTPPurposeVerifyIdentity
}

// OTP is a single-use 6-digit code bound to one user and purpose.
// At most one record exists per (user, purpose); re-requests refresh it.
type OTP struct {
	gorm.Model
	UID         string    `json:"uid" gorm:"uniqueIndex;size:36"`
	Code        string    `json:"-" gorm:"size:6;not null"`
	UserID      uint      `json:"-" gorm:"index:idx_otp_user_purpose,unique"`
	User        *User     `json:"-" gorm:"foreignKey:UserID"`
	Purpose     string    `json:"otp_type" gorm:"size:2;index:idx_otp_user_purpose,unique"`
	Status      string    `json:"-" gorm:"size:6;default:unused"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"not null"`
	LastRequest time.Time `json:"-" gorm:"not null"`
}

func (o *OTP) BeforeCreate(tx *gorm.DB) error {
	if o.UID == "" {
		o.UID = uuid.NewString()
	}
	return nil
}

// IsExpired evaluates lazy expiry against the given clock; there is no
// background sweeper.
func (o *OTP) IsExpired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}

// IsActive reports whether the record can still be consumed.
func (o *OTP) IsActive(now time.Time) bool {
	return o.Status == OTPStatusUnused && !o.IsExpired(now)
}

// AllowResend requires the cooldown to have strictly elapsed.
func (o *OTP) AllowResend(now time.Time) bool {
	return now.Sub(o.LastRequest) > OTPResendCooldown
}
