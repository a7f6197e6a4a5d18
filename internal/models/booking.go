package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking statuses. A reservation is created as confirm; the other states
// are reached through administrative transitions.
const (
	BookingStatusPending    = "pending"
	BookingStatusTransition = "transition"
	BookingStatusPaid       = "paid"
	BookingStatusConfirm    = "confirm"
	BookingStatusRejected   = "rejected"
	BookingStatusCanceled   = "canceled"
	BookingStatusOutdated   = "outdated"
	BookingStatusNotOpen    = "not_open"
)

// BookingBlockingStatuses occupy the room calendar: a new reservation must
// not overlap any booking in one of these states.
var BookingBlockingStatuses = []string{
	BookingStatusPending,
	BookingStatusTransition,
	BookingStatusPaid,
	BookingStatusConfirm,
}

// BookingReviewableStatuses are the states in which the stay is considered
// to have happened, making the booking eligible for a review.
var BookingReviewableStatuses = []string{
	BookingStatusPaid,
	BookingStatusConfirm,
}

// MaxBookingNumUsers bounds the party size of a single booking.
const MaxBookingNumUsers = 999

// Booking reserves a room for the half-open interval [StartTime, EndTime).
type Booking struct {
	gorm.Model
	UID        string     `json:"uid" gorm:"uniqueIndex;size:36"`
	RoomID     uint       `json:"-" gorm:"index"`
	Room       *PartyRoom `json:"-" gorm:"foreignKey:RoomID"`
	UserID     uint       `json:"-" gorm:"index"`
	User       *User      `json:"-" gorm:"foreignKey:UserID"`
	StartTime  time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime    time.Time  `json:"end_time" gorm:"not null;index"`
	Status     string     `json:"status" gorm:"size:10;default:pending"`
	NumUsers   int        `json:"num_users" gorm:"default:1"`
	UnitPrice  int        `json:"unit_price"`
	TotalPrice int        `json:"total_price"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.UID == "" {
		b.UID = uuid.NewString()
	}
	return nil
}

// Blocks reports whether this booking occupies the room calendar.
func (b *Booking) Blocks() bool {
	for _, s := range BookingBlockingStatuses {
		if b.Status == s {
			return true
		}
	}
	return false
}

// Overlaps reports whether [start, end) intersects this booking's interval.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// TimeSlot is the projection returned by the availability query.
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
