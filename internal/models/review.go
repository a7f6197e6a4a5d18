package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxReviewRating         = 5
	MaxReviewCommentsLength = 1000
)

// Review is a post-stay room review. Each review is tied to the booking
// that qualifies it; one review per booking.
type Review struct {
	gorm.Model
	UID        string     `json:"uid" gorm:"uniqueIndex;size:36"`
	RoomID     uint       `json:"-" gorm:"index"`
	Room       *PartyRoom `json:"-" gorm:"foreignKey:RoomID"`
	ReviewerID uint       `json:"-" gorm:"index"`
	Reviewer   *User      `json:"-" gorm:"foreignKey:ReviewerID"`
	BookingID  uint       `json:"-" gorm:"uniqueIndex"`
	Booking    *Booking   `json:"-" gorm:"foreignKey:BookingID"`
	Rating     int        `json:"rating"`
	Comments   string     `json:"comments" gorm:"size:1000"`
	Recommend  bool       `json:"recommend" gorm:"default:true"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.UID == "" {
		r.UID = uuid.NewString()
	}
	return nil
}
