package models

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxFavourites caps how many rooms a user can bookmark.
const MaxFavourites = 1000

var phoneRe = regexp.MustCompile(`^\+[0-9]{7,15}$`)

// User is a platform account. Roomers own rooms, everyone else books them.
type User struct {
	gorm.Model
	UID          string `json:"uid" gorm:"uniqueIndex;size:36"`
	Username     string `json:"username" gorm:"uniqueIndex;size:20"`
	PasswordHash string `json:"-" gorm:"not null"`
	PhoneNumber  string `json:"phone_number" gorm:"uniqueIndex"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	IsRoomer     bool   `json:"is_roomer" gorm:"default:false"`
	IsVerified   bool   `json:"is_verified" gorm:"default:false"`
	IsStaff      bool   `json:"-" gorm:"default:false"`
	IconNum      int    `json:"icon_num"`

	// Bumped whenever the password changes so outstanding tokens die.
	TokenVersion int `json:"-" gorm:"default:0"`

	Favourites []*PartyRoom `json:"-" gorm:"many2many:user_favourites"`
}

// BeforeCreate assigns the opaque uid and a random profile icon.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UID == "" {
		u.UID = uuid.NewString()
	}
	if u.IconNum == 0 {
		u.IconNum = rand.Intn(10) + 1
	}
	return nil
}

// ValidPhoneNumber reports whether the number looks like an E.164 number.
func ValidPhoneNumber(phone string) bool {
	return phoneRe.MatchString(phone)
}

// ValidEmail is a light format check; real validation is the OTP round trip.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	dot := strings.LastIndex(email, ".")
	return at > 0 && dot > at+1 && dot < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// UserRegistration is the request body for account creation.
type UserRegistration struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	IsRoomer    bool   `json:"is_roomer"`
}
