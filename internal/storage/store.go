package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/smilee3998/partyroom-server/internal/models"
)

// ErrNotFound is returned by all Get operations when the record is absent,
// regardless of backing store.
var ErrNotFound = errors.New("record not found")

var (
	storeInstance Store
	storeOnce     sync.Once
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// RoomFilter narrows the public room listing.
type RoomFilter struct {
	Area     string
	District string
	NumUsers int
}

// Store defines the interface for storage operations
type Store interface {
	// User operations
	CreateUser(user *models.User) (*models.User, error)
	GetUser(id uint) (*models.User, error)
	GetUserByUID(uid string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByPhone(phone string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uint) error

	// Favourites operations
	GetFavourites(userID uint) ([]*models.PartyRoom, error)
	AddFavourite(userID, roomID uint) error
	RemoveFavourite(userID, roomID uint) error
	IsFavourite(userID, roomID uint) (bool, error)
	CountFavourites(userID uint) (int64, error)

	// Room operations
	CreateRoom(room *models.PartyRoom) (*models.PartyRoom, error)
	GetRoomByUID(uid string) (*models.PartyRoom, error)
	ListRooms(filter *RoomFilter, offset, limit int) ([]*models.PartyRoom, int64, error)
	UpdateRoom(room *models.PartyRoom) error

	// Booking operations
	CreateBooking(booking *models.Booking) (*models.Booking, error)
	GetBookingByUID(uid string) (*models.Booking, error)
	GetBlockingBookings(roomID uint) ([]*models.Booking, error)
	GetBlockingBookingsOverlapping(roomID uint, start, end time.Time) ([]*models.Booking, error)
	GetBookingsByUser(userID uint) ([]*models.Booking, error)
	UpdateBookingStatus(uid string, status string) error
	GetLatestStartedBooking(userID, roomID uint, statuses []string) (*models.Booking, error)

	// OTP operations
	CreateOTP(otp *models.OTP) (*models.OTP, error)
	GetOTPByUID(uid string) (*models.OTP, error)
	GetOTPByUserPurpose(userID uint, purpose string) (*models.OTP, error)
	UpdateOTP(otp *models.OTP) error

	// Review operations
	CreateReview(review *models.Review) (*models.Review, error)
	GetReviewsByRoom(roomID uint, offset, limit int) ([]*models.Review, int64, error)
	GetReviewByBooking(bookingID uint) (*models.Review, error)
	GetRoomRating(roomID uint) (float64, error)

	// Transaction runs fn against a store view whose writes commit only if
	// fn returns nil. The reservation path relies on this to make the
	// conflict check and the insert atomic.
	Transaction(fn func(Store) error) error
}
