package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/utils"
)

// MemoryStore holds all data in memory. Used by the tests and when
// USE_MEMORY_STORE=true (local development without postgres).
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users      map[uint]*models.User
	rooms      map[uint]*models.PartyRoom
	bookings   map[uint]*models.Booking
	otps       map[uint]*models.OTP
	reviews    map[uint]*models.Review
	favourites map[uint]map[uint]bool // userID -> set of roomIDs

	userCounter    uint
	roomCounter    uint
	bookingCounter uint
	otpCounter     uint
	reviewCounter  uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[uint]*models.User),
		rooms:      make(map[uint]*models.PartyRoom),
		bookings:   make(map[uint]*models.Booking),
		otps:       make(map[uint]*models.OTP),
		reviews:    make(map[uint]*models.Review),
		favourites: make(map[uint]map[uint]bool),
	}
}

// User operations

func (m *MemoryStore) CreateUser(user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.userCounter++
	user.ID = m.userCounter
	if user.UID == "" {
		user.UID = uuid.NewString()
	}
	if user.IconNum == 0 {
		user.IconNum = 1
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	m.users[user.ID] = user
	m.favourites[user.ID] = make(map[uint]bool)
	return user, nil
}

func (m *MemoryStore) GetUser(id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return user, nil
}

func (m *MemoryStore) GetUserByUID(uid string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.UID == uid {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByUsername(username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByPhone(phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.PhoneNumber == phone {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; !exists {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStore) DeleteUser(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[id]; !exists {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.favourites, id)
	return nil
}

// Favourites operations

func (m *MemoryStore) GetFavourites(userID uint) ([]*models.PartyRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rooms []*models.PartyRoom
	for roomID := range m.favourites[userID] {
		if room, ok := m.rooms[roomID]; ok {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (m *MemoryStore) AddFavourite(userID, roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.favourites[userID] == nil {
		m.favourites[userID] = make(map[uint]bool)
	}
	m.favourites[userID][roomID] = true
	return nil
}

func (m *MemoryStore) RemoveFavourite(userID, roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.favourites[userID], roomID)
	return nil
}

func (m *MemoryStore) IsFavourite(userID, roomID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.favourites[userID][roomID], nil
}

func (m *MemoryStore) CountFavourites(userID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.favourites[userID])), nil
}

// Room operations

func (m *MemoryStore) CreateRoom(room *models.PartyRoom) (*models.PartyRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roomCounter++
	room.ID = m.roomCounter
	if room.UID == "" {
		room.UID = utils.GenerateRoomUID()
		for m.roomUIDTakenLocked(room.UID) {
			room.UID = utils.GenerateRoomUID()
		}
	}
	room.CreatedAt = time.Now()
	room.UpdatedAt = time.Now()

	m.rooms[room.ID] = room
	return room, nil
}

func (m *MemoryStore) roomUIDTakenLocked(uid string) bool {
	for _, room := range m.rooms {
		if room.UID == uid {
			return true
		}
	}
	return false
}

func (m *MemoryStore) GetRoomByUID(uid string) (*models.PartyRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, room := range m.rooms {
		if room.UID == uid {
			return room, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListRooms(filter *RoomFilter, offset, limit int) ([]*models.PartyRoom, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.PartyRoom
	for _, room := range m.rooms {
		if filter != nil {
			if filter.Area != "" && room.Area != filter.Area {
				continue
			}
			if filter.District != "" && room.District != filter.District {
				continue
			}
			if filter.NumUsers > 0 && (filter.NumUsers < room.MinNumUsers || filter.NumUsers > room.MaxNumUsers) {
				continue
			}
		}
		matched = append(matched, room)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *MemoryStore) UpdateRoom(room *models.PartyRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.ID]; !exists {
		return ErrNotFound
	}
	room.UpdatedAt = time.Now()
	m.rooms[room.ID] = room
	return nil
}

// Booking operations

func (m *MemoryStore) CreateBooking(booking *models.Booking) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bookingCounter++
	booking.ID = m.bookingCounter
	if booking.UID == "" {
		booking.UID = uuid.NewString()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()

	m.bookings[booking.ID] = booking
	return booking, nil
}

func (m *MemoryStore) GetBookingByUID(uid string) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, booking := range m.bookings {
		if booking.UID == uid {
			m.attachBookingRoomLocked(booking)
			return booking, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetBlockingBookings(roomID uint) ([]*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bookings []*models.Booking
	for _, booking := range m.bookings {
		if booking.RoomID == roomID && booking.Blocks() {
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (m *MemoryStore) GetBlockingBookingsOverlapping(roomID uint, start, end time.Time) ([]*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bookings []*models.Booking
	for _, booking := range m.bookings {
		if booking.RoomID == roomID && booking.Blocks() && booking.Overlaps(start, end) {
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].StartTime.Before(bookings[j].StartTime) })
	return bookings, nil
}

func (m *MemoryStore) GetBookingsByUser(userID uint) ([]*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bookings []*models.Booking
	for _, booking := range m.bookings {
		if booking.UserID == userID {
			m.attachBookingRoomLocked(booking)
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].StartTime.Before(bookings[j].StartTime) })
	return bookings, nil
}

func (m *MemoryStore) UpdateBookingStatus(uid string, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, booking := range m.bookings {
		if booking.UID == uid {
			booking.Status = status
			booking.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetLatestStartedBooking(userID, roomID uint, statuses []string) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var latest *models.Booking
	for _, booking := range m.bookings {
		if booking.UserID != userID || booking.RoomID != roomID {
			continue
		}
		if booking.StartTime.After(now) {
			continue
		}
		if !containsStatus(statuses, booking.Status) {
			continue
		}
		if latest == nil || booking.StartTime.After(latest.StartTime) {
			latest = booking
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) attachBookingRoomLocked(booking *models.Booking) {
	if booking.Room == nil {
		booking.Room = m.rooms[booking.RoomID]
	}
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// OTP operations

func (m *MemoryStore) CreateOTP(otp *models.OTP) (*models.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.otpCounter++
	otp.ID = m.otpCounter
	if otp.UID == "" {
		otp.UID = uuid.NewString()
	}
	otp.CreatedAt = time.Now()
	otp.UpdatedAt = time.Now()

	m.otps[otp.ID] = otp
	return otp, nil
}

func (m *MemoryStore) GetOTPByUID(uid string) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, otp := range m.otps {
		if otp.UID == uid {
			return otp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetOTPByUserPurpose(userID uint, purpose string) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, otp := range m.otps {
		if otp.UserID == userID && otp.Purpose == purpose {
			return otp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateOTP(otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.otps[otp.ID]; !exists {
		return ErrNotFound
	}
	otp.UpdatedAt = time.Now()
	m.otps[otp.ID] = otp
	return nil
}

// Review operations

func (m *MemoryStore) CreateReview(review *models.Review) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reviewCounter++
	review.ID = m.reviewCounter
	if review.UID == "" {
		review.UID = uuid.NewString()
	}
	review.CreatedAt = time.Now()
	review.UpdatedAt = time.Now()

	m.reviews[review.ID] = review
	return review, nil
}

func (m *MemoryStore) GetReviewsByRoom(roomID uint, offset, limit int) ([]*models.Review, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Review
	for _, review := range m.reviews {
		if review.RoomID == roomID {
			matched = append(matched, review)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *MemoryStore) GetReviewByBooking(bookingID uint) (*models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, review := range m.reviews {
		if review.BookingID == bookingID {
			return review, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetRoomRating(roomID uint) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum, count int
	for _, review := range m.reviews {
		if review.RoomID == roomID {
			sum += review.Rating
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}

// Transaction serializes the callback behind a single write lock. The maps
// are mutated in place, so a failing callback is not rolled back; callers
// only rely on mutual exclusion, which is what the reservation path needs.
func (m *MemoryStore) Transaction(fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}
