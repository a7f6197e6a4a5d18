package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/utils"
)

// DatabaseStore backs the Store interface with postgres via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open gorm connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// User operations

func (d *DatabaseStore) CreateUser(user *models.User) (*models.User, error) {
	if err := d.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DatabaseStore) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (d *DatabaseStore) GetUserByUID(uid string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (d *DatabaseStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("lower(email) = lower(?)", email).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (d *DatabaseStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (d *DatabaseStore) GetUserByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("phone_number = ?", phone).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (d *DatabaseStore) UpdateUser(user *models.User) error {
	return d.db.Save(user).Error
}

func (d *DatabaseStore) DeleteUser(id uint) error {
	result := d.db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Favourites operations

func (d *DatabaseStore) GetFavourites(userID uint) ([]*models.PartyRoom, error) {
	user := models.User{Model: gorm.Model{ID: userID}}
	var rooms []*models.PartyRoom
	if err := d.db.Model(&user).Order("id").Association("Favourites").Find(&rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (d *DatabaseStore) AddFavourite(userID, roomID uint) error {
	user := models.User{Model: gorm.Model{ID: userID}}
	room := models.PartyRoom{Model: gorm.Model{ID: roomID}}
	return d.db.Model(&user).Association("Favourites").Append(&room)
}

func (d *DatabaseStore) RemoveFavourite(userID, roomID uint) error {
	user := models.User{Model: gorm.Model{ID: userID}}
	room := models.PartyRoom{Model: gorm.Model{ID: roomID}}
	return d.db.Model(&user).Association("Favourites").Delete(&room)
}

func (d *DatabaseStore) IsFavourite(userID, roomID uint) (bool, error) {
	var count int64
	err := d.db.Table("user_favourites").
		Where("user_id = ? AND party_room_id = ?", userID, roomID).
		Count(&count).Error
	return count > 0, err
}

func (d *DatabaseStore) CountFavourites(userID uint) (int64, error) {
	user := models.User{Model: gorm.Model{ID: userID}}
	return d.db.Model(&user).Association("Favourites").Count(), nil
}

// Room operations

func (d *DatabaseStore) CreateRoom(room *models.PartyRoom) (*models.PartyRoom, error) {
	if room.UID == "" {
		// 3-letter codes clash eventually; retry a few times before giving up.
		for i := 0; i < 10; i++ {
			uid := utils.GenerateRoomUID()
			var count int64
			if err := d.db.Model(&models.PartyRoom{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
				return nil, err
			}
			if count == 0 {
				room.UID = uid
				break
			}
		}
		if room.UID == "" {
			return nil, errors.New("could not allocate a unique room uid")
		}
	}
	if err := d.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (d *DatabaseStore) GetRoomByUID(uid string) (*models.PartyRoom, error) {
	var room models.PartyRoom
	if err := d.db.Where("uid = ?", uid).First(&room).Error; err != nil {
		return nil, translateErr(err)
	}
	return &room, nil
}

func (d *DatabaseStore) ListRooms(filter *RoomFilter, offset, limit int) ([]*models.PartyRoom, int64, error) {
	query := d.db.Model(&models.PartyRoom{})
	if filter != nil {
		if filter.Area != "" {
			query = query.Where("area = ?", filter.Area)
		}
		if filter.District != "" {
			query = query.Where("district = ?", filter.District)
		}
		if filter.NumUsers > 0 {
			query = query.Where("min_num_users <= ? AND max_num_users >= ?", filter.NumUsers, filter.NumUsers)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []*models.PartyRoom
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("id").Offset(offset).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

func (d *DatabaseStore) UpdateRoom(room *models.PartyRoom) error {
	return d.db.Save(room).Error
}

// Booking operations

func (d *DatabaseStore) CreateBooking(booking *models.Booking) (*models.Booking, error) {
	if err := d.db.Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

func (d *DatabaseStore) GetBookingByUID(uid string) (*models.Booking, error) {
	var booking models.Booking
	if err := d.db.Preload("Room").Where("uid = ?", uid).First(&booking).Error; err != nil {
		return nil, translateErr(err)
	}
	return &booking, nil
}

func (d *DatabaseStore) GetBlockingBookings(roomID uint) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := d.db.
		Where("room_id = ? AND status IN ?", roomID, models.BookingBlockingStatuses).
		Order("id").
		Find(&bookings).Error
	return bookings, err
}

func (d *DatabaseStore) GetBlockingBookingsOverlapping(roomID uint, start, end time.Time) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := d.db.
		Where("room_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			roomID, models.BookingBlockingStatuses, end, start).
		Order("start_time").
		Find(&bookings).Error
	return bookings, err
}

func (d *DatabaseStore) GetBookingsByUser(userID uint) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := d.db.Preload("Room").
		Where("user_id = ?", userID).
		Order("start_time").
		Find(&bookings).Error
	return bookings, err
}

func (d *DatabaseStore) UpdateBookingStatus(uid string, status string) error {
	result := d.db.Model(&models.Booking{}).Where("uid = ?", uid).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) GetLatestStartedBooking(userID, roomID uint, statuses []string) (*models.Booking, error) {
	var booking models.Booking
	err := d.db.
		Where("user_id = ? AND room_id = ? AND status IN ? AND start_time <= ?",
			userID, roomID, statuses, time.Now()).
		Order("start_time DESC").
		First(&booking).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &booking, nil
}

// OTP operations

func (d *DatabaseStore) CreateOTP(otp *models.OTP) (*models.OTP, error) {
	if err := d.db.Create(otp).Error; err != nil {
		return nil, err
	}
	return otp, nil
}

func (d *DatabaseStore) GetOTPByUID(uid string) (*models.OTP, error) {
	var otp models.OTP
	if err := d.db.Where("uid = ?", uid).First(&otp).Error; err != nil {
		return nil, translateErr(err)
	}
	return &otp, nil
}

func (d *DatabaseStore) GetOTPByUserPurpose(userID uint, purpose string) (*models.OTP, error) {
	var otp models.OTP
	if err := d.db.Where("user_id = ? AND purpose = ?", userID, purpose).First(&otp).Error; err != nil {
		return nil, translateErr(err)
	}
	return &otp, nil
}

func (d *DatabaseStore) UpdateOTP(otp *models.OTP) error {
	return d.db.Save(otp).Error
}

// Review operations

func (d *DatabaseStore) CreateReview(review *models.Review) (*models.Review, error) {
	if err := d.db.Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (d *DatabaseStore) GetReviewsByRoom(roomID uint, offset, limit int) ([]*models.Review, int64, error) {
	query := d.db.Model(&models.Review{}).Where("room_id = ?", roomID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []*models.Review
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("id DESC").Offset(offset).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (d *DatabaseStore) GetReviewByBooking(bookingID uint) (*models.Review, error) {
	var review models.Review
	if err := d.db.Where("booking_id = ?", bookingID).First(&review).Error; err != nil {
		return nil, translateErr(err)
	}
	return &review, nil
}

func (d *DatabaseStore) GetRoomRating(roomID uint) (float64, error) {
	var avg *float64
	err := d.db.Model(&models.Review{}).
		Where("room_id = ?", roomID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}

// Transaction runs fn inside a database transaction so the reservation
// conflict check and insert commit or roll back together.
func (d *DatabaseStore) Transaction(fn func(Store) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseStore{db: tx})
	})
}
