package services

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

// bookingDayBoundary is the UTC hour at which a local (UTC+8) calendar day
// rolls over: local midnight is 16:00 UTC of the previous day.
const bookingDayBoundary = 16

// BookingService decides whether a requested time range for a room may be
// confirmed given existing reservations.
type BookingService struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewBookingService(store storage.Store, logger zerolog.Logger) *BookingService {
	return &BookingService{store: store, logger: logger}
}

// ReserveRequest is the reservation request body. Times arrive as RFC 3339
// strings so malformed values can be reported per-field instead of failing
// the whole body parse.
type ReserveRequest struct {
	RoomUID    string `json:"partyroom"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	NumUsers   int    `json:"num_users"`
	UnitPrice  int    `json:"unit_price"`
	TotalPrice int    `json:"total_price"`
}

// Reserve validates the request, rejects on any conflict with a blocking
// booking of the same room, and otherwise persists a confirmed booking.
// Field-level failures are batched; the conflict checks short-circuit in
// their fixed, client-observable order.
func (s *BookingService) Reserve(user *models.User, req *ReserveRequest) (*models.Booking, error) {
	var fieldErrs errcodes.List

	if req.NumUsers <= 0 || req.NumUsers > models.MaxBookingNumUsers {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.BookingNumUsersInvalid))
	}
	if req.UnitPrice < 0 {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.BookingUnitPriceInvalid))
	}
	if req.TotalPrice < 0 {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.BookingTotalPriceInvalid))
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.BookingStartTimeInvalid))
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.BookingEndTimeInvalid))
	}

	room, err := s.store.GetRoomByUID(req.RoomUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.BookingRoomInexist))
		} else {
			return nil, err
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	if !start.Before(end) {
		return nil, errcodes.New(errcodes.BookingStartNotBeforeEnd)
	}

	// The conflict check and the insert run in one transaction so two
	// overlapping requests cannot both commit.
	var booking *models.Booking
	err = s.store.Transaction(func(tx storage.Store) error {
		existing, err := tx.GetBlockingBookings(room.ID)
		if err != nil {
			return err
		}
		if conflict := classifyConflict(start, end, existing); conflict != nil {
			return conflict
		}

		booking, err = tx.CreateBooking(&models.Booking{
			RoomID:     room.ID,
			UserID:     user.ID,
			StartTime:  start,
			EndTime:    end,
			Status:     models.BookingStatusConfirm,
			NumUsers:   req.NumUsers,
			UnitPrice:  req.UnitPrice,
			TotalPrice: req.TotalPrice,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	booking.Room = room
	s.logger.Info().
		Str("booking_uid", booking.UID).
		Str("room_uid", room.UID).
		Time("start", start).
		Time("end", end).
		Msg("reservation accepted")
	return booking, nil
}

// classifyConflict checks the candidate interval [start, end) against every
// blocking booking [s, e) on the same room. The four cases are evaluated as
// independent filters over the whole set, in fixed order; the first case
// with any match wins. Clients match on the case codes, so neither the
// order nor the predicates may change.
func classifyConflict(start, end time.Time, existing []*models.Booking) error {
	// Case 1: an existing booking starts inside the candidate interval.
	for _, b := range existing {
		if !b.StartTime.Before(start) && b.StartTime.Before(end) {
			return errcodes.New(errcodes.BookingConflictCase1)
		}
	}
	// Case 2: an existing booking ends inside the candidate interval.
	for _, b := range existing {
		if b.EndTime.After(start) && !b.EndTime.After(end) {
			return errcodes.New(errcodes.BookingConflictCase2)
		}
	}
	// Case 3: the candidate lies wholly inside an existing booking.
	for _, b := range existing {
		if !b.StartTime.After(start) && !b.EndTime.Before(end) {
			return errcodes.New(errcodes.BookingConflictCase3)
		}
	}
	// Case 4: the candidate wholly contains an existing booking.
	for _, b := range existing {
		if !b.StartTime.Before(start) && !b.EndTime.After(end) {
			return errcodes.New(errcodes.BookingConflictCase4)
		}
	}
	return nil
}

// UnavailableSlots returns the intervals of all blocking bookings that
// intersect the 24-hour window for the given local calendar day. The day
// string is YYYY-MM-DD; the window is [day-1 16:00 UTC, day 16:00 UTC),
// i.e. midnight to midnight in UTC+8.
func (s *BookingService) UnavailableSlots(roomUID, day string) ([]models.TimeSlot, error) {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		return nil, errcodes.New(errcodes.BookingDateInvalid)
	}

	room, err := s.store.GetRoomByUID(roomUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.BookingRoomInexist)
		}
		return nil, err
	}

	windowEnd := time.Date(date.Year(), date.Month(), date.Day(), bookingDayBoundary, 0, 0, 0, time.UTC)
	windowStart := windowEnd.Add(-24 * time.Hour)

	bookings, err := s.store.GetBlockingBookingsOverlapping(room.ID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	slots := make([]models.TimeSlot, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, models.TimeSlot{StartTime: b.StartTime, EndTime: b.EndTime})
	}
	return slots, nil
}

// GetByUID returns a booking visible to the given user (owner or staff).
func (s *BookingService) GetByUID(user *models.User, uid string) (*models.Booking, error) {
	booking, err := s.store.GetBookingByUID(uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.BookingInexist)
		}
		return nil, err
	}
	if booking.UserID != user.ID && !user.IsStaff {
		return nil, errcodes.New(errcodes.BookingNotOwner)
	}
	return booking, nil
}

// ListByUser returns all of the user's bookings, earliest first.
func (s *BookingService) ListByUser(user *models.User) ([]*models.Booking, error) {
	return s.store.GetBookingsByUser(user.ID)
}

// Cancel flips the booking to canceled. Bookings are never deleted.
func (s *BookingService) Cancel(user *models.User, uid string) error {
	booking, err := s.GetByUID(user, uid)
	if err != nil {
		return err
	}
	return s.store.UpdateBookingStatus(booking.UID, models.BookingStatusCanceled)
}
