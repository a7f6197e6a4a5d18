package services

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

// ReviewService gates review creation: the reviewer must have a booking for
// the room whose stay already started, and each booking carries at most one
// review. The qualifying booking is always the most recent one.
type ReviewService struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewReviewService(store storage.Store, logger zerolog.Logger) *ReviewService {
	return &ReviewService{store: store, logger: logger}
}

// CreateReviewRequest is the review creation body. check_only lets the
// client probe whether a review would be accepted without writing one.
type CreateReviewRequest struct {
	RoomUID   string `json:"partyroom_uid"`
	Rating    *int   `json:"rating"`
	Comments  string `json:"comments"`
	Recommend *bool  `json:"recommend"`
	CheckOnly bool   `json:"check_only"`
}

// CanReview returns the booking that qualifies the user to review the room.
func (s *ReviewService) CanReview(user *models.User, roomUID string) (*models.Booking, error) {
	room, err := s.store.GetRoomByUID(roomUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.RoomInexist)
		}
		return nil, err
	}

	booking, err := s.store.GetLatestStartedBooking(user.ID, room.ID, models.BookingReviewableStatuses)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.ReviewNoBooking)
		}
		return nil, err
	}

	if _, err := s.store.GetReviewByBooking(booking.ID); err == nil {
		return nil, errcodes.New(errcodes.ReviewAlreadyWritten)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return booking, nil
}

// Create validates and persists a review tied to the qualifying booking.
func (s *ReviewService) Create(user *models.User, req *CreateReviewRequest) (*models.Review, error) {
	booking, err := s.CanReview(user, req.RoomUID)
	if err != nil {
		return nil, err
	}

	if req.Rating == nil {
		return nil, errcodes.New(errcodes.ReviewDetailMissing)
	}
	if *req.Rating < 0 || *req.Rating > models.MaxReviewRating {
		return nil, errcodes.New(errcodes.ReviewRatingInvalid)
	}
	if len(req.Comments) > models.MaxReviewCommentsLength {
		return nil, errcodes.New(errcodes.ReviewDetailMissing)
	}

	recommend := true
	if req.Recommend != nil {
		recommend = *req.Recommend
	}

	review, err := s.store.CreateReview(&models.Review{
		RoomID:     booking.RoomID,
		ReviewerID: user.ID,
		BookingID:  booking.ID,
		Rating:     *req.Rating,
		Comments:   req.Comments,
		Recommend:  recommend,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("review_uid", review.UID).
		Str("room_uid", req.RoomUID).
		Msg("review created")
	return review, nil
}

// ListByRoom returns a page of the room's reviews, newest first.
func (s *ReviewService) ListByRoom(roomUID string, offset, limit int) ([]*models.Review, int64, error) {
	room, err := s.store.GetRoomByUID(roomUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, errcodes.New(errcodes.RoomInexist)
		}
		return nil, 0, err
	}
	return s.store.GetReviewsByRoom(room.ID, offset, limit)
}
