package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

type reviewTestEnv struct {
	store *storage.MemoryStore
	svc   *ReviewService
	user  *models.User
	room  *models.PartyRoom
}

func newReviewTestEnv(t *testing.T) *reviewTestEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	user, err := store.CreateUser(&models.User{
		Username:   "alice",
		Email:      "alice@test.local",
		IsVerified: true,
	})
	require.NoError(t, err)

	room, err := store.CreateRoom(&models.PartyRoom{Name: "Loft 9", Area: "KWN", District: "KT"})
	require.NoError(t, err)

	return &reviewTestEnv{
		store: store,
		svc:   NewReviewService(store, zerolog.Nop()),
		user:  user,
		room:  room,
	}
}

func (env *reviewTestEnv) addStay(t *testing.T, startedAgo time.Duration, status string) *models.Booking {
	t.Helper()
	start := time.Now().Add(-startedAgo)
	booking, err := env.store.CreateBooking(&models.Booking{
		RoomID:    env.room.ID,
		UserID:    env.user.ID,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Status:    status,
	})
	require.NoError(t, err)
	return booking
}

func rating(n int) *int { return &n }

func TestCreateReview(t *testing.T) {
	env := newReviewTestEnv(t)
	booking := env.addStay(t, 24*time.Hour, models.BookingStatusPaid)

	review, err := env.svc.Create(env.user, &CreateReviewRequest{
		RoomUID:  env.room.UID,
		Rating:   rating(4),
		Comments: "great sound system",
	})
	require.NoError(t, err)

	assert.Equal(t, booking.ID, review.BookingID)
	assert.Equal(t, 4, review.Rating)
	assert.True(t, review.Recommend, "recommend defaults to true")

	avg, err := env.store.GetRoomRating(env.room.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 0.001)
}

func TestReviewRequiresStartedStay(t *testing.T) {
	env := newReviewTestEnv(t)

	_, err := env.svc.CanReview(env.user, env.room.UID)
	assert.True(t, errcodes.Is(err, errcodes.ReviewNoBooking))

	// Future bookings do not qualify.
	env.addStay(t, -24*time.Hour, models.BookingStatusConfirm)
	_, err = env.svc.CanReview(env.user, env.room.UID)
	assert.True(t, errcodes.Is(err, errcodes.ReviewNoBooking))

	// Canceled stays do not qualify either.
	env.addStay(t, 24*time.Hour, models.BookingStatusCanceled)
	_, err = env.svc.CanReview(env.user, env.room.UID)
	assert.True(t, errcodes.Is(err, errcodes.ReviewNoBooking))

	env.addStay(t, 12*time.Hour, models.BookingStatusConfirm)
	_, err = env.svc.CanReview(env.user, env.room.UID)
	assert.NoError(t, err)
}

func TestReviewOncePerBooking(t *testing.T) {
	env := newReviewTestEnv(t)
	env.addStay(t, 24*time.Hour, models.BookingStatusPaid)

	_, err := env.svc.Create(env.user, &CreateReviewRequest{RoomUID: env.room.UID, Rating: rating(5)})
	require.NoError(t, err)

	_, err = env.svc.Create(env.user, &CreateReviewRequest{RoomUID: env.room.UID, Rating: rating(1)})
	assert.True(t, errcodes.Is(err, errcodes.ReviewAlreadyWritten))

	// A later stay re-qualifies the user.
	env.addStay(t, time.Hour, models.BookingStatusConfirm)
	_, err = env.svc.Create(env.user, &CreateReviewRequest{RoomUID: env.room.UID, Rating: rating(3)})
	assert.NoError(t, err)
}

func TestReviewValidation(t *testing.T) {
	env := newReviewTestEnv(t)
	env.addStay(t, 24*time.Hour, models.BookingStatusPaid)

	_, err := env.svc.Create(env.user, &CreateReviewRequest{RoomUID: env.room.UID})
	assert.True(t, errcodes.Is(err, errcodes.ReviewDetailMissing))

	_, err = env.svc.Create(env.user, &CreateReviewRequest{RoomUID: env.room.UID, Rating: rating(6)})
	assert.True(t, errcodes.Is(err, errcodes.ReviewRatingInvalid))

	long := make([]byte, models.MaxReviewCommentsLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = env.svc.Create(env.user, &CreateReviewRequest{
		RoomUID:  env.room.UID,
		Rating:   rating(3),
		Comments: string(long),
	})
	assert.True(t, errcodes.Is(err, errcodes.ReviewDetailMissing))

	_, err = env.svc.Create(env.user, &CreateReviewRequest{RoomUID: "ZZZ", Rating: rating(3)})
	assert.True(t, errcodes.Is(err, errcodes.RoomInexist))
}

func TestListReviewsByRoom(t *testing.T) {
	env := newReviewTestEnv(t)
	env.addStay(t, 24*time.Hour, models.BookingStatusPaid)
	_, err := env.svc.Create(env.user, &CreateReviewRequest{RoomUID: env.room.UID, Rating: rating(5)})
	require.NoError(t, err)

	reviews, total, err := env.svc.ListByRoom(env.room.UID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)

	_, _, err = env.svc.ListByRoom("ZZZ", 0, 10)
	assert.True(t, errcodes.Is(err, errcodes.RoomInexist))
}
