package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/services"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

type apiTestEnv struct {
	app   *fiber.App
	store *storage.MemoryStore
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	logger := zerolog.Nop()

	otpSvc := services.NewOTPService(store, nil, logger)
	bookingSvc := services.NewBookingService(store, logger)
	reviewSvc := services.NewReviewService(store, logger)

	app := fiber.New()
	SetupRoutes(app, store, NewHandlers(store, otpSvc, bookingSvc, reviewSvc, "test"))

	return &apiTestEnv{app: app, store: store}
}

func (env *apiTestEnv) request(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp.StatusCode, parsed
}

func errorCodes(body map[string]any) []string {
	raw, _ := body["error_code_list"].([]any)
	codes := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			codes = append(codes, s)
		}
	}
	return codes
}

// registerAndLogin creates a verified account through the store and logs in
// over HTTP, returning the session token.
func (env *apiTestEnv) registerAndLogin(t *testing.T, username, email string, verified bool) string {
	t.Helper()

	status, _ := env.request(t, http.MethodPost, "/api/accounts/register", "", fiber.Map{
		"username":     username,
		"email":        email,
		"phone_number": "+85291234567",
		"password":     "secret-pass",
	})
	require.Equal(t, http.StatusCreated, status)

	if verified {
		user, err := env.store.GetUserByEmail(email)
		require.NoError(t, err)
		user.IsVerified = true
		require.NoError(t, env.store.UpdateUser(user))
	}

	status, body := env.request(t, http.MethodPost, "/api/accounts/login", "", fiber.Map{
		"username": username,
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterValidation(t *testing.T) {
	env := newAPITestEnv(t)

	status, _ := env.request(t, http.MethodPost, "/api/accounts/register", "", fiber.Map{
		"username":     "alice",
		"email":        "alice@test.local",
		"phone_number": "+85291234567",
		"password":     "secret-pass",
	})
	require.Equal(t, http.StatusCreated, status)

	// Re-registering the same identity reports every clash at once.
	status, body := env.request(t, http.MethodPost, "/api/accounts/register", "", fiber.Map{
		"username":     "alice",
		"email":        "alice@test.local",
		"phone_number": "+85291234567",
		"password":     "secret-pass",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.ElementsMatch(t, []string{
		errcodes.UserNameExist,
		errcodes.EmailExist,
		errcodes.PhoneNumExist,
	}, errorCodes(body))

	status, body = env.request(t, http.MethodPost, "/api/accounts/register", "", fiber.Map{
		"username":     "bob",
		"email":        "not-an-email",
		"phone_number": "12345",
		"password":     "secret-pass",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.ElementsMatch(t, []string{
		errcodes.EmailInvalid,
		errcodes.PhoneNumInvalid,
	}, errorCodes(body))
}

func TestLoginAndSession(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "alice", "alice@test.local", true)

	status, body := env.request(t, http.MethodPost, "/api/accounts/login", "", fiber.Map{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.CredentialsInvalid}, errorCodes(body))

	status, body = env.request(t, http.MethodGet, "/api/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])

	status, _ = env.request(t, http.MethodGet, "/api/accounts/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.request(t, http.MethodGet, "/api/accounts/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChangePasswordInvalidatesOldToken(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "alice", "alice@test.local", true)

	status, body := env.request(t, http.MethodPut, "/api/accounts/change_password", token, fiber.Map{
		"old_password": "secret-pass",
		"new_password": "rotated-pass",
	})
	require.Equal(t, http.StatusOK, status)
	fresh, _ := body["token"].(string)
	require.NotEmpty(t, fresh)

	status, _ = env.request(t, http.MethodGet, "/api/accounts/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.request(t, http.MethodGet, "/api/accounts/me", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestVerifiedGate(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "alice", "alice@test.local", false)

	status, body := env.request(t, http.MethodPost, "/api/bookings/reserve", token, fiber.Map{
		"partyroom":  "AAA",
		"start_time": time.Now().Format(time.RFC3339),
		"end_time":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"num_users":  2,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, []string{errcodes.NonVerifiedUser}, errorCodes(body))
}

func TestOTPEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerAndLogin(t, "alice", "alice@test.local", false)

	status, body := env.request(t, http.MethodPost, "/api/otp/requests", "", fiber.Map{
		"otp_type": "VE",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, errorCodes(body), errcodes.EmailNotGiven)

	status, body = env.request(t, http.MethodPost, "/api/otp/requests", "", fiber.Map{
		"email":    "alice@test.local",
		"otp_type": "FP",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.OTPTypeNotAllow}, errorCodes(body))

	status, body = env.request(t, http.MethodPost, "/api/otp/requests", "", fiber.Map{
		"email":    "alice@test.local",
		"otp_type": "VE",
	})
	require.Equal(t, http.StatusOK, status)
	uid, _ := body["uid"].(string)
	require.NotEmpty(t, uid)

	otp, err := env.store.GetOTPByUID(uid)
	require.NoError(t, err)

	status, _ = env.request(t, http.MethodPost, "/api/otp/verify", "", fiber.Map{
		"email":    "alice@test.local",
		"otp_uid":  uid,
		"otp_code": otp.Code,
		"otp_type": "VE",
	})
	require.Equal(t, http.StatusOK, status)

	user, err := env.store.GetUserByEmail("alice@test.local")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
}

func TestFavouritesEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "alice", "alice@test.local", true)

	room, err := env.store.CreateRoom(&models.PartyRoom{Name: "Loft 9", Area: "KWN", District: "KT"})
	require.NoError(t, err)

	status, body := env.request(t, http.MethodPut, "/api/accounts/favourites", token, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.RoomUIDNotIncluded}, errorCodes(body))

	status, body = env.request(t, http.MethodPut, "/api/accounts/favourites", token, fiber.Map{
		"partyroom_uid": "ZZZ",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.RoomInexist}, errorCodes(body))

	status, body = env.request(t, http.MethodPut, "/api/accounts/favourites", token, fiber.Map{
		"partyroom_uid": room.UID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{room.UID}, body["favourites"])

	status, body = env.request(t, http.MethodDelete, "/api/accounts/favourites", token, fiber.Map{
		"partyroom_uid": room.UID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["favourites"])

	status, body = env.request(t, http.MethodDelete, "/api/accounts/favourites", token, fiber.Map{
		"partyroom_uid": room.UID,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.RoomNotInFavourites}, errorCodes(body))
}

func TestReserveAndCheckTimeEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "alice", "alice@test.local", true)

	room, err := env.store.CreateRoom(&models.PartyRoom{Name: "Loft 9", Area: "KWN", District: "KT"})
	require.NoError(t, err)

	start := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	reserve := func(s, e time.Time) (int, map[string]any) {
		return env.request(t, http.MethodPost, "/api/bookings/reserve", token, fiber.Map{
			"partyroom":   room.UID,
			"start_time":  s.Format(time.RFC3339),
			"end_time":    e.Format(time.RFC3339),
			"num_users":   4,
			"unit_price":  100,
			"total_price": 400,
		})
	}

	status, body := reserve(start, start.Add(time.Hour))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "confirm", body["status"])
	assert.Equal(t, "Loft 9", body["partyroom"])

	status, body = reserve(start.Add(30*time.Minute), start.Add(90*time.Minute))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.BookingConflictCase2}, errorCodes(body))

	status, body = env.request(t, http.MethodGet, "/api/bookings/check_time", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{errcodes.BookingCheckParamMissing}, errorCodes(body))

	status, _ = env.request(t, http.MethodGet,
		"/api/bookings/check_time?partyroom_uid="+room.UID+"&booking_date=2026-09-05", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
