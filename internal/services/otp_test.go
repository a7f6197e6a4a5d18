package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

type otpTestEnv struct {
	store *storage.MemoryStore
	svc   *OTPService
	user  *models.User
}

func newOTPTestEnv(t *testing.T, verified bool) *otpTestEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	user, err := store.CreateUser(&models.User{
		Username:   "alice",
		Email:      "alice@test.local",
		IsVerified: verified,
	})
	require.NoError(t, err)

	return &otpTestEnv{
		store: store,
		svc:   NewOTPService(store, nil, zerolog.Nop()),
		user:  user,
	}
}

// backdate shifts the record's clock fields so cooldown and expiry rules
// can be exercised without sleeping.
func (env *otpTestEnv) backdate(t *testing.T, otp *models.OTP, d time.Duration) {
	t.Helper()
	otp.ExpiresAt = otp.ExpiresAt.Add(-d)
	otp.LastRequest = otp.LastRequest.Add(-d)
	require.NoError(t, env.store.UpdateOTP(otp))
}

func TestRequestCreatesRecord(t *testing.T) {
	env := newOTPTestEnv(t, false)

	otp, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	assert.Len(t, otp.Code, 6)
	assert.NotEmpty(t, otp.UID)
	assert.Equal(t, models.OTPStatusUnused, otp.Status)
	assert.Equal(t, env.user.ID, otp.UserID)
	assert.WithinDuration(t, time.Now().Add(models.OTPLifetime), otp.ExpiresAt, 5*time.Second)
}

func TestRequestRejections(t *testing.T) {
	env := newOTPTestEnv(t, false)

	_, err := env.svc.Request(env.user.Email, "XX")
	assert.True(t, errcodes.Is(err, errcodes.OTPTypeInvalid))

	_, err = env.svc.Request("nobody@test.local", models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.VerifyEmailInexist))

	env.user.IsVerified = true
	require.NoError(t, env.store.UpdateUser(env.user))
	_, err = env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.UserAlreadyVerify))
}

func TestRequestWhileActiveIsRejected(t *testing.T) {
	env := newOTPTestEnv(t, false)

	_, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	_, err = env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.OTPRequestTwice))
}

func TestRequestAfterExpiryRefreshes(t *testing.T) {
	env := newOTPTestEnv(t, false)

	first, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	firstUID, firstCode := first.UID, first.Code
	env.backdate(t, first, models.OTPLifetime+time.Minute)

	second, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	// Same record, fresh code and expiry.
	assert.Equal(t, firstUID, second.UID)
	assert.NotEqual(t, firstCode, second.Code)
	assert.Equal(t, models.OTPStatusUnused, second.Status)
	assert.True(t, second.ExpiresAt.After(time.Now()))
}

func TestForgotPasswordRequestAlwaysRefreshes(t *testing.T) {
	env := newOTPTestEnv(t, true)

	first, err := env.svc.Request(env.user.Email, models.OTPPurposeForgotPassword)
	require.NoError(t, err)
	firstCode := first.Code

	second, err := env.svc.Request(env.user.Email, models.OTPPurposeForgotPassword)
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)
	assert.NotEqual(t, firstCode, second.Code)
}

func TestResendCooldown(t *testing.T) {
	env := newOTPTestEnv(t, false)

	otp, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	code := otp.Code

	_, err = env.svc.Resend(otp.UID)
	assert.True(t, errcodes.Is(err, errcodes.OTPTooFrequent))

	env.backdate(t, otp, models.OTPResendCooldown+time.Second)
	resent, err := env.svc.Resend(otp.UID)
	require.NoError(t, err)
	assert.NotEqual(t, code, resent.Code)
	assert.Equal(t, models.OTPStatusUnused, resent.Status)
}

func TestResendRejections(t *testing.T) {
	env := newOTPTestEnv(t, true)

	_, err := env.svc.Resend("missing-uid")
	assert.True(t, errcodes.Is(err, errcodes.OTPInexist))

	fp, err := env.svc.Request(env.user.Email, models.OTPPurposeForgotPassword)
	require.NoError(t, err)
	_, err = env.svc.Resend(fp.UID)
	assert.True(t, errcodes.Is(err, errcodes.OTPTypeNotAllow))
}

func TestVerifyEmailFlow(t *testing.T) {
	env := newOTPTestEnv(t, false)

	otp, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	result, err := env.svc.Verify(env.user.Email, otp.UID, otp.Code, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	assert.Equal(t, models.OTPPurposeVerifyEmail, result.Purpose)
	assert.Empty(t, result.FPCode)

	user, err := env.store.GetUser(env.user.ID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	// The code is spent.
	_, err = env.svc.Verify(env.user.Email, otp.UID, otp.Code, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.OTPAlreadyUsed))
}

func TestVerifyWrongCodeLeavesRecordActive(t *testing.T) {
	env := newOTPTestEnv(t, false)

	otp, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	wrong := "000000"
	if otp.Code == wrong {
		wrong = "000001"
	}
	_, err = env.svc.Verify(env.user.Email, otp.UID, wrong, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.OTPIncorrect))

	// A wrong guess does not burn the code.
	_, err = env.svc.Verify(env.user.Email, otp.UID, otp.Code, models.OTPPurposeVerifyEmail)
	assert.NoError(t, err)
}

func TestVerifyExpiredMarksFailed(t *testing.T) {
	env := newOTPTestEnv(t, false)

	otp, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	env.backdate(t, otp, models.OTPLifetime+time.Minute)

	_, err = env.svc.Verify(env.user.Email, otp.UID, otp.Code, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.OTPExpired))

	stored, err := env.store.GetOTPByUID(otp.UID)
	require.NoError(t, err)
	assert.Equal(t, models.OTPStatusFailed, stored.Status)

	// A failed record no longer collides with a fresh request.
	_, err = env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	assert.NoError(t, err)
}

func TestVerifyOwnershipAndPurpose(t *testing.T) {
	env := newOTPTestEnv(t, false)
	_, err := env.store.CreateUser(&models.User{Username: "bob", Email: "bob@test.local"})
	require.NoError(t, err)

	otp, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	_, err = env.svc.Verify("bob@test.local", otp.UID, otp.Code, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.NotUserOwnOTP))

	_, err = env.svc.Verify(env.user.Email, otp.UID, otp.Code, models.OTPPurposeVerifyIdentity)
	assert.True(t, errcodes.Is(err, errcodes.OTPTypeNotMatch))

	_, err = env.svc.Verify(env.user.Email, "missing-uid", otp.Code, models.OTPPurposeVerifyEmail)
	assert.True(t, errcodes.Is(err, errcodes.OTPInexist))
}

func TestIdentityVerificationHandsOverResetCode(t *testing.T) {
	env := newOTPTestEnv(t, true)

	vi, err := env.svc.Request(env.user.Email, models.OTPPurposeVerifyIdentity)
	require.NoError(t, err)

	result, err := env.svc.Verify(env.user.Email, vi.UID, vi.Code, models.OTPPurposeVerifyIdentity)
	require.NoError(t, err)
	require.NotEmpty(t, result.FPCode)
	require.NotEmpty(t, result.FPUID)

	fp, err := env.store.GetOTPByUID(result.FPUID)
	require.NoError(t, err)
	assert.Equal(t, models.OTPPurposeForgotPassword, fp.Purpose)
	assert.Equal(t, result.FPCode, fp.Code)

	err = env.svc.ForgotPassword(env.user.Email, result.FPUID, result.FPCode, "new-secret")
	require.NoError(t, err)
}

func TestForgotPasswordSetsPasswordAndKillsSessions(t *testing.T) {
	env := newOTPTestEnv(t, true)
	oldVersion := env.user.TokenVersion

	fp, err := env.svc.Request(env.user.Email, models.OTPPurposeForgotPassword)
	require.NoError(t, err)

	require.NoError(t, env.svc.ForgotPassword(env.user.Email, fp.UID, fp.Code, "new-secret"))

	user, err := env.store.GetUser(env.user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-secret")))
	assert.Equal(t, oldVersion+1, user.TokenVersion)
}

func TestForgotPasswordRequiresVerifiedUser(t *testing.T) {
	env := newOTPTestEnv(t, false)

	fp, err := env.svc.Request(env.user.Email, models.OTPPurposeForgotPassword)
	require.NoError(t, err)

	err = env.svc.ForgotPassword(env.user.Email, fp.UID, fp.Code, "new-secret")
	assert.True(t, errcodes.Is(err, errcodes.NonVerifiedUser))

	// Rejection happens before the code is consumed.
	stored, err := env.store.GetOTPByUID(fp.UID)
	require.NoError(t, err)
	assert.Equal(t, models.OTPStatusUnused, stored.Status)
}
