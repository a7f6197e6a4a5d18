package services

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
	"github.com/smilee3998/partyroom-server/internal/utils"
)

// OTPService owns the one-time-passcode lifecycle: issue, resend, expire,
// and single-use consumption. Expiry is lazy; records are checked against
// the wall clock on access, never swept in the background.
type OTPService struct {
	store    storage.Store
	notifier Notifier
	logger   zerolog.Logger
}

func NewOTPService(store storage.Store, notifier Notifier, logger zerolog.Logger) *OTPService {
	return &OTPService{store: store, notifier: notifier, logger: logger}
}

// Request issues (or re-issues) the OTP for (user, purpose) and delivers
// the code. While a previous code for the same purpose is still active the
// request is rejected, except for forgot-password, which always refreshes.
func (s *OTPService) Request(email, purpose string) (*models.OTP, error) {
	if !models.ValidOTPPurpose(purpose) {
		return nil, errcodes.New(errcodes.OTPTypeInvalid)
	}

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.VerifyEmailInexist)
		}
		return nil, err
	}

	if purpose == models.OTPPurposeVerifyEmail && user.IsVerified {
		return nil, errcodes.New(errcodes.UserAlreadyVerify)
	}

	otp, err := s.issue(user, purpose)
	if err != nil {
		return nil, err
	}

	s.deliver(user, otp)
	return otp, nil
}

// issue implements the per-(user, purpose) record rule: create on first
// request, refresh when the old record is spent or the purpose is
// forgot-password, reject an active duplicate otherwise.
func (s *OTPService) issue(user *models.User, purpose string) (*models.OTP, error) {
	now := time.Now()

	existing, err := s.store.GetOTPByUserPurpose(user.ID, purpose)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}

		code, err := utils.GenerateSecureOTP()
		if err != nil {
			return nil, err
		}
		return s.store.CreateOTP(&models.OTP{
			Code:        code,
			UserID:      user.ID,
			Purpose:     purpose,
			Status:      models.OTPStatusUnused,
			ExpiresAt:   now.Add(models.OTPLifetime),
			LastRequest: now,
		})
	}

	if purpose == models.OTPPurposeForgotPassword ||
		existing.IsExpired(now) ||
		existing.Status == models.OTPStatusUsed ||
		existing.Status == models.OTPStatusFailed {
		if err := s.refresh(existing, now); err != nil {
			return nil, err
		}
		return existing, nil
	}

	// Still active: the client should only fire this request once.
	return nil, errcodes.New(errcodes.OTPRequestTwice)
}

// refresh regenerates code and expiry on the same record, resetting it to
// active regardless of prior status. This is the only way out of the
// terminal used/failed states.
func (s *OTPService) refresh(otp *models.OTP, now time.Time) error {
	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return err
	}
	otp.Code = code
	otp.Status = models.OTPStatusUnused
	otp.ExpiresAt = now.Add(models.OTPLifetime)
	otp.LastRequest = now
	return s.store.UpdateOTP(otp)
}

// Resend refreshes the record and re-delivers its code, subject to the
// cooldown. Forgot-password codes are never resent; they are handed over
// in-session by identity verification instead.
func (s *OTPService) Resend(uid string) (*models.OTP, error) {
	otp, err := s.store.GetOTPByUID(uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.OTPInexist)
		}
		return nil, err
	}

	if otp.Purpose == models.OTPPurposeForgotPassword {
		return nil, errcodes.New(errcodes.OTPTypeNotAllow)
	}
	if !otp.AllowResend(time.Now()) {
		return nil, errcodes.New(errcodes.OTPTooFrequent)
	}

	if err := s.refresh(otp, time.Now()); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(otp.UserID)
	if err != nil {
		return nil, err
	}
	s.deliver(user, otp)
	return otp, nil
}

// VerifyResult carries the purpose-specific success payload. After identity
// verification the fresh forgot-password code rides back to the client so
// password reset needs no second email round trip.
type VerifyResult struct {
	Purpose string
	FPCode  string
	FPUID   string
}

// Verify consumes the code. The checks run in a fixed order — existence,
// ownership, code, purpose, expiry, used — because clients distinguish the
// failure modes by error code. A code verified after expiry is marked
// failed before rejection.
func (s *OTPService) Verify(email, uid, code, purpose string) (*VerifyResult, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.VerifyEmailInexist)
		}
		return nil, err
	}

	if err := s.consume(user, uid, code, purpose); err != nil {
		return nil, err
	}

	result := &VerifyResult{Purpose: purpose}
	switch purpose {
	case models.OTPPurposeVerifyEmail:
		user.IsVerified = true
		if err := s.store.UpdateUser(user); err != nil {
			return nil, err
		}

	case models.OTPPurposeVerifyIdentity:
		fp, err := s.issue(user, models.OTPPurposeForgotPassword)
		if err != nil {
			return nil, err
		}
		result.FPCode = fp.Code
		result.FPUID = fp.UID
	}

	s.logger.Info().
		Str("user_uid", user.UID).
		Str("purpose", purpose).
		Msg("OTP verified")
	return result, nil
}

// consume runs the ordered verification checks and flips the record to
// used exactly once.
func (s *OTPService) consume(user *models.User, uid, code, purpose string) error {
	otp, err := s.store.GetOTPByUID(uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errcodes.New(errcodes.OTPInexist)
		}
		return err
	}

	if otp.UserID != user.ID {
		return errcodes.New(errcodes.NotUserOwnOTP)
	}
	if otp.Code != code {
		return errcodes.New(errcodes.OTPIncorrect)
	}
	if otp.Purpose != purpose {
		return errcodes.New(errcodes.OTPTypeNotMatch)
	}
	if otp.IsExpired(time.Now()) {
		otp.Status = models.OTPStatusFailed
		if err := s.store.UpdateOTP(otp); err != nil {
			return err
		}
		return errcodes.New(errcodes.OTPExpired)
	}
	if otp.Status == models.OTPStatusUsed {
		return errcodes.New(errcodes.OTPAlreadyUsed)
	}

	otp.Status = models.OTPStatusUsed
	return s.store.UpdateOTP(otp)
}

// ForgotPassword runs the verify flow with the forgot-password purpose and
// sets the new password. Only verified users may reset; the check runs
// before the code is consumed so a rejected attempt does not burn it.
// Bumping the token version invalidates every outstanding session token.
func (s *OTPService) ForgotPassword(email, uid, code, newPassword string) error {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errcodes.New(errcodes.VerifyEmailInexist)
		}
		return err
	}

	if !user.IsVerified {
		return errcodes.New(errcodes.NonVerifiedUser)
	}

	if err := s.consume(user, uid, code, models.OTPPurposeForgotPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.TokenVersion++
	if err := s.store.UpdateUser(user); err != nil {
		return err
	}

	s.logger.Info().Str("user_uid", user.UID).Msg("password reset via OTP")
	return nil
}

func (s *OTPService) deliver(user *models.User, otp *models.OTP) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendOTP(user, otp); err != nil {
		s.logger.Error().Err(err).Str("user_uid", user.UID).Msg("OTP delivery failed")
	}
}
