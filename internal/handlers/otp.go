package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/services"
)

// OTPHandler exposes the OTP lifecycle over HTTP. These endpoints are
// unauthenticated: the whole point is to establish identity.
type OTPHandler struct {
	svc *services.OTPService
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(svc *services.OTPService) *OTPHandler {
	return &OTPHandler{svc: svc}
}

// requestableType reports whether clients may request this purpose
// directly. Forgot-password codes are only minted through identity
// verification.
func requestableType(purpose string) error {
	if !models.ValidOTPPurpose(purpose) {
		return errcodes.New(errcodes.OTPTypeInvalid)
	}
	if purpose == models.OTPPurposeForgotPassword {
		return errcodes.New(errcodes.OTPTypeNotAllow)
	}
	return nil
}

// Request handles POST /api/otp/requests.
func (h *OTPHandler) Request(c *fiber.Ctx) error {
	var req struct {
		Email   string `json:"email"`
		OTPType string `json:"otp_type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	var fieldErrs errcodes.List
	if req.Email == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailNotGiven))
	}
	if req.OTPType == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.OTPTypeInvalid))
	}
	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	if err := requestableType(req.OTPType); err != nil {
		return rejected(c, err)
	}

	otp, err := h.svc.Request(req.Email, req.OTPType)
	if err != nil {
		return rejected(c, err)
	}

	return success(c, fiber.Map{
		"uid":        otp.UID,
		"otp_type":   otp.Purpose,
		"expires_at": otp.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Resend handles POST /api/otp/resend.
func (h *OTPHandler) Resend(c *fiber.Ctx) error {
	var req struct {
		UID string `json:"uid"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.UID == "" {
		return rejected(c, errcodes.New(errcodes.OTPUIDNotGiven))
	}

	otp, err := h.svc.Resend(req.UID)
	if err != nil {
		return rejected(c, err)
	}

	return success(c, fiber.Map{
		"uid":        otp.UID,
		"expires_at": otp.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Verify handles POST /api/otp/verify. On verify-identity success the
// response carries the fresh forgot-password code and uid so the client
// can continue straight to password reset.
func (h *OTPHandler) Verify(c *fiber.Ctx) error {
	var req struct {
		Email   string `json:"email"`
		OTPUID  string `json:"otp_uid"`
		OTPCode string `json:"otp_code"`
		OTPType string `json:"otp_type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	var fieldErrs errcodes.List
	if req.Email == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailNotGiven))
	}
	if req.OTPUID == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.OTPUIDNotGiven))
	}
	if req.OTPCode == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.OTPCodeNotGiven))
	}
	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	if err := requestableType(req.OTPType); err != nil {
		return rejected(c, err)
	}

	result, err := h.svc.Verify(req.Email, req.OTPUID, req.OTPCode, req.OTPType)
	if err != nil {
		return rejected(c, err)
	}

	if result.Purpose == models.OTPPurposeVerifyIdentity {
		return success(c, fiber.Map{
			"otp_code": result.FPCode,
			"otp_uid":  result.FPUID,
		})
	}
	return success(c, nil)
}

// ForgotPassword handles POST /api/otp/forgot_password.
func (h *OTPHandler) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		OTPUID      string `json:"otp_uid"`
		OTPCode     string `json:"otp_code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	var fieldErrs errcodes.List
	if req.Email == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailNotGiven))
	}
	if req.OTPUID == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.OTPUIDNotGiven))
	}
	if req.OTPCode == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.OTPCodeNotGiven))
	}
	if req.NewPassword == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.NewPasswordMissing))
	}
	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	if err := h.svc.ForgotPassword(req.Email, req.OTPUID, req.OTPCode, req.NewPassword); err != nil {
		return rejected(c, err)
	}
	return success(c, nil)
}
