package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/middleware"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

// AccountHandler handles registration, login, and profile management.
type AccountHandler struct {
	store storage.Store
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(store storage.Store) *AccountHandler {
	return &AccountHandler{store: store}
}

// Register handles POST /api/accounts/register. All field failures are
// collected into one error_code_list response.
func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var reg models.UserRegistration
	if err := c.BodyParser(&reg); err != nil {
		return badBody(c)
	}

	var fieldErrs errcodes.List

	if reg.Username == "" || len(reg.Username) > 20 {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.UserNameNotGiven))
	} else if _, err := h.store.GetUserByUsername(reg.Username); err == nil {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.UserNameExist))
	}

	switch {
	case reg.Email == "":
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailNotGiven))
	case !models.ValidEmail(reg.Email):
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailInvalid))
	default:
		if _, err := h.store.GetUserByEmail(reg.Email); err == nil {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailExist))
		}
	}

	switch {
	case reg.PhoneNumber == "":
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.PhoneNumNotGiven))
	case !models.ValidPhoneNumber(reg.PhoneNumber):
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.PhoneNumInvalid))
	default:
		if _, err := h.store.GetUserByPhone(reg.PhoneNumber); err == nil {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.PhoneNumExist))
		}
	}

	if reg.Password == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.NewPasswordMissing))
	}

	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return rejected(c, err)
	}

	user, err := h.store.CreateUser(&models.User{
		Username:     reg.Username,
		PasswordHash: string(hash),
		PhoneNumber:  reg.PhoneNumber,
		Email:        reg.Email,
		IsRoomer:     reg.IsRoomer,
	})
	if err != nil {
		return rejected(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(userResponse(user))
}

// Login handles POST /api/accounts/login and returns a session token.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		return rejected(c, errcodes.New(errcodes.CredentialsInvalid))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return rejected(c, errcodes.New(errcodes.CredentialsInvalid))
	}

	token, err := middleware.IssueToken(user)
	if err != nil {
		return rejected(c, err)
	}

	return c.JSON(fiber.Map{
		"token":    token,
		"uid":      user.UID,
		"is_staff": user.IsStaff,
	})
}

// Detail handles GET /api/accounts/me.
func (h *AccountHandler) Detail(c *fiber.Ctx) error {
	return c.JSON(userResponse(middleware.CurrentUser(c)))
}

// Update handles PATCH /api/accounts/me for profile fields other than
// password and favourites.
func (h *AccountHandler) Update(c *fiber.Ctx) error {
	var req struct {
		Username    string `json:"username"`
		PhoneNumber string `json:"phone_number"`
		Email       string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user := middleware.CurrentUser(c)
	var fieldErrs errcodes.List

	if req.Username != "" && req.Username != user.Username {
		if _, err := h.store.GetUserByUsername(req.Username); err == nil {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.UserNameExist))
		} else {
			user.Username = req.Username
		}
	}
	if req.Email != "" && req.Email != user.Email {
		if !models.ValidEmail(req.Email) {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailInvalid))
		} else if _, err := h.store.GetUserByEmail(req.Email); err == nil {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.EmailExist))
		} else {
			user.Email = req.Email
		}
	}
	if req.PhoneNumber != "" && req.PhoneNumber != user.PhoneNumber {
		if !models.ValidPhoneNumber(req.PhoneNumber) {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.PhoneNumInvalid))
		} else if _, err := h.store.GetUserByPhone(req.PhoneNumber); err == nil {
			fieldErrs = append(fieldErrs, errcodes.New(errcodes.PhoneNumExist))
		} else {
			user.PhoneNumber = req.PhoneNumber
		}
	}

	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	if err := h.store.UpdateUser(user); err != nil {
		return rejected(c, err)
	}
	return c.JSON(userResponse(user))
}

// ChangePassword handles PUT /api/accounts/change_password. The old token
// generation dies with the version bump; a fresh token is returned.
func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	var fieldErrs errcodes.List
	if req.OldPassword == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.OldPasswordMissing))
	}
	if req.NewPassword == "" {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.NewPasswordMissing))
	}
	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	user := middleware.CurrentUser(c)
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		return rejected(c, errcodes.New(errcodes.OldPasswordWrong))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return rejected(c, err)
	}
	user.PasswordHash = string(hash)
	user.TokenVersion++
	if err := h.store.UpdateUser(user); err != nil {
		return rejected(c, err)
	}

	token, err := middleware.IssueToken(user)
	if err != nil {
		return rejected(c, err)
	}
	return success(c, fiber.Map{"token": token})
}

// Delete handles DELETE /api/accounts/me. Only accounts that never
// completed verification may be removed.
func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user.IsVerified {
		return rejected(c, errcodes.New(errcodes.UserAlreadyVerify))
	}
	if err := h.store.DeleteUser(user.ID); err != nil {
		return rejected(c, err)
	}
	return success(c, nil)
}

func userResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"uid":          user.UID,
		"username":     user.Username,
		"phone_number": user.PhoneNumber,
		"email":        user.Email,
		"is_roomer":    user.IsRoomer,
		"is_verified":  user.IsVerified,
		"icon_num":     user.IconNum,
	}
}
