package errcodes

// Symbolic error codes returned to clients in error_code_list.
// Codes are part of the API contract: the mobile client matches on them,
// so renaming one is a breaking change.
const (
	// Account
	UserNameExist      = "USER_NAME_EXIST"
	UserNameNotGiven   = "USER_NAME_NOT_GIVEN"
	EmailExist         = "EMAIL_EXIST"
	EmailInvalid       = "EMAIL_INVALID"
	EmailNotGiven      = "EMAIL_NOT_GIVEN"
	PhoneNumExist      = "PHONE_NUM_EXIST"
	PhoneNumInvalid    = "PHONE_NUM_INVALID"
	PhoneNumNotGiven   = "PHONE_NUM_NOT_GIVEN"
	OldPasswordMissing = "OLD_PASSWORD_NOT_GIVEN"
	NewPasswordMissing = "NEW_PASSWORD_NOT_GIVEN"
	OldPasswordWrong   = "OLD_PASSWORD_NOT_MATCH"
	CredentialsInvalid = "CREDENTIALS_INVALID"
	UserAlreadyVerify  = "USER_ALREADY_VERIFIED"
	NonVerifiedUser    = "NON_VERIFIED_USER"
	VerifyEmailInexist = "VERIFY_EMAIL_NOT_EXIST"

	// OTP
	OTPInexist         = "OTP_INEXIST"
	OTPIncorrect       = "OTP_INCORRECT"
	OTPExpired         = "OTP_EXPIRED"
	OTPAlreadyUsed     = "OTP_ALREADY_USED"
	OTPTypeNotMatch    = "OTP_TYPE_NOT_MATCH"
	OTPTypeNotAllow    = "OTP_TYPE_NOT_ALLOW"
	OTPTypeInvalid     = "OTP_TYPE_INVALID"
	OTPCodeNotGiven    = "OTP_CODE_NOT_GIVEN"
	OTPUIDNotGiven     = "OTP_UID_NOT_GIVEN"
	OTPRequestTwice    = "OTP_REQUEST_TWICE"
	OTPTooFrequent     = "OTP_REQUEST_TOO_FREQUENT"
	NotUserOwnOTP      = "NOT_USER_OWN_OTP"

	// Booking
	BookingRoomInexist       = "BOOKING_ROOM_NOT_EXIST"
	BookingNumUsersInvalid   = "BOOKING_NUM_USERS_INVALID"
	BookingUnitPriceInvalid  = "BOOKING_UNIT_PRICE_INVALID"
	BookingTotalPriceInvalid = "BOOKING_TOTAL_PRICE_INVALID"
	BookingStartTimeInvalid  = "BOOKING_START_TIME_INVALID"
	BookingEndTimeInvalid    = "BOOKING_END_TIME_INVALID"
	BookingStartNotBeforeEnd = "BOOKING_START_NOT_BEFORE_END"
	BookingConflictCase1     = "BOOKING_TIME_CONFLICT_CASE1"
	BookingConflictCase2     = "BOOKING_TIME_CONFLICT_CASE2"
	BookingConflictCase3     = "BOOKING_TIME_CONFLICT_CASE3"
	BookingConflictCase4     = "BOOKING_TIME_CONFLICT_CASE4"
	BookingInexist           = "BOOKING_UID_NOT_EXIST"
	BookingCheckParamMissing = "BOOKING_CHECK_PARAM_MISSING"
	BookingDateInvalid       = "BOOKING_DATE_INVALID"
	BookingNotOwner          = "BOOKING_NOT_OWNER"

	// Rooms / favourites
	RoomInexist         = "ROOM_NOT_EXIST"
	RoomUIDFieldEmpty   = "ROOM_UID_FIELD_EMPTY"
	RoomUIDNotIncluded  = "ROOM_UID_NOT_INCLUDED"
	RoomNotInFavourites = "ROOM_NOT_IN_FAVOURITES"
	FavouritesFull      = "FAVOURITES_LIMIT_REACHED"
	RoomNameInvalid     = "ROOM_NAME_INVALID"

	// Reviews
	ReviewNoBooking      = "REVIEW_NO_BOOKING"
	ReviewAlreadyWritten = "REVIEW_ALREADY_WRITTEN"
	ReviewRatingInvalid  = "REVIEW_RATING_INVALID"
	ReviewDetailMissing  = "REVIEW_DETAIL_NOT_PROVIDED"

	// Request plumbing
	RequestBodyInvalid = "REQUEST_BODY_INVALID"

	// Fallback for errors without a recognized code. Logged before being
	// surfaced so they are never silently dropped.
	Unknown = "UNKNOWN_ERROR"
)

// Error is a business-rule rejection carrying a fixed symbolic code.
type Error struct {
	Code string
}

func (e *Error) Error() string { return e.Code }

// New wraps a symbolic code as an error value.
func New(code string) *Error { return &Error{Code: code} }

// List batches multiple simultaneous field rejections into one error,
// matching the error_code_list response contract.
type List []*Error

func (l List) Error() string {
	if len(l) == 0 {
		return ""
	}
	s := l[0].Code
	for _, e := range l[1:] {
		s += "," + e.Code
	}
	return s
}

// Codes flattens any error into the list of symbolic codes to return.
// Unrecognized errors map to a single UNKNOWN_ERROR entry.
func Codes(err error) []string {
	switch e := err.(type) {
	case *Error:
		return []string{e.Code}
	case List:
		codes := make([]string, 0, len(e))
		for _, item := range e {
			codes = append(codes, item.Code)
		}
		return codes
	default:
		return []string{Unknown}
	}
}

// Is reports whether err carries exactly the given code.
func Is(err error, code string) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
