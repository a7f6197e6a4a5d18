package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/smilee3998/partyroom-server/internal/models"
)

// Notifier delivers a one-time code to its user. The core only decides
// subject, body, and destination; transport lives behind this interface.
type Notifier interface {
	SendOTP(user *models.User, otp *models.OTP) error
}

// otpSubject picks the email subject for an OTP purpose.
func otpSubject(purpose string) string {
	switch purpose {
	case models.OTPPurposeVerifyEmail:
		return "Partyroom account email verification"
	case models.OTPPurposeVerifyIdentity, models.OTPPurposeForgotPassword:
		return "Partyroom account reset password verification"
	default:
		return "Partyroom account verification"
	}
}

func otpBody(otp *models.OTP) string {
	return fmt.Sprintf("Your otp is %s", otp.Code)
}

// SMTPMailer sends OTP emails through a plain SMTP relay.
type SMTPMailer struct {
	host   string
	port   string
	from   string
	pass   string
	logger zerolog.Logger
}

// NewSMTPMailer reads SMTP_HOST, SMTP_PORT, SMTP_FROM, SMTP_PASSWORD.
func NewSMTPMailer(logger zerolog.Logger) (*SMTPMailer, error) {
	host := os.Getenv("SMTP_HOST")
	from := os.Getenv("SMTP_FROM")
	if host == "" || from == "" {
		return nil, fmt.Errorf("missing SMTP configuration in environment variables")
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	return &SMTPMailer{
		host:   host,
		port:   port,
		from:   from,
		pass:   os.Getenv("SMTP_PASSWORD"),
		logger: logger,
	}, nil
}

func (m *SMTPMailer) SendOTP(user *models.User, otp *models.OTP) error {
	// Placeholder addresses from fixtures never leave the building.
	if strings.Contains(user.Email, "example") {
		m.logger.Info().Str("email", user.Email).Msg("skipping delivery to placeholder address")
		return nil
	}

	subject := otpSubject(otp.Purpose)
	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + user.Email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		otpBody(otp) + "\r\n")

	var auth smtp.Auth
	if m.pass != "" {
		auth = smtp.PlainAuth("", m.from, m.pass, m.host)
	}
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{user.Email}, msg)
}

// TwilioSMS delivers OTP codes over SMS for users who registered a phone
// number. Optional channel; email remains primary.
type TwilioSMS struct {
	client *twilio.RestClient
	from   string
	logger zerolog.Logger
}

// NewTwilioSMS reads TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and
// TWILIO_PHONE_NUMBER from the environment.
func NewTwilioSMS(logger zerolog.Logger) (*TwilioSMS, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_PHONE_NUMBER")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioSMS{client: client, from: from, logger: logger}, nil
}

func (t *TwilioSMS) SendOTP(user *models.User, otp *models.OTP) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(user.PhoneNumber)
	params.SetBody(otpBody(otp))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.logger.Error().Err(err).Str("phone", user.PhoneNumber).Msg("failed to send OTP SMS")
		return err
	}
	t.logger.Info().Str("sid", deref(resp.Sid)).Msg("OTP SMS sent")
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MultiNotifier fans one code out to every configured channel. Email alone
// failing is an error; a failing secondary channel is only logged.
type MultiNotifier struct {
	primary   Notifier
	secondary []Notifier
	logger    zerolog.Logger
}

func NewMultiNotifier(primary Notifier, logger zerolog.Logger, secondary ...Notifier) *MultiNotifier {
	return &MultiNotifier{primary: primary, secondary: secondary, logger: logger}
}

func (n *MultiNotifier) SendOTP(user *models.User, otp *models.OTP) error {
	err := n.primary.SendOTP(user, otp)
	for _, ch := range n.secondary {
		if serr := ch.SendOTP(user, otp); serr != nil {
			n.logger.Warn().Err(serr).Msg("secondary OTP channel failed")
		}
	}
	return err
}

// LogNotifier logs codes instead of delivering them. Default when no SMTP
// relay is configured (local development).
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(user *models.User, otp *models.OTP) error {
	n.logger.Info().
		Str("email", user.Email).
		Str("purpose", otp.Purpose).
		Str("code", otp.Code).
		Msg("OTP issued (log-only delivery)")
	return nil
}
