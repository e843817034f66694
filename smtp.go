package phoneauth

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SendSMSFunc delivers a single SMS. Hosts plug in their gateway of choice.
type SendSMSFunc func(to, body string) error

// SMTPDelivery sends verification and reset emails over SMTP. Phone
// deliveries are delegated to SendSMS; with no SMS hook configured they are
// reported as errors so the caller's log shows the gap.
type SMTPDelivery struct {
	dialer  *gomail.Dialer
	from    string
	SendSMS SendSMSFunc
}

// NewSMTPDelivery builds an SMTP-backed Delivery.
func NewSMTPDelivery(host string, port int, username, password, from string) *SMTPDelivery {
	return &SMTPDelivery{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPDelivery) SendEmailVerification(to, link string) error {
	body := fmt.Sprintf(`
		<h3>Verify your email address</h3>
		<p>Click the link below to confirm this address belongs to you:</p>
		<p><a href="%s">%s</a></p>
		<p>If you did not request this, you can ignore this email.</p>
	`, link, link)
	return s.send(to, "Verify your email address", body)
}

func (s *SMTPDelivery) SendEmailPasswordReset(to, link string) error {
	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p><a href="%s">Reset your password</a></p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, link)
	return s.send(to, "Password reset request", body)
}

func (s *SMTPDelivery) SendPhoneVerification(to, link string) error {
	return s.sms(to, "Verify your phone number: "+link)
}

func (s *SMTPDelivery) SendPhonePasswordReset(to, link string) error {
	return s.sms(to, "Reset your password: "+link)
}

func (s *SMTPDelivery) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPDelivery) sms(to, body string) error {
	if s.SendSMS == nil {
		return fmt.Errorf("no SMS sender configured")
	}
	return s.SendSMS(to, body)
}
