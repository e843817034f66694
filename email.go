package phoneauth

import "log"

// Delivery carries verification and reset links to the user. The library
// fires these and moves on; transport (SMTP, SMS gateway) is the host's
// concern and failures are logged, not surfaced to the requester.
type Delivery interface {
	SendEmailVerification(to, link string) error
	SendPhoneVerification(to, link string) error
	SendEmailPasswordReset(to, link string) error
	SendPhonePasswordReset(to, link string) error
}

// ConsoleDelivery is a development implementation that logs links to the
// console instead of sending anything.
type ConsoleDelivery struct{}

func (c *ConsoleDelivery) SendEmailVerification(to, link string) error {
	log.Printf("\n=== EMAIL: Verification ===")
	log.Printf("To: %s", to)
	log.Printf("Body: Please verify your email by clicking: %s", link)
	log.Printf("===========================\n")
	return nil
}

func (c *ConsoleDelivery) SendPhoneVerification(to, link string) error {
	log.Printf("\n=== SMS: Verification ===")
	log.Printf("To: %s", to)
	log.Printf("Body: Verify your phone number: %s", link)
	log.Printf("=========================\n")
	return nil
}

func (c *ConsoleDelivery) SendEmailPasswordReset(to, link string) error {
	log.Printf("\n=== EMAIL: Password Reset ===")
	log.Printf("To: %s", to)
	log.Printf("Body: Reset your password by clicking: %s", link)
	log.Printf("==============================\n")
	return nil
}

func (c *ConsoleDelivery) SendPhonePasswordReset(to, link string) error {
	log.Printf("\n=== SMS: Password Reset ===")
	log.Printf("To: %s", to)
	log.Printf("Body: Reset your password: %s", link)
	log.Printf("===========================\n")
	return nil
}
