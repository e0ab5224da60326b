// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendOTP(toEmail, otp string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendOTP(toEmail, otp string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your Verification Code")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to Mimir!</h2>
			<p>Your verification code is:</p>
			<h1 style="color: #4CAF50; letter-spacing: 5px;">%s</h1>
			<p>This code will expire in 15 minutes.</p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>
	`, otp)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send OTP to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] OTP sent to %s\n", toEmail)
	return nil
}
