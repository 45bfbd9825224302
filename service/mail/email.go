package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"zestpass/util"
)

const (
	defaultHost = "smtp.gmail.com"
	defaultPort = "587"
)

// Universal interface for mail service
type MailService interface {
	SendEmail(to, subject, body string) error
}

// SMTP email service
type EmailService struct {
	Host  string
	Port  string
	Email string
	Auth  smtp.Auth
}

// Constructor for the SMTP email service. Sends through Gmail with an app password
func NewEmailService(email, password string) *EmailService {
	return &EmailService{
		Host:  defaultHost,
		Port:  defaultPort,
		Email: email,
		Auth:  smtp.PlainAuth("", email, password, defaultHost),
	}
}

// Send an HTML email
func (service *EmailService) SendEmail(to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("missing recipient")
	}

	return smtp.SendMail(
		service.Host+":"+service.Port,
		service.Auth,
		service.Email,
		[]string{to},
		buildMessage(service.Email, to, subject, body),
	)
}

// Headers in a fixed order, then the HTML body
func buildMessage(from, to, subject, body string) []byte {
	var message strings.Builder
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	for _, header := range headers {
		fmt.Fprintf(&message, "%s: %s\r\n", header[0], header[1])
	}
	message.WriteString("\r\n")
	message.WriteString(body)
	return []byte(message.String())
}

// Mail service for local runs without SMTP credentials: emails are only logged
type LogMailService struct{}

func (LogMailService) SendEmail(to, subject, body string) error {
	util.LOGGER.Info("Email not sent, no SMTP credentials", "to", to, "subject", subject, "size", len(body))
	return nil
}
