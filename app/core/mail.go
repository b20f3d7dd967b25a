package core

import (
	"crypto/tls"
	"errors"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrMailNotConfigured = errors.New("mail server not configured")

type Attachment struct {
	Name string
	Data []byte
}

type Mail struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	Body        string // html
	Attachments []Attachment
}

type Mailer interface {
	Send(mail Mail) error
}

// SMTPMailer delivers mail through the configured smtp server.
type SMTPMailer struct {
	config ConfigurationMailServer
}

func NewSMTPMailer(config ConfigurationMailServer) *SMTPMailer {
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) message(mail Mail) *gomail.Message {
	from := mail.From
	if from == "" {
		from = m.config.From
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", mail.To...)
	if len(mail.Cc) > 0 {
		msg.SetHeader("Cc", mail.Cc...)
	}
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/html", mail.Body)
	for _, attachment := range mail.Attachments {
		data := attachment.Data
		msg.Attach(attachment.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return msg
}

func (m *SMTPMailer) Send(mail Mail) error {
	if m.config.SmtpHost == "" {
		return ErrMailNotConfigured
	}
	if len(mail.To) == 0 {
		return nil
	}

	d := gomail.NewDialer(m.config.SmtpHost, m.config.SmtpPort, m.config.SmtpUsername, m.config.SmtpPassword)
	d.TLSConfig = &tls.Config{InsecureSkipVerify: m.config.InsecureSkipVerify, ServerName: m.config.SmtpHost}

	err := d.DialAndSend(m.message(mail))
	if err != nil {
		Logger.Error("sending mail failed", zap.Strings("to", mail.To), zap.String("subject", mail.Subject), zap.Error(err))
	}
	return err
}
