// Package mailer delivers verification codes outside the application, so the
// code never lands anywhere the account itself can read it back.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Enabled reports whether an SMTP relay is configured.
func (c Config) Enabled() bool {
	return c.Host != "" && c.FromAddress != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends verification codes by email.
type SMTPMailer struct {
	cfg  Config
	log  *zap.Logger
	send sendFunc
}

func NewSMTPMailer(cfg Config, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log, send: smtp.SendMail}
}

func (m *SMTPMailer) SendCode(ctx context.Context, to *models.User, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to.Email == "" {
		return fmt.Errorf("account %s has no email address", to.ID)
	}

	msg := m.buildMessage(to, "Your FundiConnect verification code",
		fmt.Sprintf("Hello %s,\r\n\r\nYour FundiConnect verification code is %s.\r\nIt expires shortly. If you did not ask for it, ignore this email.\r\n", to.Name, code))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.FromAddress, []string{to.Email}, msg); err != nil {
		m.log.Error("send verification email", zap.Stringer("user_id", to.ID), zap.Error(err))
		return fmt.Errorf("send verification email: %w", err)
	}

	m.log.Info("verification email sent", zap.Stringer("user_id", to.ID))
	return nil
}

func (m *SMTPMailer) buildMessage(to *models.User, subject, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromAddress))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to.Email))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// LogMailer writes codes to the server log. Development only.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) SendCode(_ context.Context, to *models.User, code string) error {
	m.Log.Warn("smtp not configured, verification code logged", zap.Stringer("user_id", to.ID), zap.String("code", code))
	return nil
}
