package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

func TestSMTPMailerSendCode(t *testing.T) {
	cfg := Config{Host: "smtp.test", Port: 587, Username: "mailer", Password: "pw", FromAddress: "no-reply@fundiconnect.test", FromName: "FundiConnect"}
	m := NewSMTPMailer(cfg, zap.NewNop())

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.NotNil(t, a)
		assert.Equal(t, "no-reply@fundiconnect.test", from)
		return nil
	}

	u := &models.User{ID: uuid.New(), Name: "Achieng", Email: "achieng@example.com"}
	require.NoError(t, m.SendCode(context.Background(), u, "482913"))

	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, []string{"achieng@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: achieng@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Your FundiConnect verification code\r\n")
	assert.Contains(t, gotMsg, "482913")
}

func TestSMTPMailerErrors(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.test", Port: 25, FromAddress: "a@b.c"}, zap.NewNop())
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }

	err := m.SendCode(context.Background(), &models.User{ID: uuid.New(), Email: "x@example.com"}, "000001")
	assert.ErrorContains(t, err, "relay down")

	err = m.SendCode(context.Background(), &models.User{ID: uuid.New()}, "000001")
	assert.Error(t, err)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Host: "smtp.test", FromAddress: "a@b.c"}.Enabled())
}
