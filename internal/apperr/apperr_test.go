package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := Forbidden("not your job")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("accept: %w", err)
	assert.True(t, errors.Is(wrapped, ErrForbidden))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
}

func TestAsCarriesHints(t *testing.T) {
	err := fmt.Errorf("switch: %w", &Error{Kind: KindRateLimited, Message: "slow down", RetryAfter: 42 * time.Second})

	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, 42*time.Second, e.RetryAfter)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(KindGatewayError, "initiate", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "timeout")
}
