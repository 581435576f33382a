package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestRetryPolicy_RetriesConnectionErrors(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return syncdomain.ConnectionError("fetch", errors.New("connection reset"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func() error {
		attempts++
		return syncdomain.ConnectionError("fetch", errors.New("no route to host"))
	})
	assert.ErrorIs(t, err, syncdomain.ErrConnection)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_NeverRetriesAuthErrors(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func() error {
		attempts++
		return syncdomain.AuthenticationError("login", nil)
	})
	assert.ErrorIs(t, err, syncdomain.ErrAuthentication)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_ParseErrorsPassThrough(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func() error {
		attempts++
		return syncdomain.ParseError("row-1", errors.New("bad xml"))
	})
	assert.ErrorIs(t, err, syncdomain.ErrParse)
	assert.Equal(t, 1, attempts)
}
