package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrappers(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"connection", ConnectionError("GET /products", cause), ErrConnection},
		{"authentication", AuthenticationError("login", cause), ErrAuthentication},
		{"authentication without cause", AuthenticationError("login rejected", nil), ErrAuthentication},
		{"parse", ParseError("row 9", cause), ErrParse},
		{"transform", TransformError("KEF-LS50", cause), ErrTransform},
		{"persistence", PersistenceError("KEF-LS50", cause), ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestErrorWrappers_SurviveFurtherWrapping(t *testing.T) {
	err := fmt.Errorf("page 3: %w", ConnectionError("GET", errors.New("refused")))
	assert.ErrorIs(t, err, ErrConnection)
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ConnectionError("GET", errors.New("refused"))))
	assert.False(t, IsRetryable(AuthenticationError("login", nil)))
	assert.False(t, IsRetryable(ParseError("row 1", errors.New("bad json"))))
	assert.False(t, IsRetryable(errors.New("unclassified")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ConnectionError("GET", errors.New("refused"))))
	assert.True(t, IsFatal(AuthenticationError("login", nil)))
	assert.True(t, IsFatal(fmt.Errorf("%w: panic in fetch", ErrSyncFailure)))
	assert.False(t, IsFatal(ParseError("row 1", errors.New("bad xml"))))
	assert.False(t, IsFatal(TransformError("row 2", errors.New("no sku"))))
	assert.False(t, IsFatal(PersistenceError("row 3", errors.New("write refused"))))
}
