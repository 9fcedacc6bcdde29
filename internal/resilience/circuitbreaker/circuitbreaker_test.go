package circuitbreaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_PassesThroughSuccess(t *testing.T) {
	cb := New(DefaultConfig("test"))

	result, err := cb.Execute(func() (interface{}, error) {
		return "hello", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", result)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestExecute_PassesThroughError(t *testing.T) {
	cb := New(DefaultConfig("test"))
	opErr := errors.New("upstream failure")

	_, err := cb.Execute(func() (interface{}, error) {
		return nil, opErr
	})

	assert.ErrorIs(t, err, opErr)
}

func TestExecute_OpensAfterFailureThreshold(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.MinRequests = 3
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("fail")
		})
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(func() (interface{}, error) {
		t.Fatal("operation must not run while circuit is open")
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecute_StaysClosedBelowMinRequests(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.MinRequests = 10
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("fail")
		})
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
