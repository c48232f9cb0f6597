package storage

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Run("network timeout is retryable", func(t *testing.T) {
		err := &net.DNSError{Err: "lookup timed out", IsTimeout: true}
		assert.True(t, isRetryable(err))
	})

	t.Run("wrapped connection error is retryable", func(t *testing.T) {
		opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		err := fmt.Errorf("failed to list chunk files at s3://b/p: %w", opErr)
		assert.True(t, isRetryable(err))
	})

	t.Run("service response error is not retryable", func(t *testing.T) {
		assert.False(t, isRetryable(errors.New("NoSuchBucket: the specified bucket does not exist")))
	})
}
