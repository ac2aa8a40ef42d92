package schedule

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opstools/snapreaper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInvalidSpec(t *testing.T) {
	log := logger.NewWithWriter(&bytes.Buffer{})
	err := Run(context.Background(), "not a cron spec", log, func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestRunStopsOnCancel(t *testing.T) {
	log := logger.NewWithWriter(&bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "0 3 * * *", log, func() error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunExecutesJob(t *testing.T) {
	log := logger.NewWithWriter(&bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 1)
	go func() {
		_ = Run(ctx, "@every 1s", log, func() error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never ran")
	}
	cancel()
}

// syncBuffer guards concurrent writes from the cron goroutine against
// reads from the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.buf.Bytes(), []byte(s))
}

func TestRunLogsJobFailure(t *testing.T) {
	buf := &syncBuffer{}
	log := logger.NewWithWriter(buf)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 1)
	go func() {
		_ = Run(ctx, "@every 1s", log, func() error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return errors.New("boom")
		})
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never ran")
	}
	cancel()

	// Give the logger a moment; the log write happens in the cron goroutine.
	assert.Eventually(t, func() bool {
		return buf.Contains("Scheduled run failed")
	}, 2*time.Second, 50*time.Millisecond)
}