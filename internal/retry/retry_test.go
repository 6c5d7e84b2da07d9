package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{Attempts: 5, Delay: time.Millisecond},
		func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("not found")
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	var notified []uint
	notFound := errors.New("transaction not found")

	_, err := Do(context.Background(), Policy{Attempts: 5, Delay: time.Millisecond},
		func(context.Context) (string, error) {
			calls++
			return "", notFound
		},
		WithNotify(func(attempt uint, _ error, _ time.Duration) {
			notified = append(notified, attempt)
		}))

	require.ErrorIs(t, err, notFound)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []uint{1, 2, 3, 4}, notified)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("bad request")

	_, err := Do(context.Background(), LookupPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(fatal)
	})

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, Policy{Attempts: 10, Delay: 50 * time.Millisecond}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Policy{}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("x")
	})
	assert.Equal(t, 1, calls)
}
