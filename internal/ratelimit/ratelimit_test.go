package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

func TestLimiter_Burst(t *testing.T) {
	l := New(60, WithBurst(3))

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestLimiter_BurstWithMaxWait(t *testing.T) {
	l := New(60, WithMaxWait(10*time.Millisecond), WithBurst(2))
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeRateLimitExceeded, apperror.GetCode(err))
}

func TestLimiter_WaitPaces(t *testing.T) {
	// 1200/min is one slot every 50ms
	l := New(1200)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiter_MaxWait(t *testing.T) {
	l := New(1, WithMaxWait(100*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeRateLimitExceeded, apperror.GetCode(err))
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := New(1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestLimiter_SetPerMinute(t *testing.T) {
	l := New(1, WithMaxWait(time.Second))
	require.True(t, l.Allow())

	l.SetPerMinute(6000)
	assert.NoError(t, l.Wait(context.Background()))
}
