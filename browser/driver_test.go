package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/website-e2e/config"
)

func TestNewDriverRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default(config.Env{})
	cfg.Driver = "selenium"
	_, err := NewDriver(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selenium")
}

func TestTimeoutMillis(t *testing.T) {
	assert.Equal(t, float64(0), timeoutMillis(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ms := timeoutMillis(ctx)
	assert.Greater(t, ms, float64(59000))
	assert.LessOrEqual(t, ms, float64(60000))

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, float64(1), timeoutMillis(expired))
}

func TestExpectContextBoundsWaits(t *testing.T) {
	ctx, cancel := expectContext(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	bounded, cancel2 := expectContext(context.Background(), time.Second)
	defer cancel2()
	deadline, ok := bounded.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)

	parent, cancel3 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel3()
	inner, cancel4 := expectContext(parent, time.Minute)
	defer cancel4()
	deadline, _ = inner.Deadline()
	assert.True(t, deadline.Before(time.Now().Add(time.Second)), "the caller's deadline still applies")
}

func TestAwaitReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	begin := time.Now()
	title, err := await(ctx, func() (string, error) {
		<-release
		return "too late", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, title)
	assert.Less(t, time.Since(begin), time.Second)

	n, err := await(context.Background(), func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
