package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// instantTimer fires as soon as it is started.
type instantTimer struct {
	c     chan time.Time
	waits []time.Duration
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func TestDelay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{30, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDelayUncapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second}
	assert.Equal(t, 64*time.Second, p.Delay(7))
}

func TestDelayJitterBounded(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: true}
	for i := 0; i < 200; i++ {
		d := p.Delay(3)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.LessOrEqual(t, d, 600*time.Millisecond)
	}
}

func TestDo(t *testing.T) {
	transient := errors.New("connection reset")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		timer := &instantTimer{}
		p := Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, timer: timer}
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, timer.waits)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		p := Policy{MaxAttempts: 2, timer: &instantTimer{}}
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return transient
		})
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		p := Policy{MaxAttempts: 5, timer: &instantTimer{}}
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return apperrors.MarkPermanent(transient)
		})
		assert.Error(t, err)
		assert.True(t, apperrors.IsPermanent(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("predicate rejects", func(t *testing.T) {
		p := Policy{MaxAttempts: 5, timer: &instantTimer{}, Retryable: func(error) bool { return false }}
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return transient
		})
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}
		calls := 0
		err := p.Do(ctx, func(context.Context) error {
			calls++
			return transient
		})
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, calls)
	})
}
