package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTimerFiresOnAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	timer := clk.NewTimer(50 * time.Millisecond)
	assert.Equal(t, 1, clk.Waiters())

	clk.Advance(49 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clk.Advance(time.Millisecond)
	select {
	case fired := <-timer.C():
		assert.Equal(t, start.Add(50*time.Millisecond), fired)
	default:
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 0, clk.Waiters())
}

func TestManualTimerResetAndStop(t *testing.T) {
	clk := NewManual(time.Unix(0, 0))
	timer := clk.NewTimer(time.Second)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clk.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}

	assert.False(t, timer.Reset(time.Second))
	clk.Advance(time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("reset timer did not fire")
	}
}

func TestRealTimer(t *testing.T) {
	timer := Real().NewTimer(time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		require.FailNow(t, "real timer did not fire")
	}
}
