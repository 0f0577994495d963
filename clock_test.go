package redkv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockAdvances(t *testing.T) {
	first := RealClock.NowMillis()
	time.Sleep(2 * time.Millisecond)
	second := RealClock.NowMillis()
	assert.Greater(t, second, first)
}

func TestMockClockSetAndAdvance(t *testing.T) {
	session := NewMockClockSession()
	defer session.Close()

	session.Clock.SetMillis(1000)
	assert.EqualValues(t, 1000, session.Clock.NowMillis())

	session.Clock.Advance(500 * time.Millisecond)
	assert.EqualValues(t, 1500, session.Clock.NowMillis())
}

func TestMockClockSessionGrantsFreshClockAfterClose(t *testing.T) {
	first := NewMockClockSession()
	first.Clock.SetMillis(42)
	first.Close()

	second := NewMockClockSession()
	defer second.Close()
	// A fresh session gets its own clock, unaffected by the prior one.
	assert.NotEqual(t, int64(42), second.Clock.NowMillis())
}
