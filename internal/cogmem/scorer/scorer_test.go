package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestImportance(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		assistant string
		expected  float32
	}{
		{
			name:     "neutral exchange stays at baseline",
			user:     "What's the weather like today?",
			expected: 0.5,
		},
		{
			name:     "explicit remember request",
			user:     "Please remember that I prefer tea over coffee.",
			expected: 0.8, // baseline + remember bonus; "i prefer" doesn't match a personal phrase
		},
		{
			name:     "identity statement",
			user:     "My name is Alex and I work at a bakery.",
			expected: 0.7,
		},
		{
			name:     "commitment",
			user:     "I will send you the report tomorrow.",
			expected: 0.75,
		},
		{
			name:     "saturates at one",
			user:     "Remember this: I am a chef and I will cook dinner tonight, I promise.",
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Importance(tt.user, tt.assistant)
			assert.InDelta(t, tt.expected, got, 0.001)
		})
	}
}

func TestImportanceNoPersonalFalsePositive(t *testing.T) {
	got := Importance("Remember that the meeting is at 3pm.", "")
	assert.InDelta(t, float32(0.8), got, 0.001)
}

func TestDecayAtCaptureTime(t *testing.T) {
	now := time.Now()
	got := Decay(0.8, now, now)
	assert.Equal(t, float32(0.8), got)
}

func TestDecayNonPositiveBase(t *testing.T) {
	now := time.Now()
	past := now.Add(-48 * time.Hour)
	assert.Equal(t, float32(0), Decay(0, past, now))
	assert.Equal(t, float32(0), Decay(-0.1, past, now))
}

func TestDecayHalvesAtHalfLife(t *testing.T) {
	base := float32(0.5)
	capturedAt := time.Now()
	// half_life = 100 * base = 50 days
	now := capturedAt.Add(50 * 24 * time.Hour)

	got := Decay(base, capturedAt, now)
	assert.InDelta(t, base/2, got, 0.005)
}

func TestDecayMoreImportantMemoriesDecaySlower(t *testing.T) {
	capturedAt := time.Now()
	now := capturedAt.Add(30 * 24 * time.Hour)

	low := Decay(0.2, capturedAt, now)
	high := Decay(0.9, capturedAt, now)

	// Compare fraction of base retained, not absolute value.
	lowRetained := low / 0.2
	highRetained := high / 0.9

	assert.Greater(t, highRetained, lowRetained)
}

func TestDecayFutureCapturedAtReturnsBase(t *testing.T) {
	now := time.Now()
	futureCapture := now.Add(time.Hour)
	assert.Equal(t, float32(0.5), Decay(0.5, futureCapture, now))
}
