package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowSpecValidate(t *testing.T) {
	valid := WindowSpec{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 15 * time.Minute}
	assert.NoError(t, valid.Validate())

	assert.Error(t, WindowSpec{Duration: time.Hour, Granularity: time.Minute}.Validate())
	assert.Error(t, WindowSpec{Name: "x", Granularity: time.Minute}.Validate())
	assert.Error(t, WindowSpec{Name: "x", Duration: time.Hour}.Validate())
	assert.Error(t, WindowSpec{Name: "x", Duration: time.Hour, Granularity: -time.Minute}.Validate())
}

func TestEffectiveGranularityKeepsValidRequest(t *testing.T) {
	w := WindowSpec{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 15 * time.Minute}
	// 7d / 15m = 672 points, well under the ceiling.
	assert.Equal(t, 15*time.Minute, w.EffectiveGranularity(1440, 60*time.Second))
}

func TestEffectiveGranularityRaisesToPointCeiling(t *testing.T) {
	// 30d at 60s would be 43200 points; the floor is 30d/1440 = 30m.
	w := WindowSpec{Name: "30d", Duration: 30 * 24 * time.Hour, Granularity: 60 * time.Second}
	got := w.EffectiveGranularity(1440, 60*time.Second)
	assert.Equal(t, 30*time.Minute, got)
	assert.LessOrEqual(t, int(w.Duration/got), 1440)
}

func TestEffectiveGranularityRoundsToMinMultiple(t *testing.T) {
	// 25h at 1440 points floors to 62.5s, which must round up to 120s.
	w := WindowSpec{Name: "odd", Duration: 25 * time.Hour, Granularity: time.Second}
	got := w.EffectiveGranularity(1440, 60*time.Second)
	assert.Equal(t, 2*time.Minute, got)
	assert.Zero(t, got%(60*time.Second))
	assert.LessOrEqual(t, int(w.Duration/got), 1440)
}

func TestEffectiveGranularityDefaults(t *testing.T) {
	w := WindowSpec{Name: "1h", Duration: time.Hour, Granularity: time.Second}
	// Zero limits fall back to 1440 points / 60s.
	assert.Equal(t, 60*time.Second, w.EffectiveGranularity(0, 0))
}

func TestExpectedSamples(t *testing.T) {
	w := WindowSpec{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 15 * time.Minute}
	assert.Equal(t, 672, w.ExpectedSamples(15*time.Minute))
	assert.Equal(t, 0, w.ExpectedSamples(0))
}

func TestWindowRange(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w := WindowSpec{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 15 * time.Minute}
	start, end := w.Range(now)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-7*24*time.Hour), start)
}

func TestDefaultWindows(t *testing.T) {
	windows := DefaultWindows()
	require.Len(t, windows, 2)
	assert.Equal(t, "7d", windows[0].Name)
	assert.Equal(t, "30d", windows[1].Name)
	assert.Less(t, windows[0].Duration, windows[1].Duration)
	for _, w := range windows {
		assert.NoError(t, w.Validate())
	}
}
