package extractors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
}

func TestValidChannelURL(t *testing.T) {
	assert.True(t, ValidChannelURL("https://example.com"))
	assert.True(t, ValidChannelURL(" http://example.com/path "))
	assert.False(t, ValidChannelURL(""))
	assert.False(t, ValidChannelURL("example.com"))
	assert.False(t, ValidChannelURL("ftp://example.com"))
	assert.False(t, ValidChannelURL("https://"))
}

func TestDeterministicSource(t *testing.T) {
	src, err := NewDeterministicSource(ChannelWebsite, fixedNow)
	require.NoError(t, err)

	first, err := src.GetMetrics(context.Background(), "https://example.com")
	require.NoError(t, err)
	second, err := src.GetMetrics(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.GreaterOrEqual(t, first.Virality, 5000.0)
	assert.Less(t, first.Virality, 6000.0)
	assert.GreaterOrEqual(t, first.Audience, 500000.0)
	assert.Less(t, first.Audience, 600000.0)
}

func TestDeterministicSourceInvalidURL(t *testing.T) {
	for _, ch := range Channels {
		src, err := NewDeterministicSource(ch, fixedNow)
		require.NoError(t, err)

		for _, raw := range []string{"", "not a url", "mailto:someone"} {
			reading, err := src.GetMetrics(context.Background(), raw)
			require.NoError(t, err)
			assert.Equal(t, Reading{}, reading, "канал %s, url %q", ch, raw)
		}
	}
}

func TestNewDeterministicSourceUnknownChannel(t *testing.T) {
	_, err := NewDeterministicSource(Channel("tiktok"), fixedNow)
	assert.Error(t, err)
}

func TestDeterministicFundingSource(t *testing.T) {
	src := NewDeterministicFundingSource(fixedNow)

	announced := 0
	for i := 0; i < 400; i++ {
		name := "entity-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		a, err := src.GetLatestRound(context.Background(), name)
		require.NoError(t, err)
		if a == nil {
			continue
		}
		announced++
		assert.Contains(t, fundingRoundTypes, a.RoundType)
		assert.GreaterOrEqual(t, a.Amount, 10_000_000.0)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), a.Date)

		again, err := src.GetLatestRound(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, a, again)
	}

	assert.Less(t, announced, 400)
}
