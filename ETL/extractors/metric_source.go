package extractors

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"time"
)

// Channel канал, с которого снимаются показания
type Channel string

const (
	ChannelWebsite Channel = "website"
	ChannelVideo   Channel = "video"
	ChannelSocial  Channel = "social"
)

// Channels порядок опроса каналов
var Channels = []Channel{ChannelWebsite, ChannelVideo, ChannelSocial}

// Reading показание источника: виральность и размер аудитории
type Reading struct {
	Virality float64 `json:"virality"`
	Audience float64 `json:"audience"`
}

// MetricSource источник показаний одного канала.
// Для пустого или некорректного URL возвращает нулевое показание без ошибки.
type MetricSource interface {
	GetMetrics(ctx context.Context, channelURL string) (Reading, error)
}

// ValidChannelURL проверяет, что URL пригоден для опроса источника
func ValidChannelURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// sourceRange диапазоны показаний канала
type sourceRange struct {
	viralityBase, viralitySpan float64
	audienceBase, audienceSpan float64
}

var channelRanges = map[Channel]sourceRange{
	ChannelWebsite: {viralityBase: 5000, viralitySpan: 1000, audienceBase: 500000, audienceSpan: 100000},
	ChannelVideo:   {viralityBase: 3000, viralitySpan: 800, audienceBase: 100000, audienceSpan: 50000},
	ChannelSocial:  {viralityBase: 4000, viralitySpan: 1500, audienceBase: 200000, audienceSpan: 80000},
}

// DeterministicSource заглушка внешнего API: значения детерминированно
// выводятся из хэша (канал, URL, дата), без случайности
type DeterministicSource struct {
	channel Channel
	now     func() time.Time
}

// NewDeterministicSource создает источник для канала
func NewDeterministicSource(channel Channel, now func() time.Time) (*DeterministicSource, error) {
	if _, ok := channelRanges[channel]; !ok {
		return nil, fmt.Errorf("неизвестный канал: %s", channel)
	}
	if now == nil {
		now = time.Now
	}
	return &DeterministicSource{channel: channel, now: now}, nil
}

// GetMetrics возвращает показание для URL
func (s *DeterministicSource) GetMetrics(ctx context.Context, channelURL string) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if !ValidChannelURL(channelURL) {
		return Reading{}, nil
	}

	r := channelRanges[s.channel]
	day := s.now().UTC().Format("2006-01-02")

	return Reading{
		Virality: r.viralityBase + float64(hashMod(string(s.channel), channelURL, day, "virality")%uint64(r.viralitySpan)),
		Audience: r.audienceBase + float64(hashMod(string(s.channel), channelURL, day, "audience")%uint64(r.audienceSpan)),
	}, nil
}

func hashMod(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// StaticSource возвращает заранее заданные показания по URL (тестовый двойник)
type StaticSource struct {
	Readings map[string]Reading
	Errors   map[string]error
}

// GetMetrics возвращает заданное показание или ошибку
func (s *StaticSource) GetMetrics(_ context.Context, channelURL string) (Reading, error) {
	if err, ok := s.Errors[channelURL]; ok {
		return Reading{}, err
	}
	return s.Readings[channelURL], nil
}

// DefaultSources набор детерминированных источников для всех каналов
func DefaultSources(now func() time.Time) map[Channel]MetricSource {
	sources := make(map[Channel]MetricSource, len(Channels))
	for _, ch := range Channels {
		src, _ := NewDeterministicSource(ch, now)
		sources[ch] = src
	}
	return sources
}
