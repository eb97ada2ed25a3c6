package extractors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// EntityReadings показания всех каналов для одной сущности
type EntityReadings struct {
	Entity   models.Entity
	Readings map[Channel]Reading
}

// Extractor координирует сбор показаний по всем сущностям
type Extractor struct {
	entities    EntityStore
	sources     map[Channel]MetricSource
	logger      *utils.ETLLogger
	parallelism int
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(entities EntityStore, sources map[Channel]MetricSource, logger *utils.ETLLogger, parallelism int) *Extractor {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Extractor{
		entities:    entities,
		sources:     sources,
		logger:      logger,
		parallelism: parallelism,
	}
}

// ExtractEntities получает все отслеживаемые сущности
func (e *Extractor) ExtractEntities(ctx context.Context) ([]models.Entity, error) {
	entities, err := e.entities.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения сущностей: %w", err)
	}
	return entities, nil
}

// Extract собирает показания всех каналов для всех сущностей.
// Сущности опрашиваются параллельно; сбой источника не прерывает остальных.
func (e *Extractor) Extract(ctx context.Context) ([]EntityReadings, error) {
	startTime := time.Now()
	e.logger.Info("Начало фазы Extract (сбор показаний источников)")

	entities, err := e.ExtractEntities(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]EntityReadings, len(entities))
	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, entity := range entities {
		g.Go(func() error {
			readings, failed := e.CollectReadings(gctx, entity)
			results[i] = EntityReadings{Entity: entity, Readings: readings}
			if failed > 0 {
				mu.Lock()
				failures += failed
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("сбор показаний прерван: %w", err)
	}

	e.logger.Info("Фаза Extract завершена. Длительность: %v. Сущностей: %d, сбоев источников: %d",
		time.Since(startTime), len(results), failures)

	return results, nil
}

// CollectReadings опрашивает все каналы сущности. Ошибка или отсутствие
// источника дают нулевое показание. Возвращает число сбоев.
func (e *Extractor) CollectReadings(ctx context.Context, entity models.Entity) (map[Channel]Reading, int) {
	urls := map[Channel]string{
		ChannelWebsite: entity.WebsiteURL,
		ChannelVideo:   entity.VideoURL,
		ChannelSocial:  entity.SocialURL,
	}

	readings := make(map[Channel]Reading, len(Channels))
	failed := 0

	for _, ch := range Channels {
		src, ok := e.sources[ch]
		if !ok {
			readings[ch] = Reading{}
			continue
		}

		reading, err := src.GetMetrics(ctx, urls[ch])
		if err != nil {
			e.logger.Error("Ошибка источника %s для %s (%d): %v. Используется нулевое показание",
				ch, entity.Name, entity.ID, err)
			metrics.RecordSourceFailure(string(ch))
			failed++
			reading = Reading{}
		}

		readings[ch] = reading
	}

	e.logger.Debug("Показания для %s: %+v", entity.Name, readings)
	return readings, failed
}
