// websocket/poller.go
package websocket

import (
	"context"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// RunFeed завершенные запуски заданий
type RunFeed interface {
	ListFinishedRunsAfter(ctx context.Context, afterID int64) ([]models.ETLRunLog, error)
}

// FundingFeed новые раунды финансирования
type FundingFeed interface {
	ListRoundsAfter(ctx context.Context, afterID int64) ([]models.FundingRound, error)
}

// Publisher получатель событий ленты
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

const defaultPollInterval = 15 * time.Second

// Poller опрашивает журнал запусков и таблицу раундов и публикует
// новые записи в ленту
type Poller struct {
	runs      RunFeed
	funding   FundingFeed
	publisher Publisher
	interval  time.Duration
	logger    *utils.ETLLogger

	lastRunID     int64
	lastFundingID int64
}

// NewPoller создает опрашивающий источник ленты
func NewPoller(runs RunFeed, funding FundingFeed, publisher Publisher, interval time.Duration, logger *utils.ETLLogger) *Poller {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		runs:      runs,
		funding:   funding,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Prime запоминает текущие последние ID, чтобы не рассылать историю
func (p *Poller) Prime(ctx context.Context) error {
	runs, err := p.runs.ListFinishedRunsAfter(ctx, 0)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if r.ID > p.lastRunID {
			p.lastRunID = r.ID
		}
	}

	rounds, err := p.funding.ListRoundsAfter(ctx, 0)
	if err != nil {
		return err
	}
	for _, f := range rounds {
		if f.ID > p.lastFundingID {
			p.lastFundingID = f.ID
		}
	}
	return nil
}

// PollOnce публикует записи, появившиеся с прошлого опроса.
// Возвращает количество опубликованных событий.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	published := 0

	runs, err := p.runs.ListFinishedRunsAfter(ctx, p.lastRunID)
	if err != nil {
		return published, err
	}
	for _, r := range runs {
		if err := p.publisher.Publish(ctx, EventPipelineRun, r); err != nil {
			return published, err
		}
		if r.ID > p.lastRunID {
			p.lastRunID = r.ID
		}
		published++
	}

	rounds, err := p.funding.ListRoundsAfter(ctx, p.lastFundingID)
	if err != nil {
		return published, err
	}
	for _, f := range rounds {
		if err := p.publisher.Publish(ctx, EventFundingRound, f); err != nil {
			return published, err
		}
		if f.ID > p.lastFundingID {
			p.lastFundingID = f.ID
		}
		published++
	}

	return published, nil
}

// Run опрашивает источники с интервалом до отмены контекста
func (p *Poller) Run(ctx context.Context) {
	if err := p.Prime(ctx); err != nil {
		p.logger.Warn("Не удалось определить начальную позицию ленты: %v", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PollOnce(ctx)
			if err != nil {
				p.logger.Warn("Ошибка опроса ленты: %v", err)
				continue
			}
			if n > 0 {
				p.logger.Debug("Опубликовано событий: %d", n)
			}
		}
	}
}
