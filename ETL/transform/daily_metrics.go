package transform

import (
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
	"github.com/LilVoxy/virality_metrics/processor"
)

// BuildDailyMetric объединяет показания каналов в дневной агрегат.
// Volume = сумма аудиторий каналов; итоговая виральность считается позже
// калькулятором индикаторов.
func BuildDailyMetric(entity models.Entity, date time.Time, readings map[extractors.Channel]extractors.Reading) (models.DailyMetric, error) {
	metric := models.DailyMetric{
		EntityID:        entity.ID,
		MetricDate:      utils.TruncateToDay(date),
		WebsiteVirality: readings[extractors.ChannelWebsite].Virality,
		VideoVirality:   readings[extractors.ChannelVideo].Virality,
		SocialVirality:  readings[extractors.ChannelSocial].Virality,
	}

	for _, ch := range extractors.Channels {
		metric.Volume += readings[ch].Audience
	}

	raw, err := processor.PackJSON(readings)
	if err != nil {
		return models.DailyMetric{}, fmt.Errorf("ошибка упаковки показаний для сущности %d: %w", entity.ID, err)
	}
	metric.RawReadings = raw

	return metric, nil
}

// DecodeRawReadings распаковывает архив исходных показаний строки.
// Для строки без архива возвращает nil.
func DecodeRawReadings(m models.DailyMetric) (map[extractors.Channel]extractors.Reading, error) {
	if len(m.RawReadings) == 0 {
		return nil, nil
	}
	var readings map[extractors.Channel]extractors.Reading
	if err := processor.UnpackJSON(m.RawReadings, &readings); err != nil {
		return nil, fmt.Errorf("ошибка распаковки показаний сущности %d за %s: %w",
			m.EntityID, m.MetricDate.Format(utils.DateLayout), err)
	}
	return readings, nil
}

// BuildDailyMetrics строит дневные агрегаты для всех сущностей
func BuildDailyMetrics(date time.Time, collected []extractors.EntityReadings) ([]models.DailyMetric, error) {
	metrics := make([]models.DailyMetric, 0, len(collected))
	for _, c := range collected {
		m, err := BuildDailyMetric(c.Entity, date, c.Readings)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
