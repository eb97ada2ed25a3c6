package models

import "errors"

var (
	// ErrNoData пустой ряд: "нет данных" отличается от "нулевого роста"
	ErrNoData = errors.New("нет данных для расчета")

	// ErrInsufficientHistory истории недостаточно для построения прогноза
	ErrInsufficientHistory = errors.New("недостаточно истории")
)
