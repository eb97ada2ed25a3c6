package utils

import "time"

// DateLayout формат календарной даты, используемый в таблицах пайплайна
const DateLayout = "2006-01-02"

// TruncateToDay отбрасывает время суток, оставляя дату в UTC
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween возвращает количество целых календарных дней между датами
func DaysBetween(from, to time.Time) int {
	return int(TruncateToDay(to).Sub(TruncateToDay(from)).Hours() / 24)
}
