// database/ranges.go
package database

import (
	"fmt"
	"strings"
)

// rangeDays допустимые периоды графиков дашборда
var rangeDays = map[string]int{
	"7d":  7,
	"30d": 30,
	"3m":  90,
	"6m":  180,
	"12m": 365,
	"1y":  365,
	"5y":  5 * 365,
	"any": 0,
}

// ParseRange переводит период ("7d", "3m", "any") в количество дней.
// 0 означает всю историю, пустая строка - 30 дней.
func ParseRange(s string) (int, error) {
	if s == "" {
		return 30, nil
	}
	days, ok := rangeDays[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("неизвестный период %q", s)
	}
	return days, nil
}
