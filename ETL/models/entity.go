package models

import (
	"strings"
	"time"
)

// Entity представляет отслеживаемую компанию/продукт.
// Пайплайн только читает сущности, создаются они внешним процессом регистрации.
type Entity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Categories []string  `json:"categories"`
	WebsiteURL string    `json:"website_url"`
	VideoURL   string    `json:"video_url"`
	SocialURL  string    `json:"social_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ParseCategories разбирает список категорий, хранимый через запятую
func ParseCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	categories := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}

// HasCategory проверяет принадлежность к категории без учета регистра
func HasCategory(categories []string, category string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
