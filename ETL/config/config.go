package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PipelineConfig содержит конфигурацию пайплайна метрик виральности
type PipelineConfig struct {
	// Подключение к хранилищу метрик
	Database DatabaseConfig `mapstructure:"database"`

	// Расписания заданий (cron-выражения)
	Schedule ScheduleConfig `mapstructure:"schedule"`

	// Параметры прогнозирования
	Forecast ForecastConfig `mapstructure:"forecast"`

	// Пороговые значения для категориальных индикаторов
	Indicators IndicatorConfig `mapstructure:"indicators"`

	// Количество сущностей, опрашиваемых параллельно
	Parallelism int `mapstructure:"parallelism"`

	Log       LogConfig       `mapstructure:"log"`
	API       APIConfig       `mapstructure:"api"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ScheduleConfig задает расписания трех независимых заданий
type ScheduleConfig struct {
	Ingest   string `mapstructure:"ingest"`
	Funding  string `mapstructure:"funding"`
	Forecast string `mapstructure:"forecast"`
}

// ForecastConfig параметры движка прогнозов
type ForecastConfig struct {
	HistoryLimit   int     `mapstructure:"history_limit"`
	MinPoints      int     `mapstructure:"min_points"`
	HorizonDays    int     `mapstructure:"horizon_days"`
	BandMode       string  `mapstructure:"band_mode"` // "fixed" или "residual"
	BandRatio      float64 `mapstructure:"band_ratio"`
	MinR2Threshold float64 `mapstructure:"min_r2_threshold"`
	ModelVersion   string  `mapstructure:"model_version"`
	RetentionDays  int     `mapstructure:"retention_days"`
}

// IndicatorConfig пороги классификации роста
type IndicatorConfig struct {
	ExplodingGrowth   float64 `mapstructure:"exploding_growth"`
	RegularGrowth     float64 `mapstructure:"regular_growth"`
	AccelerationRatio float64 `mapstructure:"acceleration_ratio"`
	StationaryBand    float64 `mapstructure:"stationary_band"`
	HighVolatility    float64 `mapstructure:"high_volatility"`
	LowVolatility     float64 `mapstructure:"low_volatility"`
}

type LogConfig struct {
	Mode     string `mapstructure:"mode"`
	Detailed bool   `mapstructure:"detailed"`
	File     string `mapstructure:"file"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type WebsocketConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Значения конфигурации по умолчанию
var (
	DefaultDatabaseConfig = DatabaseConfig{
		Driver:          "mysql",
		Host:            "localhost",
		Port:            3306,
		User:            "root",
		DBName:          "virality",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}

	DefaultPipelineConfig = PipelineConfig{
		Database: DefaultDatabaseConfig,
		Schedule: ScheduleConfig{
			Ingest:   "0 0 * * *",   // ежедневно в полночь
			Funding:  "0 */6 * * *", // каждые 6 часов
			Forecast: "0 2 * * *",   // ежедневно в 2:00
		},
		Forecast: ForecastConfig{
			HistoryLimit:   90,
			MinPoints:      30,
			HorizonDays:    30,
			BandMode:       "fixed",
			BandRatio:      0.2,
			MinR2Threshold: 0.30,
			ModelVersion:   "simple_linear_v1",
			RetentionDays:  90,
		},
		Indicators: IndicatorConfig{
			ExplodingGrowth:   1000,
			RegularGrowth:     100,
			AccelerationRatio: 1.5,
			StationaryBand:    5,
			HighVolatility:    50,
			LowVolatility:     10,
		},
		Parallelism: 8,
		Log: LogConfig{
			Mode:     "dev",
			Detailed: true,
			File:     "etl_log.log",
		},
		API:       APIConfig{Addr: ":8080"},
		Metrics:   MetricsConfig{Addr: ":9102"},
		Websocket: WebsocketConfig{PollInterval: 15 * time.Second},
	}
)

// EnvPrefix префикс переменных окружения (VIRALITY_DATABASE_HOST и т.д.)
const EnvPrefix = "VIRALITY"

// Load читает .env, необязательный файл конфигурации и переменные окружения
// поверх значений по умолчанию
func Load(configFile string) (PipelineConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return PipelineConfig{}, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultPipelineConfig)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return PipelineConfig{}, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", configFile, err)
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return PipelineConfig{}, err
	}

	return cfg, nil
}

// setDefaults регистрирует значения по умолчанию, чтобы AutomaticEnv видел все ключи
func setDefaults(v *viper.Viper, d PipelineConfig) {
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("schedule.ingest", d.Schedule.Ingest)
	v.SetDefault("schedule.funding", d.Schedule.Funding)
	v.SetDefault("schedule.forecast", d.Schedule.Forecast)

	v.SetDefault("forecast.history_limit", d.Forecast.HistoryLimit)
	v.SetDefault("forecast.min_points", d.Forecast.MinPoints)
	v.SetDefault("forecast.horizon_days", d.Forecast.HorizonDays)
	v.SetDefault("forecast.band_mode", d.Forecast.BandMode)
	v.SetDefault("forecast.band_ratio", d.Forecast.BandRatio)
	v.SetDefault("forecast.min_r2_threshold", d.Forecast.MinR2Threshold)
	v.SetDefault("forecast.model_version", d.Forecast.ModelVersion)
	v.SetDefault("forecast.retention_days", d.Forecast.RetentionDays)

	v.SetDefault("indicators.exploding_growth", d.Indicators.ExplodingGrowth)
	v.SetDefault("indicators.regular_growth", d.Indicators.RegularGrowth)
	v.SetDefault("indicators.acceleration_ratio", d.Indicators.AccelerationRatio)
	v.SetDefault("indicators.stationary_band", d.Indicators.StationaryBand)
	v.SetDefault("indicators.high_volatility", d.Indicators.HighVolatility)
	v.SetDefault("indicators.low_volatility", d.Indicators.LowVolatility)

	v.SetDefault("parallelism", d.Parallelism)

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.detailed", d.Log.Detailed)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("api.addr", d.API.Addr)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("websocket.poll_interval", d.Websocket.PollInterval)
}

// Validate проверяет согласованность параметров
func (c PipelineConfig) Validate() error {
	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("forecast.horizon_days должен быть положительным, получено: %d", c.Forecast.HorizonDays)
	}
	if c.Forecast.MinPoints < 2 {
		return fmt.Errorf("forecast.min_points должен быть не меньше 2, получено: %d", c.Forecast.MinPoints)
	}
	if c.Forecast.HistoryLimit < c.Forecast.MinPoints {
		return fmt.Errorf("forecast.history_limit (%d) меньше forecast.min_points (%d)",
			c.Forecast.HistoryLimit, c.Forecast.MinPoints)
	}
	if c.Forecast.BandRatio < 0 || c.Forecast.BandRatio >= 1 {
		return fmt.Errorf("forecast.band_ratio должен быть в диапазоне [0, 1), получено: %.3f", c.Forecast.BandRatio)
	}
	switch c.Forecast.BandMode {
	case "fixed", "residual":
	default:
		return fmt.Errorf("неизвестный forecast.band_mode: %q", c.Forecast.BandMode)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism должен быть положительным, получено: %d", c.Parallelism)
	}
	return nil
}
