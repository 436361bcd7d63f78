package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Режимы запуска сервиса
const (
	ModeOneShot = "oneshot" // один прогон по преднастроенным источникам
	ModeWorker  = "worker"  // слушать задачи из RabbitMQ
)

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	URL string
}

// DBconfig хранит конфигурацию для БД.
// URL опционален: без него записи сохраняются только в файлы.
type DBconfig struct {
	URL string
}

type StdoutLogConfig struct {
	Level string `mapstructure:"STDOUT_LOG_LEVEL" default:"debug"` // По умолчанию DEBUG
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string `mapstructure:"FLUENTBIT_LOG_LEVEL" default:"info"` // По умолчанию INFO
}

// FetcherConfig - настройки HTTP-обхода сайтов
type FetcherConfig struct {
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	RequestTimeout  time.Duration
	MinHostInterval time.Duration
	HostJitter      time.Duration
	Parallelism     int
}

// GeocoderConfig - настройки клиента Nominatim
type GeocoderConfig struct {
	BaseURL     string
	UserAgent   string
	Email       string
	MaxAttempts int
	MinInterval time.Duration
}

// OutputConfig - куда складывать файлы с результатами
type OutputConfig struct {
	Dir string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Mode         string
	Database     DBconfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	Fetcher      FetcherConfig
	Geocoder     GeocoderConfig
	Output       OutputConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {

	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}

	if err != nil {
		// Отсутствие .env не фатально: переменные могут прийти из окружения
		log.Printf("Info: Could not load .env file (path: %v): %v.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = os.Getenv("APP_NAME")
	if cfg.AppName == "" {
		cfg.AppName = "property-harvester-service" // Устанавливаем default
	}

	cfg.Mode = getEnvAsString("RUN_MODE", ModeOneShot)
	if cfg.Mode != ModeOneShot && cfg.Mode != ModeWorker {
		return nil, fmt.Errorf("RUN_MODE must be '%s' or '%s', got '%s'", ModeOneShot, ModeWorker, cfg.Mode)
	}

	// Читаем DATABASE URL. Пустое значение выключает сохранение в БД.
	cfg.Database.URL = os.Getenv("DATABASE_URL")

	// Читаем конфигурацию для RabbitMQ. Обязательна только в режиме worker.
	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	if cfg.Mode == ModeWorker && cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL environment variable is required in worker mode")
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	cfg.Fetcher.MaxAttempts = getEnvAsInt("FETCHER_MAX_ATTEMPTS", 3)
	cfg.Fetcher.RetryBaseDelay = getEnvAsDuration("FETCHER_RETRY_BASE_DELAY", 2*time.Second)
	cfg.Fetcher.RequestTimeout = getEnvAsDuration("FETCHER_REQUEST_TIMEOUT", 30*time.Second)
	cfg.Fetcher.MinHostInterval = getEnvAsDuration("FETCHER_MIN_HOST_INTERVAL", 1*time.Second)
	cfg.Fetcher.HostJitter = getEnvAsDuration("FETCHER_HOST_JITTER", 500*time.Millisecond)
	cfg.Fetcher.Parallelism = getEnvAsInt("FETCHER_PARALLELISM", 1)

	cfg.Geocoder.BaseURL = getEnvAsString("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org/search")
	cfg.Geocoder.UserAgent = getEnvAsString("GEOCODER_USER_AGENT", cfg.AppName)
	cfg.Geocoder.Email = os.Getenv("GEOCODER_EMAIL")
	cfg.Geocoder.MaxAttempts = getEnvAsInt("GEOCODER_MAX_ATTEMPTS", 3)
	cfg.Geocoder.MinInterval = getEnvAsDuration("GEOCODER_MIN_INTERVAL", 1*time.Second)

	cfg.Output.Dir = getEnvAsString("OUTPUT_DIR", "output")

	return cfg, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration читает переменную окружения как time.Duration ("2s", "500ms")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valDur, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valDur
}
