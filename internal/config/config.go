// Package config собирает настройки сервиса: значения по умолчанию,
// затем YAML-файл (если указан), затем переменные окружения.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Бэкенды хранения flash-сообщений.
const (
	FlashCookie = "cookie"
	FlashRedis  = "redis"
)

type Config struct {
	Server     Server     `yaml:"server"`
	Database   Database   `yaml:"database"`
	Flash      Flash      `yaml:"flash"`
	Log        Log        `yaml:"log"`
	Tracing    Tracing    `yaml:"tracing"`
	Pagination Pagination `yaml:"pagination"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Database struct {
	// Path — путь к файлу SQLite. Пустая строка означает путь по умолчанию (XDG).
	Path string `yaml:"path"`
}

type Flash struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`

	// SecureCookie ставит флаг Secure на cookie; включать, когда доска за TLS.
	SecureCookie bool `yaml:"secure_cookie"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type Pagination struct {
	DefaultSize int `yaml:"default_size"`
	MaxSize     int `yaml:"max_size"`
}

// Default возвращает конфигурацию, с которой сервис стартует без файла и env.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			RequestTimeout:  5 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Flash: Flash{
			Backend: FlashCookie,
			TTL:     5 * time.Minute,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Tracing: Tracing{
			ServiceName: "todo-board",
		},
		Pagination: Pagination{
			DefaultSize: 10,
			MaxSize:     100,
		},
	}
}

// Load читает конфигурацию. Если path пустой, файл не читается вовсе;
// если path задан, отсутствие файла — ошибка.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv накладывает переменные окружения поверх файла.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("TODOBOARD_ADDR"); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := lookup("TODOBOARD_DB_PATH"); ok && v != "" {
		cfg.Database.Path = v
	}
	if v, ok := lookup("TODOBOARD_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup("TODOBOARD_LOG_FORMAT"); ok && v != "" {
		cfg.Log.Format = v
	}
	if v, ok := lookup("TODOBOARD_FLASH_BACKEND"); ok && v != "" {
		cfg.Flash.Backend = v
	}
	if v, ok := lookup("TODOBOARD_REDIS_URL"); ok && v != "" {
		cfg.Flash.RedisURL = v
	}
	if v, ok := lookup("TODOBOARD_FLASH_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TODOBOARD_FLASH_SECURE: %w", err)
		}
		cfg.Flash.SecureCookie = b
	}
	if v, ok := lookup("TODOBOARD_REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TODOBOARD_REQUEST_TIMEOUT: %w", err)
		}
		cfg.Server.RequestTimeout = d
	}
	if v, ok := lookup("TODOBOARD_TRACING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TODOBOARD_TRACING: %w", err)
		}
		cfg.Tracing.Enabled = b
	}
	// DEBUG=1 как в остальных наших сервисах: просто поднимает уровень логов.
	if v, ok := lookup("DEBUG"); ok {
		if dbg, err := strconv.ParseBool(v); err == nil && dbg {
			cfg.Log.Level = "debug"
		}
	}
	return nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be greater than zero"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be >= 0"))
	}

	switch c.Flash.Backend {
	case FlashCookie:
	case FlashRedis:
		if c.Flash.RedisURL == "" {
			errs = append(errs, errors.New("flash.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("flash.backend %q is not supported", c.Flash.Backend))
	}
	if c.Flash.TTL <= 0 {
		errs = append(errs, errors.New("flash.ttl must be greater than zero"))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}

	if c.Pagination.DefaultSize <= 0 {
		errs = append(errs, errors.New("pagination.default_size must be greater than zero"))
	}
	if c.Pagination.MaxSize < c.Pagination.DefaultSize {
		errs = append(errs, errors.New("pagination.max_size must be >= pagination.default_size"))
	}

	return errors.Join(errs...)
}
