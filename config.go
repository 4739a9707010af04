package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/dnldd/impulse/service"
	"github.com/joho/godotenv"
)

const (
	// defaultSource is the market data source used when none is configured.
	defaultSource = service.FMPSource
	// defaultParamsFilePath is the parameter file used when none is configured.
	defaultParamsFilePath = "config.yml"
	// defaultHTTPAddr is the api address used when none is configured.
	defaultHTTPAddr = ":8080"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the screened watchlist.
	Markets []string
	// Source is the market data source, one of fmp, polygon or file.
	Source string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// PolygonAPIKey is the polygon service API key.
	PolygonAPIKey string
	// HistoricDataFilePath is the filepath to the historic data served by the file source.
	HistoricDataFilePath string
	// CachePath is the sqlite bar cache path.
	CachePath string
	// ParamsFilePath is the parameter file path.
	ParamsFilePath string
	// DBEndpoint is the rqlite endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// HTTPAddr is the address the api listens on.
	HTTPAddr string
	// Schedule is the screener cron expression.
	Schedule string
	// Tracing is the span export flag.
	Tracing bool

	registeredFlags map[string]bool
}

// applyDefaults sets defaults for unset optional inputs.
func (cfg *Config) applyDefaults() {
	if cfg.Source == "" {
		cfg.Source = defaultSource
	}
	if cfg.ParamsFilePath == "" {
		cfg.ParamsFilePath = defaultParamsFilePath
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	switch cfg.Source {
	case service.FMPSource:
		if cfg.FMPAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
		}
	case service.PolygonSource:
		if cfg.PolygonAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("polygon api key cannot be an empty string"))
		}
	case service.FileSource:
		if cfg.HistoricDataFilePath == "" {
			errs = errors.Join(errs, fmt.Errorf("historic data filepath cannot be an empty string"))
		}
		if len(cfg.Markets) > 1 {
			errs = errors.Join(errs, fmt.Errorf("file source serves a single market, got %d", len(cfg.Markets)))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown source '%s', available sources: %v", cfg.Source, service.Sources))
	}

	if slices.Contains(cfg.Markets, "") {
		errs = errors.Join(errs, fmt.Errorf("markets cannot contain an empty string"))
	}
	if cfg.DBUser != "" && cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database user provided without a database endpoint"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Slice:
		if val.Elem().Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%s: unsupported slice type", name)
		}

		flag.Func(name, usage, func(s string) error {
			*value.(*[]string) = splitList(s)
			return nil
		})
		if defValue != "" {
			*value.(*[]string) = splitList(defValue)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// splitList splits a comma separated list, trimming whitespace.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for idx := range parts {
		parts[idx] = strings.TrimSpace(parts[idx])
	}

	return parts
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"markets", &cfg.Markets, "the screened watchlist"},
		{"source", &cfg.Source, "the market data source: fmp, polygon or file"},
		{"fmpapikey", &cfg.FMPAPIKey, "the FMP api key"},
		{"polygonapikey", &cfg.PolygonAPIKey, "the polygon api key"},
		{"historicdatafilepath", &cfg.HistoricDataFilePath, "the historic data filepath for the file source"},
		{"cachepath", &cfg.CachePath, "the sqlite bar cache path"},
		{"paramsfilepath", &cfg.ParamsFilePath, "the parameter file path"},
		{"dbendpoint", &cfg.DBEndpoint, "the rqlite endpoint"},
		{"dbuser", &cfg.DBUser, "the database user"},
		{"dbpass", &cfg.DBPass, "the database user pass"},
		{"httpaddr", &cfg.HTTPAddr, "the api listen address"},
		{"schedule", &cfg.Schedule, "the screener cron expression"},
		{"tracing", &cfg.Tracing, "the span export flag"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.applyDefaults()

	return cfg.Validate()
}
