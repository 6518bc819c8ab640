package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	config := defaultConfig
	_loaded = &config

	configFile := os.Getenv("USEROPS_CONFIG_FILE")
	if configFile == "" {
		configFile = "userops.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file: %v, using defaults", err)
	} else {
		log.Printf("Successfully loaded config from file: %s", configFile)
	}

	// Environment variables have the highest priority
	ApplyEnvOverrides()
}

func LoadDefault() {
	config := defaultConfig
	config.Common.Http.AllowedOrigins = append([]string(nil), defaultConfig.Common.Http.AllowedOrigins...)
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := defaultConfig

	// Merge YAML values over defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			MaxRequestSize: 5242880,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Data: dataConfig{
			CSVPath: "data/backend_users.csv",
		},
		OpenAI: openAIConfig{
			Provider:           "openai",
			BaseURL:            "https://api.openai.com/v1",
			ChatModel:          "gpt-3.5-turbo",
			TranscriptionModel: "whisper-1",
			TimeoutSeconds:     30,
		},
		CommandLog: commandLogConfig{
			Backend:        "memory",
			SQLitePath:     "data/commands.db",
			RetentionHours: 168,
		},
		Postgres: postgresConfig{
			postgresConfigCommon: postgresConfigCommon{
				User:               "postgres",
				Password:           "postgres",
				Host:               "localhost",
				Port:               5432,
				Database:           "userops",
				MaxOpenConnections: 10,
			},
		},
	},
}

type Common struct {
	Log        logConfig        `yaml:"log"`
	Http       httpConfig       `yaml:"http"`
	Data       dataConfig       `yaml:"data"`
	OpenAI     openAIConfig     `yaml:"openai"`
	CommandLog commandLogConfig `yaml:"command_log"`
	Postgres   postgresConfig   `yaml:"postgres"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxRequestSize int64    `yaml:"max_request_size"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func (c httpConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type dataConfig struct {
	CSVPath string `yaml:"csv_path"` // bootstrap source loaded at startup
}

type openAIConfig struct {
	Provider           string `yaml:"provider"` // "openai" or "json"
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	ChatModel          string `yaml:"chat_model"`
	TranscriptionModel string `yaml:"transcription_model"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

type commandLogConfig struct {
	Backend        string `yaml:"backend"` // "memory", "postgres" or "sqlite"
	SQLitePath     string `yaml:"sqlite_path"`
	RetentionHours int    `yaml:"retention_hours"` // 0 keeps entries forever
}

type postgresConfigCommon struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
}

func (c postgresConfigCommon) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
	)
}

type postgresConfig struct {
	postgresConfigCommon `yaml:",inline"`
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	var problems []string

	if c.Common.Http.Port <= 0 || c.Common.Http.Port > 65535 {
		problems = append(problems, fmt.Sprintf("http.port %d out of range", c.Common.Http.Port))
	}
	if c.Common.Http.MaxRequestSize <= 0 {
		problems = append(problems, "http.max_request_size must be positive")
	}
	if c.Common.Data.CSVPath == "" {
		problems = append(problems, "data.csv_path is required")
	}

	switch c.Common.OpenAI.Provider {
	case "openai", "json":
	default:
		problems = append(problems, fmt.Sprintf("openai.provider %q is not supported", c.Common.OpenAI.Provider))
	}

	switch c.Common.CommandLog.Backend {
	case "memory", "postgres":
	case "sqlite":
		if c.Common.CommandLog.SQLitePath == "" {
			problems = append(problems, "command_log.sqlite_path is required for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("command_log.backend %q is not supported", c.Common.CommandLog.Backend))
	}
	if c.Common.CommandLog.RetentionHours < 0 {
		problems = append(problems, "command_log.retention_hours cannot be negative")
	}

	switch strings.ToLower(c.Common.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not supported", c.Common.Log.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Data() dataConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Data
}

func OpenAI() openAIConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.OpenAI
}

func CommandLog() commandLogConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.CommandLog
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

// Get returns the full configuration
func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	if level := os.Getenv("USEROPS_LOG_LEVEL"); level != "" {
		_loaded.Common.Log.Level = level
	}
	if format := os.Getenv("USEROPS_LOG_FORMAT"); format != "" {
		_loaded.Common.Log.Format = format
	}

	if httpHost := os.Getenv("USEROPS_HTTP_HOST"); httpHost != "" {
		_loaded.Common.Http.Host = httpHost
	}
	if httpPort := os.Getenv("USEROPS_HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			_loaded.Common.Http.Port = port
		}
	}
	if origins := os.Getenv("USEROPS_HTTP_ALLOWED_ORIGINS"); origins != "" {
		_loaded.Common.Http.AllowedOrigins = splitList(origins)
	}

	if csvPath := os.Getenv("USEROPS_CSV_PATH"); csvPath != "" {
		_loaded.Common.Data.CSVPath = csvPath
	}

	// OPENAI_API_KEY is honoured so existing .env files keep working
	if apiKey := os.Getenv("USEROPS_OPENAI_API_KEY"); apiKey != "" {
		_loaded.Common.OpenAI.APIKey = apiKey
	} else if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && _loaded.Common.OpenAI.APIKey == "" {
		_loaded.Common.OpenAI.APIKey = apiKey
	}
	if provider := os.Getenv("USEROPS_OPENAI_PROVIDER"); provider != "" {
		_loaded.Common.OpenAI.Provider = provider
	}
	if baseURL := os.Getenv("USEROPS_OPENAI_BASE_URL"); baseURL != "" {
		_loaded.Common.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("USEROPS_OPENAI_CHAT_MODEL"); model != "" {
		_loaded.Common.OpenAI.ChatModel = model
	}

	if backend := os.Getenv("USEROPS_COMMAND_LOG_BACKEND"); backend != "" {
		_loaded.Common.CommandLog.Backend = backend
	}
	if sqlitePath := os.Getenv("USEROPS_COMMAND_LOG_SQLITE_PATH"); sqlitePath != "" {
		_loaded.Common.CommandLog.SQLitePath = sqlitePath
	}

	if dbHost := os.Getenv("USEROPS_DB_HOST"); dbHost != "" {
		_loaded.Common.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("USEROPS_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("USEROPS_DB_USER"); dbUser != "" {
		_loaded.Common.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("USEROPS_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("USEROPS_DB_NAME"); dbName != "" {
		_loaded.Common.Postgres.Database = dbName
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
