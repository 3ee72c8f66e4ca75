// Package config handles loading and persisting user configuration
// for jz. Configuration is stored in ~/.jz/config.json, optionally
// overridden by a .env file and environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	dirName           = ".jz"
	fileName          = "config.json"
	defaultGatewayURL = "http://localhost:8787/v1/chat"
	defaultDriver     = "sqlite"
	dbFileName        = "chat.db"
	logFileName       = "jz.log"
	documentsDirName  = "documents"

	envKeyGateway = "JZ_GATEWAY_URL"
	envKeyToken   = "JZ_TOKEN"
	envKeyAnonKey = "JZ_ANON_KEY"
	envKeyDriver  = "JZ_STORAGE_DRIVER"
	envKeyDSN     = "JZ_STORAGE_DSN"
	envKeyLevel   = "JZ_LOG_LEVEL"
)

// Config holds the user's configuration.
type Config struct {
	GatewayURL string `json:"gateway_url" validate:"required,url"`
	// Token is the bearer JWT of the signed-in user. Empty means anonymous.
	Token string `json:"token,omitempty"`
	// AnonKey is sent as the bearer credential when no user is signed in.
	AnonKey      string   `json:"anon_key,omitempty"`
	Storage      Storage  `json:"storage"`
	DocumentsDir string   `json:"documents_dir,omitempty"`
	LogLevel     string   `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Knowledge    []string `json:"knowledge,omitempty"`
}

// Storage selects the durable store used for signed-in users.
type Storage struct {
	Driver string `json:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `json:"dsn,omitempty" validate:"required_if=Driver postgres"`
}

var validate = validator.New()

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName)
}

// LogPath is where the client writes its structured log.
func LogPath() string {
	return filepath.Join(Dir(), logFileName)
}

func defaults() *Config {
	return &Config{
		GatewayURL: defaultGatewayURL,
		Storage:    Storage{Driver: defaultDriver},
		LogLevel:   "info",
	}
}

// Load reads the configuration from disk, .env and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := readFile()

	if v := os.Getenv(envKeyGateway); v != "" {
		cfg.GatewayURL = v
	}
	if v := os.Getenv(envKeyToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(envKeyAnonKey); v != "" {
		cfg.AnonKey = v
	}
	if v := os.Getenv(envKeyDriver); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv(envKeyDSN); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv(envKeyLevel); v != "" {
		cfg.LogLevel = v
	}

	if cfg.GatewayURL == "" {
		cfg.GatewayURL = defaultGatewayURL
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaultDriver
	}
	if cfg.Storage.Driver == defaultDriver && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = filepath.Join(Dir(), dbFileName)
	}
	if cfg.DocumentsDir == "" {
		cfg.DocumentsDir = filepath.Join(Dir(), documentsDirName)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readFile returns the on-disk config layered over defaults. A missing or
// unreadable file yields the defaults.
func readFile() *Config {
	cfg := defaults()
	data, err := os.ReadFile(configPath())
	if err == nil {
		_ = json.Unmarshal(data, cfg)
	}
	return cfg
}

// save persists the config to disk.
func save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}

func update(fn func(cfg *Config)) error {
	cfg := readFile()
	fn(cfg)
	return save(cfg)
}

// SetToken saves the bearer token of the signed-in user. An empty token
// signs the user out.
func SetToken(token string) error {
	return update(func(cfg *Config) { cfg.Token = token })
}

// SetGateway saves the chat gateway endpoint.
func SetGateway(url string) error {
	if err := validate.Var(url, "required,url"); err != nil {
		return fmt.Errorf("invalid gateway url %q", url)
	}
	return update(func(cfg *Config) { cfg.GatewayURL = url })
}

// SetStorage saves the durable store driver and DSN.
func SetStorage(driver, dsn string) error {
	st := Storage{Driver: driver, DSN: dsn}
	if err := validate.Struct(st); err != nil {
		return fmt.Errorf("invalid storage settings: %w", err)
	}
	return update(func(cfg *Config) { cfg.Storage = st })
}

// AddKnowledge appends an entry to the custom knowledge base.
func AddKnowledge(entry string) error {
	return update(func(cfg *Config) { cfg.Knowledge = append(cfg.Knowledge, entry) })
}

// RemoveKnowledge deletes the entry at index i.
func RemoveKnowledge(i int) error {
	cfg := readFile()
	if i < 0 || i >= len(cfg.Knowledge) {
		return fmt.Errorf("no knowledge entry at index %d", i)
	}
	cfg.Knowledge = append(cfg.Knowledge[:i], cfg.Knowledge[i+1:]...)
	return save(cfg)
}
