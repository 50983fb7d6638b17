package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"snapvault/internal/models"
)

const (
	DefaultDBFileName     = ".snapvault.db"
	DefaultLogLevel       = "warn"
	DefaultStorageMode    = string(models.StorageModeIndex)
	DefaultHashAlgorithm  = string(models.DefaultHashAlgorithm)
	DefaultHashChunkBytes = 64 * 1024
	DefaultSweepBatchSize = 500

	configFileName = ".snapvault.toml"
	casDirName     = ".snapvault/blobs"

	configDirEnvKey          = "SNAPVAULT_CONFIG_DIR"
	trustProjectConfigEnvKey = "SNAPVAULT_TRUST_PROJECT_CONFIG"
	dbPathEnvKey             = "SNAPVAULT_DB"
	storageModeEnvKey        = "SNAPVAULT_STORAGE_MODE"
	casRootEnvKey            = "SNAPVAULT_CAS_ROOT"
)

// StorageConfig controls where blob bytes live and how they are hashed.
type StorageConfig struct {
	Mode           string `toml:"mode"`
	CASRoot        string `toml:"cas_root"`
	HashAlgorithm  string `toml:"hash_algorithm"`
	HashChunkBytes int    `toml:"hash_chunk_bytes"`
}

// PruneConfig controls reclamation after a prune.
type PruneConfig struct {
	SweepBatchSize int `toml:"sweep_batch_size"`
}

// Config defines runtime configuration for snapvault.
type Config struct {
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	Storage                  StorageConfig `toml:"storage"`
	Prune                    PruneConfig   `toml:"prune"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Mode:           DefaultStorageMode,
			HashAlgorithm:  DefaultHashAlgorithm,
			HashChunkBytes: DefaultHashChunkBytes,
		},
		Prune: PruneConfig{
			SweepBatchSize: DefaultSweepBatchSize,
		},
	}
}

// CASRoot returns the configured CAS directory, defaulting to a directory
// next to the database.
func (c *Config) CASRoot() string {
	if root := strings.TrimSpace(c.Storage.CASRoot); root != "" {
		return root
	}
	return filepath.Join(filepath.Dir(c.DBPath), filepath.FromSlash(casDirName))
}

// StorageMode returns the parsed storage mode.
func (c *Config) StorageMode() (models.StorageMode, error) {
	return models.ParseStorageMode(c.Storage.Mode)
}

// HashAlgorithm returns the parsed hash algorithm.
func (c *Config) HashAlgorithm() (models.HashAlgorithm, error) {
	return models.ParseHashAlgorithm(c.Storage.HashAlgorithm)
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"db_path",
	"log_level",
	"storage.mode",
	"storage.cas_root",
	"storage.hash_algorithm",
	"storage.hash_chunk_bytes",
	"prune.sweep_batch_size",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.mode":
		return c.Storage.Mode, nil
	case "storage.cas_root":
		return c.Storage.CASRoot, nil
	case "storage.hash_algorithm":
		return c.Storage.HashAlgorithm, nil
	case "storage.hash_chunk_bytes":
		return strconv.Itoa(c.Storage.HashChunkBytes), nil
	case "prune.sweep_batch_size":
		return strconv.Itoa(c.Prune.SweepBatchSize), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if mode := strings.TrimSpace(os.Getenv(storageModeEnvKey)); mode != "" {
		cfg.Storage.Mode = mode
	}
	if root := strings.TrimSpace(os.Getenv(casRootEnvKey)); root != "" {
		cfg.Storage.CASRoot = root
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	cfg.normalizeDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.hash_chunk_bytes", "prune.sweep_batch_size":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.mode":
		mode, err := models.ParseStorageMode(value)
		if err != nil {
			return nil, err
		}
		return string(mode), nil
	case "storage.hash_algorithm":
		algo, err := models.ParseHashAlgorithm(value)
		if err != nil {
			return nil, err
		}
		return string(algo), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Storage.Mode) == "" {
		c.Storage.Mode = DefaultStorageMode
	}
	if strings.TrimSpace(c.Storage.HashAlgorithm) == "" {
		c.Storage.HashAlgorithm = DefaultHashAlgorithm
	}
	if c.Storage.HashChunkBytes <= 0 {
		c.Storage.HashChunkBytes = DefaultHashChunkBytes
	}
	if c.Prune.SweepBatchSize <= 0 {
		c.Prune.SweepBatchSize = DefaultSweepBatchSize
	}
}

func (c *Config) validate() error {
	if _, err := c.StorageMode(); err != nil {
		return fmt.Errorf("storage.mode: %w", err)
	}
	if _, err := c.HashAlgorithm(); err != nil {
		return fmt.Errorf("storage.hash_algorithm: %w", err)
	}
	return nil
}
