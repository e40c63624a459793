package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPreviewLimit bounds preview output when no limit is configured.
const DefaultPreviewLimit = 200

// Config represents the application configuration
type Config struct {
	DBPath         string `yaml:"db_path"`
	UploadDir      string `yaml:"upload_dir"`
	ImportFilesDir string `yaml:"import_files_dir"`
	PreviewLimit   int    `yaml:"preview_limit"`
	LogLevel       string `yaml:"log_level"`
	Output         string `yaml:"output"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/ingest/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		PreviewLimit: DefaultPreviewLimit,
		LogLevel:     "info",
		Output:       "table",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// ~/.config/ingest/config.yaml is optional
	_ = loadYAMLConfig(cfg)

	// Override with environment variables
	if dbPath := getEnvOrFile("INGEST_DB_PATH", "INGEST_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if uploadDir := os.Getenv("INGEST_UPLOAD_DIR"); uploadDir != "" {
		cfg.UploadDir = uploadDir
	}
	if importDir := os.Getenv("INGEST_IMPORT_FILES_DIR"); importDir != "" {
		cfg.ImportFilesDir = importDir
	}
	if limit := os.Getenv("INGEST_PREVIEW_LIMIT"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid INGEST_PREVIEW_LIMIT %q", limit)
		}
		cfg.PreviewLimit = parsed
	}
	if logLevel := os.Getenv("INGEST_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("INGEST_OUTPUT"); output != "" {
		cfg.Output = output
	}

	// Set defaults if not configured
	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(".ingest/ingest.db"); err == nil {
			cfg.DBPath = ".ingest/ingest.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "ingest", "ingest.db")
		}
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(dataDir, "uploads")
	}
	if cfg.ImportFilesDir == "" {
		cfg.ImportFilesDir = filepath.Join(dataDir, "import_files")
	}

	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/ingest/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "ingest", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return string(data)
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
