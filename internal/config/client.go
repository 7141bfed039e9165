package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Index backends of the client.
const (
	IndexFile   = "file"
	IndexSQLite = "sqlite"
)

// Client holds the configuration of the journalon command line client.
type Client struct {
	// BaseURL is the hashkeep store.
	BaseURL string
	// DataDir holds the local index.
	DataDir string
	// Index selects the local index backend: "file" or "sqlite".
	Index string
	// CAFile, when set, is the only CA trusted for the store's TLS certificate.
	CAFile string
	// Timeout bounds every store request.
	Timeout time.Duration
	// LogLevel is the zap level name.
	LogLevel string
}

// clientFile is the JSON config file layout.
type clientFile struct {
	BaseURL  string `json:"url"`
	DataDir  string `json:"data_dir"`
	Index    string `json:"index"`
	CAFile   string `json:"ca_file"`
	Timeout  string `json:"timeout"`
	LogLevel string `json:"log_level"`
}

// DefaultClient returns the client configuration used when nothing is set.
func DefaultClient() *Client {
	return &Client{
		BaseURL:  "https://hashkeep.magland.org",
		DataDir:  defaultDataDir(),
		Index:    IndexFile,
		Timeout:  10 * time.Second,
		LogLevel: "warn",
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "journalon")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".journalon")
	}
	return ".journalon"
}

// LoadClient reads the client configuration. Sources apply in increasing
// precedence: defaults, a .env file in the working directory, the JSON file at
// path (or $JOURNALON_CONFIG), and JOURNALON_* environment variables.
// Command line flags are applied on top by the caller.
//
// A missing file is only an error when path was given explicitly.
func LoadClient(path string) (*Client, error) {
	// Variables already in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultClient()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("JOURNALON_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Client) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	var f clientFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	setString(&c.BaseURL, f.BaseURL)
	setString(&c.DataDir, f.DataDir)
	setString(&c.Index, f.Index)
	setString(&c.CAFile, f.CAFile)
	setString(&c.LogLevel, f.LogLevel)
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("config file timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Client) mergeEnv() error {
	setString(&c.BaseURL, os.Getenv("JOURNALON_URL"))
	setString(&c.DataDir, os.Getenv("JOURNALON_DATA_DIR"))
	setString(&c.Index, os.Getenv("JOURNALON_INDEX"))
	setString(&c.CAFile, os.Getenv("JOURNALON_CA"))
	setString(&c.LogLevel, os.Getenv("JOURNALON_LOG_LEVEL"))
	if v := os.Getenv("JOURNALON_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JOURNALON_TIMEOUT must be a duration: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports settings the client cannot run with.
func (c *Client) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("store url is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.Index != IndexFile && c.Index != IndexSQLite {
		return fmt.Errorf("unknown index backend %q, want %q or %q", c.Index, IndexFile, IndexSQLite)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
