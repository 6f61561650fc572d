package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Source configuration
	MemosConfig string `long:"memos-config" env:"MEMOS_CONFIG" default:"./memos.json" description:"JSON file listing memo sources (myMemoList)"`
	FeedsConfig string `long:"feeds-config" env:"FEEDS_CONFIG" default:"./feeds.yml" description:"YAML file listing blog feed sources"`
	NoDefaults  bool   `long:"no-defaults" env:"NO_DEFAULTS" description:"Do not fall back to built-in sources when configuration is missing"`

	// Upstream access
	MemosAPIURL    string `long:"memos-api-url" env:"MEMOS_API_URL" description:"Memos instance that receives create/update/delete requests"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"MemoComb/1.0" description:"User agent string for upstream requests"`
	FetchTimeout   int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"15" description:"Per-request upstream timeout in seconds"`
	PageSize       int    `long:"page-size" env:"PAGE_SIZE" default:"0" description:"Memos requested per source and page (0 fetches the whole public collection)"`
	FaviconService string `long:"favicon-service" env:"FAVICON_SERVICE" default:"https://favicon.memobbs.app" description:"Favicon lookup service used for feed items"`
	RelayRestrict  bool   `long:"relay-restrict" env:"RELAY_RESTRICT" description:"Only relay URLs whose host belongs to a configured feed source"`

	// Application configuration
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl       string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://memos.example.com)"`
	DBPath        string `long:"db-path" env:"DB_PATH" default:":memory:" description:"SQLite database for source fetch status"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for source probes"`
	ProbeInterval int    `long:"probe-interval" env:"PROBE_INTERVAL" default:"0" description:"Background source probe interval in seconds (0 disables probing)"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	if err := loadEnvFile(cmp.Or(os.Getenv("ENV_FILE"), ".env")); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		MemosConfig:    raw.MemosConfig,
		FeedsConfig:    raw.FeedsConfig,
		NoDefaults:     raw.NoDefaults,
		MemosAPIURL:    raw.MemosAPIURL,
		UserAgent:      raw.UserAgent,
		FetchTimeout:   raw.FetchTimeout,
		PageSize:       raw.PageSize,
		FaviconService: raw.FaviconService,
		RelayRestrict:  raw.RelayRestrict,
		Port:           raw.Port,
		BaseUrl:        raw.BaseUrl,
		DBPath:         raw.DBPath,
		WorkerCount:    raw.WorkerCount,
		ProbeInterval:  raw.ProbeInterval,
		APIAccessKey:   raw.APIAccessKey,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("page size must be non-negative, got %d", cfg.PageSize)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// loadEnvFile populates the environment from a dotenv file. Variables that are
// already set are left untouched; a missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
