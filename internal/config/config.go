// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	AnimeFolders    []string
	VideoExtensions []string

	// Identification
	SimilarityThreshold  float64
	BatchSizeThreshold   string // human readable, e.g. "3 GiB"
	MatcherPolicy        string // "best_metric" (default) or "consensus"
	RewindToFirstPrequel bool
	FixSingleEpisode     bool
	PreDashRetry         bool
	FirstCharPrefilter   bool
	ScanWorkers          int
	MemoTTL              time.Duration
	WindowTitleSuffixes  []string
	WatchDebounce        time.Duration

	// Storage
	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)

	// Catalog
	AniListURL               string
	AniListRequestsPerMinute int
	AniListChunkSize         int

	// Observability
	MetricsFile   string
	Debug         bool
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var AppConfig Config

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("anime_folders", []string{})
	viper.SetDefault("video_extensions", []string{"mkv", "mp4", "avi"})
	viper.SetDefault("similarity_threshold", 0.8)
	viper.SetDefault("batch_size_threshold", "3 GiB")
	viper.SetDefault("matcher_policy", "best_metric")
	viper.SetDefault("rewind_to_first_prequel", false)
	viper.SetDefault("fix_single_episode", true)
	viper.SetDefault("pre_dash_retry", true)
	viper.SetDefault("first_char_prefilter", false)
	viper.SetDefault("scan_workers", 4)
	viper.SetDefault("memo_ttl", "30m")
	viper.SetDefault("watch_debounce", "2s")
	viper.SetDefault("window_title_suffixes", []string{})

	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("database_path", "anime-organizer.pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)

	viper.SetDefault("anilist_url", "https://graphql.anilist.co/")
	viper.SetDefault("anilist_requests_per_minute", 60)
	viper.SetDefault("anilist_chunk_size", 50)

	viper.SetDefault("metrics_file", "")
	viper.SetDefault("debug", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("log_max_size_mb", 10)
	viper.SetDefault("log_max_backups", 3)
	viper.SetDefault("log_max_age_days", 28)
	viper.SetDefault("log_compress", false)

	_ = viper.BindEnv("anilist_url", "ANILIST_BASE_URL")
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	AppConfig = Config{
		AnimeFolders:    viper.GetStringSlice("anime_folders"),
		VideoExtensions: normalizeExtensions(viper.GetStringSlice("video_extensions")),

		SimilarityThreshold:  viper.GetFloat64("similarity_threshold"),
		BatchSizeThreshold:   viper.GetString("batch_size_threshold"),
		MatcherPolicy:        strings.ToLower(strings.TrimSpace(viper.GetString("matcher_policy"))),
		RewindToFirstPrequel: viper.GetBool("rewind_to_first_prequel"),
		FixSingleEpisode:     viper.GetBool("fix_single_episode"),
		PreDashRetry:         viper.GetBool("pre_dash_retry"),
		FirstCharPrefilter:   viper.GetBool("first_char_prefilter"),
		ScanWorkers:          viper.GetInt("scan_workers"),
		MemoTTL:              viper.GetDuration("memo_ttl"),
		WindowTitleSuffixes:  viper.GetStringSlice("window_title_suffixes"),
		WatchDebounce:        viper.GetDuration("watch_debounce"),

		DatabasePath: viper.GetString("database_path"),
		DatabaseType: viper.GetString("database_type"),
		EnableSQLite: viper.GetBool("enable_sqlite3_i_know_the_risks"),

		AniListURL:               viper.GetString("anilist_url"),
		AniListRequestsPerMinute: viper.GetInt("anilist_requests_per_minute"),
		AniListChunkSize:         viper.GetInt("anilist_chunk_size"),

		MetricsFile:   viper.GetString("metrics_file"),
		Debug:         viper.GetBool("debug"),
		LogFile:       viper.GetString("log_file"),
		LogMaxSizeMB:  viper.GetInt("log_max_size_mb"),
		LogMaxBackups: viper.GetInt("log_max_backups"),
		LogMaxAgeDays: viper.GetInt("log_max_age_days"),
		LogCompress:   viper.GetBool("log_compress"),
	}

	// Normalize database type
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}
	if AppConfig.ScanWorkers < 1 {
		AppConfig.ScanWorkers = 1
	}
}

// normalizeExtensions lower-cases extensions and strips leading dots.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks values that would otherwise fail deep inside a scan.
func Validate(cfg Config) error {
	var problems []string
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		problems = append(problems, fmt.Sprintf("similarity_threshold %.2f is outside [0,1]", cfg.SimilarityThreshold))
	}
	switch cfg.MatcherPolicy {
	case "", "best_metric", "consensus":
	default:
		problems = append(problems, fmt.Sprintf("matcher_policy %q is not best_metric or consensus", cfg.MatcherPolicy))
	}
	switch cfg.DatabaseType {
	case "", "pebble", "sqlite", "sqlite3":
	default:
		problems = append(problems, fmt.Sprintf("database_type %q is not pebble or sqlite", cfg.DatabaseType))
	}
	if cfg.BatchSizeThreshold != "" {
		if _, err := humanize.ParseBytes(cfg.BatchSizeThreshold); err != nil {
			problems = append(problems, fmt.Sprintf("batch_size_threshold %q: %v", cfg.BatchSizeThreshold, err))
		}
	}
	if cfg.AniListChunkSize < 0 || cfg.AniListChunkSize > 50 {
		problems = append(problems, fmt.Sprintf("anilist_chunk_size %d is outside 1-50", cfg.AniListChunkSize))
	}
	if cfg.MemoTTL < 0 {
		problems = append(problems, "memo_ttl must not be negative")
	}
	if len(cfg.VideoExtensions) == 0 {
		problems = append(problems, "video_extensions is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
