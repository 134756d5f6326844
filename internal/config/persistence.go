// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the file name looked up in the home directory.
const DefaultConfigName = ".anime-organizer.yaml"

// ConfigFilePath returns the config file in use, or the default one in the
// home directory.
func ConfigFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigName
	}
	return filepath.Join(home, DefaultConfigName)
}

// ToMap returns the persistable settings keyed by their config names.
func (c Config) ToMap() map[string]any {
	return map[string]any{
		"anime_folders":                   c.AnimeFolders,
		"video_extensions":                c.VideoExtensions,
		"similarity_threshold":            c.SimilarityThreshold,
		"batch_size_threshold":            c.BatchSizeThreshold,
		"matcher_policy":                  c.MatcherPolicy,
		"rewind_to_first_prequel":         c.RewindToFirstPrequel,
		"fix_single_episode":              c.FixSingleEpisode,
		"pre_dash_retry":                  c.PreDashRetry,
		"first_char_prefilter":            c.FirstCharPrefilter,
		"scan_workers":                    c.ScanWorkers,
		"memo_ttl":                        c.MemoTTL.String(),
		"window_title_suffixes":           c.WindowTitleSuffixes,
		"watch_debounce":                  c.WatchDebounce.String(),
		"database_path":                   c.DatabasePath,
		"database_type":                   c.DatabaseType,
		"enable_sqlite3_i_know_the_risks": c.EnableSQLite,
		"anilist_url":                     c.AniListURL,
		"anilist_requests_per_minute":     c.AniListRequestsPerMinute,
		"anilist_chunk_size":              c.AniListChunkSize,
		"metrics_file":                    c.MetricsFile,
		"debug":                           c.Debug,
		"log_file":                        c.LogFile,
		"log_max_size_mb":                 c.LogMaxSizeMB,
		"log_max_backups":                 c.LogMaxBackups,
		"log_max_age_days":                c.LogMaxAgeDays,
		"log_compress":                    c.LogCompress,
	}
}

// LoadConfigFromFile merges a YAML file over the current viper settings and
// rebuilds AppConfig. A missing file is not an error.
func LoadConfigFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig map[string]any
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	viper.SetConfigType("yaml")
	if err := viper.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to merge config file %s: %w", path, err)
	}
	InitConfig()

	log.Printf("[INFO] Applied %d settings from config file %s", len(fileConfig), path)
	return nil
}

// SaveConfigToFile writes the current settings as YAML.
func SaveConfigToFile(path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	data, err := yaml.Marshal(AppConfig.ToMap())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}
