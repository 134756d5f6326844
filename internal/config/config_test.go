// file: internal/config/config_test.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestInitConfig tests configuration initialization with defaults
func TestInitConfig(t *testing.T) {
	// Arrange
	viper.Reset()
	t.Setenv("ANILIST_BASE_URL", "")

	// Act
	InitConfig()

	// Assert - Verify database defaults
	if AppConfig.DatabaseType != "pebble" {
		t.Errorf("Expected database_type to be 'pebble', got '%s'", AppConfig.DatabaseType)
	}
	if AppConfig.DatabasePath != "anime-organizer.pebble" {
		t.Errorf("Expected database_path default, got '%s'", AppConfig.DatabasePath)
	}
	if AppConfig.EnableSQLite {
		t.Error("Expected enable_sqlite3_i_know_the_risks to be false by default")
	}

	// Verify identification defaults
	if AppConfig.SimilarityThreshold != 0.8 {
		t.Errorf("Expected similarity_threshold 0.8, got %v", AppConfig.SimilarityThreshold)
	}
	if AppConfig.MatcherPolicy != "best_metric" {
		t.Errorf("Expected matcher_policy 'best_metric', got '%s'", AppConfig.MatcherPolicy)
	}
	if AppConfig.BatchSizeThreshold != "3 GiB" {
		t.Errorf("Expected batch_size_threshold '3 GiB', got '%s'", AppConfig.BatchSizeThreshold)
	}
	if AppConfig.RewindToFirstPrequel {
		t.Error("Expected rewind_to_first_prequel to be false by default")
	}
	if !AppConfig.FixSingleEpisode || !AppConfig.PreDashRetry {
		t.Error("Expected fix_single_episode and pre_dash_retry to be true by default")
	}
	if AppConfig.FirstCharPrefilter {
		t.Error("Expected first_char_prefilter to be false by default")
	}
	if AppConfig.ScanWorkers != 4 {
		t.Errorf("Expected scan_workers 4, got %d", AppConfig.ScanWorkers)
	}
	if AppConfig.MemoTTL != 30*time.Minute {
		t.Errorf("Expected memo_ttl 30m, got %s", AppConfig.MemoTTL)
	}

	// Verify catalog defaults
	if AppConfig.AniListURL != "https://graphql.anilist.co/" {
		t.Errorf("Unexpected anilist_url %q", AppConfig.AniListURL)
	}
	if AppConfig.AniListRequestsPerMinute != 60 || AppConfig.AniListChunkSize != 50 {
		t.Errorf("Unexpected AniList limits: %d rpm, chunk %d", AppConfig.AniListRequestsPerMinute, AppConfig.AniListChunkSize)
	}
}

// TestVideoExtensionsDefaults tests the default container list
func TestVideoExtensionsDefaults(t *testing.T) {
	// Arrange-Act
	viper.Reset()
	InitConfig()

	// Assert
	expected := []string{"mkv", "mp4", "avi"}
	if !reflect.DeepEqual(AppConfig.VideoExtensions, expected) {
		t.Errorf("Expected video extensions %v, got %v", expected, AppConfig.VideoExtensions)
	}
}

// TestVideoExtensionsNormalization tests that dots and case are dropped
func TestVideoExtensionsNormalization(t *testing.T) {
	// Arrange
	viper.Reset()
	viper.Set("video_extensions", []string{".MKV", " webm ", ""})

	// Act
	InitConfig()

	// Assert
	expected := []string{"mkv", "webm"}
	if !reflect.DeepEqual(AppConfig.VideoExtensions, expected) {
		t.Errorf("Expected %v, got %v", expected, AppConfig.VideoExtensions)
	}
}

// TestDatabaseTypeNormalization tests SQLite3 to SQLite normalization
func TestDatabaseTypeNormalization(t *testing.T) {
	// Arrange
	viper.Reset()
	viper.Set("database_type", "sqlite3")

	// Act
	InitConfig()

	// Assert
	if AppConfig.DatabaseType != "sqlite" {
		t.Errorf("Expected database_type to be normalized to 'sqlite', got '%s'", AppConfig.DatabaseType)
	}
}

// TestAniListURLFromEnv tests the ANILIST_BASE_URL override
func TestAniListURLFromEnv(t *testing.T) {
	// Arrange
	viper.Reset()
	t.Setenv("ANILIST_BASE_URL", "http://localhost:9999/graphql")

	// Act
	InitConfig()

	// Assert
	if AppConfig.AniListURL != "http://localhost:9999/graphql" {
		t.Errorf("Expected env override, got %q", AppConfig.AniListURL)
	}
}

// TestScanWorkersFloor tests that a non-positive worker count becomes 1
func TestScanWorkersFloor(t *testing.T) {
	viper.Reset()
	viper.Set("scan_workers", 0)
	InitConfig()

	if AppConfig.ScanWorkers != 1 {
		t.Errorf("Expected scan_workers to be raised to 1, got %d", AppConfig.ScanWorkers)
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	viper.Reset()
	InitConfig()
	base := AppConfig

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.5 }, true},
		{"negative threshold", func(c *Config) { c.SimilarityThreshold = -0.1 }, true},
		{"consensus policy", func(c *Config) { c.MatcherPolicy = "consensus" }, false},
		{"unknown policy", func(c *Config) { c.MatcherPolicy = "majority" }, true},
		{"unknown database", func(c *Config) { c.DatabaseType = "mongo" }, true},
		{"bad size", func(c *Config) { c.BatchSizeThreshold = "lots" }, true},
		{"chunk too large", func(c *Config) { c.AniListChunkSize = 100 }, true},
		{"no extensions", func(c *Config) { c.VideoExtensions = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
