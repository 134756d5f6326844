// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/spf13/viper"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	f := &levelFilter{out: &buf}

	n, err := f.Write([]byte("[DEBUG] hidden\n"))
	if err != nil || n != len("[DEBUG] hidden\n") {
		t.Fatalf("expected debug line to be swallowed, got n=%d err=%v", n, err)
	}
	if _, err := f.Write([]byte("[INFO] shown\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := buf.String(); got != "[INFO] shown\n" {
		t.Fatalf("unexpected output %q", got)
	}

	f.debug = true
	_, _ = f.Write([]byte("[DEBUG] shown\n"))
	if !strings.Contains(buf.String(), "[DEBUG] shown") {
		t.Fatal("expected debug line when debug is enabled")
	}
}

func TestSetupLoggingWritesFile(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "logs", "organizer.log")

	prevWriter := log.Writer()
	prevFlags := log.Flags()
	defer func() {
		log.SetOutput(prevWriter)
		log.SetFlags(prevFlags)
	}()

	closer, err := setupLogging(config.Config{LogFile: logPath, LogMaxSizeMB: 1})
	if err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	log.Printf("[INFO] hello from test")
	log.Printf("[DEBUG] not written")
	closer()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("expected message in log file, got %q", string(data))
	}
	if strings.Contains(string(data), "not written") {
		t.Fatal("debug line should be filtered without --debug")
	}
}

func TestInitConfigCreatesDirectories(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "db", "anime.pebble")

	origCfgFile := cfgFile
	origConfig := config.AppConfig
	defer func() {
		cfgFile = origCfgFile
		config.AppConfig = origConfig
		viper.Reset()
	}()

	cfgFile = filepath.Join(tempDir, "config.yaml")
	viper.Reset()
	viper.Set("database_path", dbPath)

	initConfig()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Fatalf("expected database directory to exist: %v", err)
	}
	if config.AppConfig.DatabasePath != dbPath {
		t.Fatalf("expected database path %q, got %q", dbPath, config.AppConfig.DatabasePath)
	}
}

func TestInitConfigUsesHomeConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".anime-organizer.yaml")
	if err := os.WriteFile(configPath, []byte("similarity_threshold: 0.65\nanime_folders:\n  - /anime\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origCfgFile := cfgFile
	origConfig := config.AppConfig
	defer func() {
		cfgFile = origCfgFile
		config.AppConfig = origConfig
		viper.Reset()
	}()

	t.Setenv("HOME", tempDir)
	cfgFile = ""

	viper.Reset()
	initConfig()

	if config.AppConfig.SimilarityThreshold != 0.65 {
		t.Fatalf("expected threshold from home config, got %v", config.AppConfig.SimilarityThreshold)
	}
	if len(config.AppConfig.AnimeFolders) != 1 || config.AppConfig.AnimeFolders[0] != "/anime" {
		t.Fatalf("unexpected anime folders %v", config.AppConfig.AnimeFolders)
	}
}

func TestExecuteHelp(t *testing.T) {
	tempDir := t.TempDir()

	origCfg := cfgFile
	origDBPath := databasePath
	defer func() {
		cfgFile = origCfg
		databasePath = origDBPath
	}()

	cfgFile = filepath.Join(tempDir, "config.yaml")
	databasePath = filepath.Join(tempDir, "anime.pebble")

	rootCmd.SetArgs([]string{"--db", databasePath, "--help"})
	defer rootCmd.SetArgs(nil)

	if err := Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}

func TestIdentifyRequiresArgs(t *testing.T) {
	if err := identifyCmd.Args(identifyCmd, nil); err == nil {
		t.Fatal("expected error when no filename is given")
	}
}
