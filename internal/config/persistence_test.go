// file: internal/config/persistence_test.go
// version: 2.0.0
// guid: 5e6f7a8b-9c0d-1e2f-3a4b-5c6d7e8f9a0b

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func resetConfigTestState() {
	viper.Reset()
	AppConfig = Config{}
}

func TestSaveAndLoadConfigFile(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	InitConfig()
	AppConfig.AnimeFolders = []string{"/anime", "/more-anime"}
	AppConfig.MatcherPolicy = "consensus"
	AppConfig.MemoTTL = time.Hour

	path := filepath.Join(t.TempDir(), "nested", DefaultConfigName)
	require.NoError(t, SaveConfigToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, "consensus", written["matcher_policy"])
	assert.Equal(t, "1h0m0s", written["memo_ttl"])

	resetConfigTestState()
	InitConfig()
	require.NoError(t, LoadConfigFromFile(path))
	assert.Equal(t, []string{"/anime", "/more-anime"}, AppConfig.AnimeFolders)
	assert.Equal(t, "consensus", AppConfig.MatcherPolicy)
	assert.Equal(t, time.Hour, AppConfig.MemoTTL)
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoadConfigFromFile_Invalid(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anime_folders: [unterminated"), 0o644))
	assert.Error(t, LoadConfigFromFile(path))
}

func TestSaveConfigToFile_EmptyPath(t *testing.T) {
	assert.Error(t, SaveConfigToFile(""))
}

func TestConfigFilePath_Default(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, DefaultConfigName), ConfigFilePath())
}
