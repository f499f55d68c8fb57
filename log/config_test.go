/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-governor/config"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &Config{}
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("read values", func(t *testing.T) {
		cfgData := `
log:
  level: DEBUG
  format: text
  output: file
  nocolor: true
  file:
    path: /var/log/governor.log
    rotation:
      compress: true
      maxSize: 100M
      maxBackups: 3
      maxAgeDays: 7
`
		cfg := &Config{}
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, &Config{
			Level:   LevelDebug,
			Format:  FormatText,
			Output:  OutputFile,
			NoColor: true,
			File: FileOutputConfig{
				Path: "/var/log/governor.log",
				Rotation: FileRotationConfig{
					Compress:   true,
					MaxSize:    100 * 1024 * 1024,
					MaxBackups: 3,
					MaxAgeDays: 7,
				},
			},
		}, cfg)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			cfgData string
			errMsg  string
		}{
			{
				name:    "file output without path",
				cfgData: "log:\n  output: file\n",
				errMsg:  `log.file.path: cannot be empty when "file" output is used`,
			},
			{
				name:    "too small rotation size",
				cfgData: "log:\n  file:\n    rotation:\n      maxSize: 1K\n",
				errMsg:  "log.file.rotation.maxSize: should be >= 1M",
			},
			{
				name:    "no rotation backups",
				cfgData: "log:\n  file:\n    rotation:\n      maxBackups: 0\n",
				errMsg:  "log.file.rotation.maxBackups: should be >= 1",
			},
			{
				name:    "negative max age",
				cfgData: "log:\n  file:\n    rotation:\n      maxAgeDays: -1\n",
				errMsg:  "log.file.rotation.maxAgeDays: should be >= 0",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := &Config{}
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
				require.EqualError(t, err, tt.errMsg)
			})
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		cfg := &Config{}
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString("log:\n  level: verbose\n"), config.DataTypeYAML, cfg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "log.level")
		require.Contains(t, err.Error(), `"verbose"`)
	})
}

func TestNewLogger_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "governor.log")
	cfg := NewDefaultConfig()
	cfg.Output = OutputFile
	cfg.File.Path = logPath

	logger, closeLogger := NewLogger(cfg)
	logger.Debug("dropped by level")
	logger.With(String("service", "github")).Info("rate limits configured", Int("services", 2))
	closeLogger()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "rate limits configured", entry["msg"])
	require.Equal(t, "github", entry["service"])
	require.Equal(t, float64(2), entry["services"])
	require.Contains(t, entry, "pid")
}
