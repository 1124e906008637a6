package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
youtube:
  api_key: yt-test
ai:
  gemini_api_key: gm-test
filter:
  threshold: 5
topics:
  - Go tutorials
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o644))
	return path
}

func TestFilterThresholdUsageShowsNoDefault(t *testing.T) {
	flag := newRootCmd().Flags().Lookup("filter-threshold")
	require.NotNil(t, flag)

	assert.Equal(t, "0", flag.DefValue)
	assert.NotContains(t, newRootCmd().Flags().FlagUsages(), "(default 7)")
}

func TestLoadConfigFilterThreshold(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		wantEnabled   bool
		wantThreshold int
	}{
		{"flag absent leaves scoring off", nil, false, 5},
		{"flag enables scoring", []string{"-t", "8"}, true, 8},
		{"zero is an explicit threshold", []string{"--filter-threshold", "0"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(append([]string{"-c", writeConfig(t)}, tt.args...)))

			cfg, err := loadConfig(cmd, cmd.Flags().Args())
			require.NoError(t, err)

			assert.Equal(t, tt.wantEnabled, cfg.Filter.Enabled)
			assert.Equal(t, tt.wantThreshold, cfg.Filter.Threshold)
		})
	}
}

func TestLoadConfigTopicsFromArgs(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-c", writeConfig(t), "-n", "3", "Docker tutorials", "Rust async"}))

	cfg, err := loadConfig(cmd, cmd.Flags().Args())
	require.NoError(t, err)

	assert.Equal(t, []string{"Docker tutorials", "Rust async"}, cfg.Topics)
	assert.Equal(t, 3, cfg.MaxResults)
}

func TestLoadConfigRejectsOutOfRangeThreshold(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-c", writeConfig(t), "-t", "11"}))

	_, err := loadConfig(cmd, cmd.Flags().Args())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}
