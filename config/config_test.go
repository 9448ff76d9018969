package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/on-the-ground/saga_ive_go/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte("debug: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Debug)

	cfg, err = config.Parse([]byte("debug: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Debug)
}

func TestParse_EmptyDocumentIsDefault(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParse_RejectsUnknownOptions(t *testing.T) {
	_, err := config.Parse([]byte("debug: true\nbuffer_size: 10\n"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestParse_RejectsWrongType(t *testing.T) {
	_, err := config.Parse([]byte("debug: [1, 2]\n"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config.KeyDebug+": true\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
