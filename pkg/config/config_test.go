package config_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

// ─────────────────────────────────────────────────────────────
//  Defaults
// ─────────────────────────────────────────────────────────────

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "estoque.db", cfg.DB.Path)
	assert.Empty(t, cfg.DB.LegacyPath)
	assert.Equal(t, 4, cfg.DB.MaxOpenConns)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "backups", cfg.Backup.Dir)
	assert.Equal(t, 60, cfg.Backup.SchedulerIntervalSeconds)
	assert.True(t, cfg.Backup.SchedulerEnabled)
	assert.Equal(t, int64(0), cfg.Migration.TargetVersion)
}

func TestFromViper_BackupDirFollowsDBPath(t *testing.T) {
	v := viper.New()
	v.Set("DB_PATH", filepath.Join("/var", "lib", "estoque", "estoque.db"))

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var", "lib", "estoque", "backups"), cfg.Backup.Dir)
}

// ─────────────────────────────────────────────────────────────
//  Overrides desde env (strings)
// ─────────────────────────────────────────────────────────────

func TestFromViper_StringOverrides(t *testing.T) {
	v := viper.New()
	v.Set("HTTP_PORT", "9090")
	v.Set("BACKUP_SCHEDULER_INTERVAL_SECONDS", "5")
	v.Set("BACKUP_SCHEDULER_ENABLED", "false")
	v.Set("MIGRATION_TARGET_VERSION", "3")
	v.Set("DB_MAX_OPEN_CONNS", "0")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 15, cfg.Backup.SchedulerIntervalSeconds, "el intervalo mínimo es 15s")
	assert.False(t, cfg.Backup.SchedulerEnabled)
	assert.Equal(t, int64(3), cfg.Migration.TargetVersion)
	assert.Equal(t, 1, cfg.DB.MaxOpenConns)
}

func TestFromViper_InvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("BACKUP_MAX_AUTO_SNAPSHOTS", "0")
	_, err := config.FromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("MIGRATION_TARGET_VERSION", "-1")
	_, err = config.FromViper(v)
	assert.Error(t, err)
}
