package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	HTTP      HTTPConfig
	Backup    BackupConfig
	Log       LogConfig
	Migration MigrationConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// DBConfig archivo SQLite vivo y base heredada opcional.
type DBConfig struct {
	Path         string
	LegacyPath   string // vacío = sin importación
	MaxOpenConns int
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackupConfig directorio de snapshots y parámetros del scheduler.
type BackupConfig struct {
	Dir                      string
	SchedulerIntervalSeconds int
	MaxAutoSnapshots         int
	SchedulerEnabled         bool
}

// LogConfig nivel de log.
type LogConfig struct {
	Level string
}

// MigrationConfig versión objetivo; 0 = la última.
type MigrationConfig struct {
	TargetVersion int64
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_PATH, BACKUP_DIR, HTTP_PORT, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v)
}

// FromViper construye la configuración a partir de una instancia ya cargada.
func FromViper(v *viper.Viper) (*Config, error) {
	dbPath := getString(v, "DB_PATH", "estoque.db")
	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "stock-ledger"),
		},
		DB: DBConfig{
			Path:         dbPath,
			LegacyPath:   getString(v, "DB_LEGACY_PATH", ""),
			MaxOpenConns: getInt(v, "DB_MAX_OPEN_CONNS", 4),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Backup: BackupConfig{
			Dir:                      getString(v, "BACKUP_DIR", filepath.Join(filepath.Dir(dbPath), "backups")),
			SchedulerIntervalSeconds: getInt(v, "BACKUP_SCHEDULER_INTERVAL_SECONDS", 60),
			MaxAutoSnapshots:         getInt(v, "BACKUP_MAX_AUTO_SNAPSHOTS", 30),
			SchedulerEnabled:         getBool(v, "BACKUP_SCHEDULER_ENABLED", true),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		Migration: MigrationConfig{
			TargetVersion: int64(getInt(v, "MIGRATION_TARGET_VERSION", 0)),
		},
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		return nil, fmt.Errorf("config: DB_PATH vacío")
	}
	if cfg.DB.MaxOpenConns < 1 {
		cfg.DB.MaxOpenConns = 1
	}
	if cfg.Backup.SchedulerIntervalSeconds < 15 {
		cfg.Backup.SchedulerIntervalSeconds = 15
	}
	if cfg.Backup.MaxAutoSnapshots < 1 {
		return nil, fmt.Errorf("config: BACKUP_MAX_AUTO_SNAPSHOTS debe ser >= 1")
	}
	if cfg.Migration.TargetVersion < 0 {
		return nil, fmt.Errorf("config: MIGRATION_TARGET_VERSION negativo")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	if b, ok := v.Get(key).(bool); ok {
		return b
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return b
}
