package repository

import "context"

// SettingsRepository tabla clave/valor system_info.
type SettingsRepository interface {
	// Get devuelve ok=false si la clave no existe.
	Get(ctx context.Context, key string) (string, bool, error)
	GetAll(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}
