package tasks

import (
	"context"

	"alert-case-service/internal/config"
)

// ConfigDirectory treats every user listed in the configuration as known.
type ConfigDirectory struct {
	users map[string][]string
}

func NewConfigDirectory(cfg config.Config) *ConfigDirectory {
	return &ConfigDirectory{users: cfg.Users}
}

func (d *ConfigDirectory) KnownUser(_ context.Context, user string) (bool, error) {
	_, ok := d.users[user]
	return ok, nil
}
