package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Game.MinPlayers)
	assert.Equal(t, 60*time.Second, cfg.Game.NightDuration)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.IdleTTL)
	assert.False(t, cfg.Server.DebugEndpoints)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":9999"
  debug_endpoints: true
game:
  min_players: 4
  night_duration: 45s
database:
  driver: gorm
  postgres:
    host: db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("TRAITORS_GAME_TRIAL_DURATION", "10s")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTPAddress)
	assert.True(t, cfg.Server.DebugEndpoints)
	assert.Equal(t, 4, cfg.Game.MinPlayers)
	assert.Equal(t, 45*time.Second, cfg.Game.NightDuration)
	assert.Equal(t, 10*time.Second, cfg.Game.TrialDuration)
	assert.Equal(t, "gorm", cfg.Database.Driver)
	assert.Equal(t, "db", cfg.Database.Postgres.Host)
	assert.Contains(t, cfg.Database.Postgres.DSN(), "host=db port=5432")
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  driver: mongo\n"), 0o644))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "database.driver")
}

func TestGameConfig_Rules(t *testing.T) {
	g := GameConfig{MinPlayers: 5, MaxPlayers: 10, NightDuration: time.Minute}

	rules := g.Rules(0)
	assert.Equal(t, 5, rules.MinPlayers)
	assert.Equal(t, 10, rules.MaxPlayers)
	assert.Equal(t, time.Minute, rules.NightDuration)

	assert.Equal(t, 3, g.Rules(3).MinPlayers)
	assert.Equal(t, 10, g.Rules(20).MinPlayers, "minimum is capped at max_players")

	uncapped := GameConfig{MinPlayers: 5}
	assert.Equal(t, 20, uncapped.Rules(20).MinPlayers)
}
