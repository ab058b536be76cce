// persistence/interface.go
package persistence

//go:generate mockgen -destination=mocks/mock_database.go -package=mocks github.com/wfunc/traitorserver/persistence Database

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/traitorserver/config"
	"github.com/wfunc/traitorserver/models"
)

// Database 游戏记录存档接口
type Database interface {
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	// ListGameRecords returns the newest records first. An empty accountID
	// lists every game.
	ListGameRecords(ctx context.Context, accountID string, limit int) ([]models.GameRecord, error)
	GetAccountStats(ctx context.Context, accountID string) (models.AccountStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)

// Open connects the driver named in cfg.
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "gorm":
		return NewGormPostgreSQL(cfg.Postgres.DSN())
	case "postgres":
		return NewPostgreSQL(cfg.Postgres.DSN())
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// statsFromResults folds per-game results into account totals.
func statsFromResults(accountID string, results []models.PlayerResult) models.AccountStats {
	stats := models.AccountStats{AccountID: accountID}
	for _, r := range results {
		if r.AccountID != accountID {
			continue
		}
		stats.TotalGames++
		switch r.Outcome {
		case models.OutcomeWin:
			stats.Wins++
		case models.OutcomeLose:
			stats.Losses++
		case models.OutcomeDraw:
			stats.Draws++
		}
		if r.Role == models.RoleTraitor {
			stats.TraitorGames++
		}
	}
	return stats
}
