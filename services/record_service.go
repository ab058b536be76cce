// services/record_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/traitorserver/logger"
	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/persistence"
)

var ErrGameNotOver = errors.New("game is not over")

// RecordService archives finished games and answers stats queries.
type RecordService struct {
	db      persistence.Database
	timeout time.Duration
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db, timeout: 5 * time.Second}
}

// BuildGameRecord turns a GAME_OVER snapshot into the archived record.
func BuildGameRecord(snap models.RoomSnapshot, endedAt time.Time) (models.GameRecord, error) {
	if snap.Phase != models.PhaseGameOver || snap.Winner == nil {
		return models.GameRecord{}, ErrGameNotOver
	}
	winner := *snap.Winner

	rec := models.GameRecord{
		RoomID:      snap.ID,
		Winner:      winner,
		DayNumber:   snap.DayNumber,
		NightNumber: snap.NightNumber,
		Players:     make([]models.PlayerResult, 0, len(snap.Players)),
		EndedAt:     endedAt,
	}
	for _, p := range snap.Players {
		rec.Players = append(rec.Players, models.PlayerResult{
			AccountID: p.AccountID,
			Name:      p.Name,
			Role:      p.Role,
			Survived:  p.Alive,
			Outcome:   outcomeFor(p.Role, winner),
		})
	}
	return rec, nil
}

func outcomeFor(role models.Role, winner models.Winner) models.Outcome {
	switch {
	case winner == models.WinnerDraw:
		return models.OutcomeDraw
	case winner == models.WinnerTraitors && role == models.RoleTraitor,
		winner == models.WinnerSubjects && role == models.RoleSubject:
		return models.OutcomeWin
	}
	return models.OutcomeLose
}

// RecordFinishedGame builds and stores the record for snap.
func (s *RecordService) RecordFinishedGame(ctx context.Context, snap models.RoomSnapshot, endedAt time.Time) error {
	rec, err := BuildGameRecord(snap, endedAt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.SaveGameRecord(ctx, rec); err != nil {
		return fmt.Errorf("save game record for room %s: %w", snap.ID, err)
	}
	logger.Log.Infow("game archived", "room", rec.RoomID, "winner", rec.Winner, "players", len(rec.Players))
	return nil
}

// GetAccountStats 获取玩家统计
func (s *RecordService) GetAccountStats(ctx context.Context, accountID string) (models.AccountStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.GetAccountStats(ctx, accountID)
}

// RecentGames lists the newest games an account played in.
func (s *RecordService) RecentGames(ctx context.Context, accountID string, limit int) ([]models.GameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.ListGameRecords(ctx, accountID, limit)
}
