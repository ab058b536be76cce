package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/persistence"
	"github.com/wfunc/traitorserver/persistence/mocks"
)

func finishedGame(w models.Winner) models.RoomSnapshot {
	return models.RoomSnapshot{
		ID:          "room-1",
		Phase:       models.PhaseGameOver,
		Winner:      &w,
		DayNumber:   2,
		NightNumber: 3,
		Players: []models.Player{
			{ID: "p0", AccountID: "alice", Name: "Alice", Role: models.RoleTraitor, Alive: true},
			{ID: "p1", AccountID: "bob", Name: "Bob", Role: models.RoleSubject, Alive: false},
			{ID: "p2", AccountID: "cy", Name: "Cy", Role: models.RoleSubject, Alive: true},
		},
	}
}

func TestBuildGameRecord(t *testing.T) {
	ended := time.Date(2026, 10, 17, 22, 0, 0, 0, time.UTC)
	rec, err := BuildGameRecord(finishedGame(models.WinnerTraitors), ended)
	require.NoError(t, err)

	assert.Equal(t, "room-1", rec.RoomID)
	assert.Equal(t, models.WinnerTraitors, rec.Winner)
	assert.Equal(t, ended, rec.EndedAt)
	assert.Equal(t, []models.PlayerResult{
		{AccountID: "alice", Name: "Alice", Role: models.RoleTraitor, Survived: true, Outcome: models.OutcomeWin},
		{AccountID: "bob", Name: "Bob", Role: models.RoleSubject, Survived: false, Outcome: models.OutcomeLose},
		{AccountID: "cy", Name: "Cy", Role: models.RoleSubject, Survived: true, Outcome: models.OutcomeLose},
	}, rec.Players)

	draw, err := BuildGameRecord(finishedGame(models.WinnerDraw), ended)
	require.NoError(t, err)
	for _, p := range draw.Players {
		assert.Equal(t, models.OutcomeDraw, p.Outcome)
	}

	running := finishedGame(models.WinnerSubjects)
	running.Phase = models.PhaseNight
	running.Winner = nil
	_, err = BuildGameRecord(running, ended)
	assert.ErrorIs(t, err, ErrGameNotOver)
}

func TestRecordService_RecordFinishedGame(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDatabase(ctrl)
	svc := NewRecordService(db)

	ended := time.Now()
	db.EXPECT().
		SaveGameRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, rec models.GameRecord) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "archive writes run with a timeout")
			assert.Equal(t, models.WinnerSubjects, rec.Winner)
			assert.Len(t, rec.Players, 3)
			return nil
		})

	require.NoError(t, svc.RecordFinishedGame(context.Background(), finishedGame(models.WinnerSubjects), ended))
}

func TestRecordService_RecordFinishedGameWrapsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDatabase(ctrl)
	svc := NewRecordService(db)

	boom := errors.New("connection refused")
	db.EXPECT().SaveGameRecord(gomock.Any(), gomock.Any()).Return(boom)

	err := svc.RecordFinishedGame(context.Background(), finishedGame(models.WinnerDraw), time.Now())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "room-1")
}

func TestRecordService_Queries(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	svc := NewRecordService(store)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordFinishedGame(ctx, finishedGame(models.WinnerTraitors), time.Now().Add(time.Duration(i)*time.Minute)))
	}

	stats, err := svc.GetAccountStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Wins)
	assert.Equal(t, 3, stats.TraitorGames)

	games, err := svc.RecentGames(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Len(t, games, 2)

	games, err = svc.RecentGames(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, games, 3)

	_, err = svc.GetAccountStats(ctx, "nobody")
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound)
}
