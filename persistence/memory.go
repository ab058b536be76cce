package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/traitorserver/models"
)

// MemoryStore keeps game records in process memory. It is the default when
// no database is configured.
type MemoryStore struct {
	records []models.GameRecord
	mutex   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Players = append([]models.PlayerResult(nil), record.Players...)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MemoryStore) ListGameRecords(ctx context.Context, accountID string, limit int) ([]models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	var out []models.GameRecord
	for _, rec := range m.records {
		if accountID == "" || hasAccount(rec, accountID) {
			rec.Players = append([]models.PlayerResult(nil), rec.Players...)
			out = append(out, rec)
		}
	}
	m.mutex.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetAccountStats(ctx context.Context, accountID string) (models.AccountStats, error) {
	if err := ctx.Err(); err != nil {
		return models.AccountStats{}, err
	}

	m.mutex.RLock()
	var results []models.PlayerResult
	for _, rec := range m.records {
		results = append(results, rec.Players...)
	}
	m.mutex.RUnlock()

	stats := statsFromResults(accountID, results)
	if stats.TotalGames == 0 {
		return stats, ErrRecordNotFound
	}
	return stats, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func hasAccount(rec models.GameRecord, accountID string) bool {
	for _, p := range rec.Players {
		if p.AccountID == accountID {
			return true
		}
	}
	return false
}
