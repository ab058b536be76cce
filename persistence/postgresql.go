// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/traitorserver/models"
)

// PostgreSQL 数据库实现 (原生 SQL)
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构, 与 GORM 模型的表兼容
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_id TEXT NOT NULL,
            winner TEXT NOT NULL,
            day_number BIGINT DEFAULT 0,
            night_number BIGINT DEFAULT 0,
            players JSONB NOT NULL,
            ended_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_results (
            id BIGSERIAL PRIMARY KEY,
            game_record_id BIGINT NOT NULL REFERENCES game_records(id),
            account_id TEXT NOT NULL,
            role TEXT NOT NULL,
            survived BOOLEAN,
            outcome TEXT NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_ended_at ON game_records(ended_at);
        CREATE INDEX IF NOT EXISTS idx_game_results_account_id ON game_results(account_id);
        CREATE INDEX IF NOT EXISTS idx_game_results_game_record_id ON game_results(game_record_id);
    `)
	return err
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
        INSERT INTO game_records (room_id, winner, day_number, night_number, players, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, record.RoomID, string(record.Winner), record.DayNumber, record.NightNumber, players, record.EndedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}

	for _, pr := range record.Players {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO game_results (game_record_id, account_id, role, survived, outcome)
            VALUES ($1, $2, $3, $4, $5)
        `, id, pr.AccountID, string(pr.Role), pr.Survived, string(pr.Outcome))
		if err != nil {
			return fmt.Errorf("insert game result: %w", err)
		}
	}
	return tx.Commit()
}

func (p *PostgreSQL) ListGameRecords(ctx context.Context, accountID string, limit int) ([]models.GameRecord, error) {
	query := `
        SELECT room_id, winner, day_number, night_number, players, ended_at
        FROM game_records
        WHERE deleted_at IS NULL
          AND ($1::text = '' OR id IN (SELECT game_record_id FROM game_results WHERE account_id = $1))
        ORDER BY ended_at DESC
    `
	args := []interface{}{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		var (
			rec     models.GameRecord
			winner  string
			players []byte
		)
		if err := rows.Scan(&rec.RoomID, &winner, &rec.DayNumber, &rec.NightNumber, &players, &rec.EndedAt); err != nil {
			return nil, err
		}
		rec.Winner = models.Winner(winner)
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetAccountStats 玩家统计
func (p *PostgreSQL) GetAccountStats(ctx context.Context, accountID string) (models.AccountStats, error) {
	stats := models.AccountStats{AccountID: accountID}
	err := p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN outcome = $2 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome = $3 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome = $4 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN role = $5 THEN 1 ELSE 0 END), 0)
        FROM game_results
        WHERE account_id = $1
    `, accountID, string(models.OutcomeWin), string(models.OutcomeLose), string(models.OutcomeDraw), string(models.RoleTraitor)).
		Scan(&stats.TotalGames, &stats.Wins, &stats.Losses, &stats.Draws, &stats.TraitorGames)
	if err != nil {
		if err == sql.ErrNoRows {
			return stats, ErrRecordNotFound
		}
		return models.AccountStats{}, err
	}
	if stats.TotalGames == 0 {
		return stats, ErrRecordNotFound
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
