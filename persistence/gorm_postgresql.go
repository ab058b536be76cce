// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/traitorserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormGameRecord{}, &models.GormGameResult{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveGameRecord 保存游戏记录, 记录和每个玩家的结果在同一个事务中写入
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	row := models.GormGameRecord{
		RoomID:      record.RoomID,
		Winner:      string(record.Winner),
		DayNumber:   record.DayNumber,
		NightNumber: record.NightNumber,
		Players:     record.Players,
		EndedAt:     record.EndedAt,
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Results").Create(&row).Error; err != nil {
			return err
		}
		if len(record.Players) == 0 {
			return nil
		}
		results := make([]models.GormGameResult, 0, len(record.Players))
		for _, pr := range record.Players {
			results = append(results, models.GormGameResult{
				GameRecordID: row.ID,
				AccountID:    pr.AccountID,
				Role:         string(pr.Role),
				Survived:     pr.Survived,
				Outcome:      string(pr.Outcome),
			})
		}
		return tx.Create(&results).Error
	})
}

func (p *GormPostgreSQL) ListGameRecords(ctx context.Context, accountID string, limit int) ([]models.GameRecord, error) {
	q := p.db.WithContext(ctx).Model(&models.GormGameRecord{})
	if accountID != "" {
		q = q.Where("id IN (?)", p.db.Model(&models.GormGameResult{}).
			Select("game_record_id").Where("account_id = ?", accountID))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.GormGameRecord
	if err := q.Order("ended_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]models.GameRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToRecord())
	}
	return records, nil
}

// GetAccountStats 玩家统计, 在数据库中聚合
func (p *GormPostgreSQL) GetAccountStats(ctx context.Context, accountID string) (models.AccountStats, error) {
	var row struct {
		TotalGames   int
		Wins         int
		Losses       int
		Draws        int
		TraitorGames int
	}
	err := p.db.WithContext(ctx).Model(&models.GormGameResult{}).
		Select(`COUNT(*) AS total_games,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS wins,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS losses,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS draws,
            COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0) AS traitor_games`,
			string(models.OutcomeWin), string(models.OutcomeLose), string(models.OutcomeDraw), string(models.RoleTraitor)).
		Where("account_id = ?", accountID).
		Scan(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AccountStats{AccountID: accountID}, ErrRecordNotFound
		}
		return models.AccountStats{}, err
	}

	stats := models.AccountStats{
		AccountID:    accountID,
		TotalGames:   row.TotalGames,
		Wins:         row.Wins,
		Losses:       row.Losses,
		Draws:        row.Draws,
		TraitorGames: row.TraitorGames,
	}
	if stats.TotalGames == 0 {
		return stats, ErrRecordNotFound
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
