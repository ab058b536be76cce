// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID      string           `gorm:"index;not null"`
	Winner      string           `gorm:"not null"`
	DayNumber   int              `gorm:"default:0"`
	NightNumber int              `gorm:"default:0"`
	Players     []PlayerResult   `gorm:"serializer:json;type:jsonb;not null"`
	EndedAt     time.Time        `gorm:"index"`
	Results     []GormGameResult `gorm:"foreignKey:GameRecordID"`
}

func (GormGameRecord) TableName() string { return "game_records" }

// GormGameResult is one player's line in a finished game, kept in its own
// table so per-account stats can be aggregated in SQL.
type GormGameResult struct {
	ID           uint   `gorm:"primaryKey"`
	GameRecordID uint   `gorm:"index;not null"`
	AccountID    string `gorm:"index;not null"`
	Role         string `gorm:"not null"`
	Survived     bool
	Outcome      string `gorm:"not null"`
}

func (GormGameResult) TableName() string { return "game_results" }

// ToRecord converts the stored row back into the domain record.
func (g GormGameRecord) ToRecord() GameRecord {
	return GameRecord{
		RoomID:      g.RoomID,
		Winner:      Winner(g.Winner),
		DayNumber:   g.DayNumber,
		NightNumber: g.NightNumber,
		Players:     append([]PlayerResult(nil), g.Players...),
		EndedAt:     g.EndedAt,
	}
}
