package models

import (
	"time"

	"github.com/mohammadpnp/member-import/internal/domain/importing"
)

type Import struct {
	ID                string  `gorm:"type:varchar(36);primaryKey"`
	Filename          string  `gorm:"type:text;not null"`
	Path              string  `gorm:"type:text;not null"`
	Disk              string  `gorm:"size:64;not null"`
	OwnerID           string  `gorm:"size:64;not null;index"`
	AffiliateID       *string `gorm:"type:varchar(36)"`
	TotalRows         int64   `gorm:"not null;default:0"`
	TotalChunks       int     `gorm:"not null;default:0"`
	ChunkSize         int     `gorm:"not null"`
	ProcessedRows     int64   `gorm:"not null;default:0"`
	SuccessRows       int64   `gorm:"not null;default:0"`
	FailedRows        int64   `gorm:"not null;default:0"`
	CreatedRows       int64   `gorm:"not null;default:0"`
	UpdatedRows       int64   `gorm:"not null;default:0"`
	SkippedRows       int64   `gorm:"not null;default:0"`
	ProcessedChunks   int     `gorm:"not null;default:0"`
	FailedChunks      int     `gorm:"not null;default:0"`
	CurrentChunkIndex *int
	Status            string `gorm:"size:16;not null;index"`
	PauseRequested    bool   `gorm:"not null;default:false"`
	StopRequested     bool   `gorm:"not null;default:false"`
	ResumeRequested   bool   `gorm:"not null;default:false"`
	StartedAt         *time.Time
	PausedAt          *time.Time
	ResumedAt         *time.Time
	StoppedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Import) TableName() string {
	return "imports"
}

type ImportChunk struct {
	ID                 string                `gorm:"type:varchar(36);primaryKey"`
	ImportID           string                `gorm:"type:varchar(36);not null;uniqueIndex:idx_import_chunks_import_index,priority:1"`
	ChunkIndex         int                   `gorm:"not null;uniqueIndex:idx_import_chunks_import_index,priority:2"`
	StartRow           int64                 `gorm:"not null"`
	EndRow             int64                 `gorm:"not null"`
	Status             string                `gorm:"size:16;not null;index"`
	TotalRows          int64                 `gorm:"not null;default:0"`
	ProcessedRows      int64                 `gorm:"not null;default:0"`
	SuccessRows        int64                 `gorm:"not null;default:0"`
	FailedRows         int64                 `gorm:"not null;default:0"`
	CreatedRows        int64                 `gorm:"not null;default:0"`
	UpdatedRows        int64                 `gorm:"not null;default:0"`
	SkippedRows        int64                 `gorm:"not null;default:0"`
	RowResults         []importing.RowResult `gorm:"type:text;serializer:json"`
	ProcessingDuration int64                 `gorm:"not null;default:0"`
	Attempts           int                   `gorm:"not null;default:0"`
	LastError          *string               `gorm:"type:text"`
	StartedAt          *time.Time
	CompletedAt        *time.Time
	AggregatedAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ImportChunk) TableName() string {
	return "import_chunks"
}
