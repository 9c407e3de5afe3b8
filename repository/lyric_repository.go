package repository

import (
	"fmt"

	"gorm.io/gorm"

	"LumiFM/db"
	"LumiFM/model"
)

// LyricRepository 歌词行的持久化。
// 歌词按曲目整份替换：时间轴调整（整体平移、单行重定时）落库时
// 先删后插在一个事务里完成，避免出现半新半旧的时间轴。
type LyricRepository interface {
	GetLinesByTrackID(trackID int64) ([]model.LyricLine, error)
	ReplaceLines(trackID int64, lines []model.LyricLine) error
	DeleteLines(trackID int64) error
}

type gormLyricRepository struct {
	db *gorm.DB
}

// NewGormLyricRepository 创建基于 GORM 的歌词仓库。
func NewGormLyricRepository() LyricRepository {
	return &gormLyricRepository{db: db.GormDB}
}

// GetLinesByTrackID 按行序返回一首曲目的全部歌词。
func (r *gormLyricRepository) GetLinesByTrackID(trackID int64) ([]model.LyricLine, error) {
	var lines []model.LyricLine
	err := r.db.Where("track_id = ?", trackID).
		Order("line_index ASC").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load lyrics for track %d: %w", trackID, err)
	}
	return lines, nil
}

// ReplaceLines 整份替换一首曲目的歌词。
func (r *gormLyricRepository) ReplaceLines(trackID int64, lines []model.LyricLine) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", trackID).Delete(&model.LyricLine{}).Error; err != nil {
			return fmt.Errorf("failed to clear lyrics for track %d: %w", trackID, err)
		}
		if len(lines) == 0 {
			return nil
		}
		rows := make([]model.LyricLine, len(lines))
		copy(rows, lines)
		for i := range rows {
			rows[i].TrackID = trackID
			rows[i].LineIndex = i
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert lyrics for track %d: %w", trackID, err)
		}
		return nil
	})
}

// DeleteLines 删除一首曲目的全部歌词。
func (r *gormLyricRepository) DeleteLines(trackID int64) error {
	if err := r.db.Where("track_id = ?", trackID).Delete(&model.LyricLine{}).Error; err != nil {
		return fmt.Errorf("failed to delete lyrics for track %d: %w", trackID, err)
	}
	return nil
}
