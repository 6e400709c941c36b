package repository

import (
	"copier/internal/db"
	"copier/internal/model"
	"time"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Save(result model.SyncResult) error {
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	m := result.Action.Mapping
	history := model.History{
		Copyset:  m.Copyset,
		Source:   m.Source,
		Target:   m.Target,
		Action:   result.Action.Kind,
		Outcome:  result.Outcome,
		Reason:   result.Action.Reason,
		Attempts: result.Attempts,
		ErrMsg:   errMsg,
		Duration: result.Duration,
		SyncedAt: time.Now(),
	}

	return db.DB.Create(&history).Error
}

type Stats struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("outcome = ?", model.OutcomeFailed).
		Count(&stats.Failed).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("synced_at desc").
		Order("id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("outcome = ?", model.OutcomeFailed).
		Order("synced_at desc").
		Order("id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}
