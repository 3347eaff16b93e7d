package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/pixeleasel/easeld/internal/task"
)

// DefaultMaxTasksToKeep is the retention bound applied when the caller does
// not supply one.
const DefaultMaxTasksToKeep = 100

// batchTaskRow is the persisted shape of a task. Column names match the
// original batch_tasks schema; the kind discriminator lives in the legacy
// "type" column.
type batchTaskRow struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Name           string         `gorm:"column:name;not null"`
	Type           string         `gorm:"column:type;not null"`
	Status         string         `gorm:"column:status;not null"`
	Progress       int            `gorm:"column:progress;not null"`
	TotalItems     int            `gorm:"column:total_items;not null"`
	CompletedItems int            `gorm:"column:completed_items;not null"`
	FailedItems    int            `gorm:"column:failed_items;not null"`
	Created        string         `gorm:"column:created_at;not null"`
	Started        *string        `gorm:"column:started_at"`
	Completed      *string        `gorm:"column:completed_at"`
	ConfigJSON     datatypes.JSON `gorm:"column:config_json;not null"`
	ItemsJSON      datatypes.JSON `gorm:"column:items_json;not null"`
	ResultsJSON    datatypes.JSON `gorm:"column:results_json;not null"`
	ErrorText      *string        `gorm:"column:error_text"`
}

func (batchTaskRow) TableName() string { return "batch_tasks" }

// Store is a durable batch task table backed by a SQLite file.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the batch_tasks table exists. The parent directory is created as needed.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&batchTaskRow{}); err != nil {
		return nil, fmt.Errorf("migrate batch_tasks: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetAll returns every task, newest first by creation time. A row whose JSON
// blobs cannot be decoded fails the whole call rather than being dropped.
func (s *Store) GetAll() ([]task.BatchTask, error) {
	var rows []batchTaskRow
	if err := s.db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	tasks := make([]task.BatchTask, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTask()
		if err != nil {
			return nil, fmt.Errorf("decode task %s: %w", row.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Upsert writes t as a full row, replacing any existing row with the same
// id. The config, items, and results collections are serialized
// independently.
func (s *Store) Upsert(t task.BatchTask) error {
	row, err := toRow(t)
	if err != nil {
		return err
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}

	s.log.Debug("task saved", zap.String("id", t.ID), zap.String("status", t.Status))
	return nil
}

// Delete removes the task with the given id. Deleting an absent id is not an
// error.
func (s *Store) Delete(id string) error {
	if err := s.db.Where("id = ?", id).Delete(&batchTaskRow{}).Error; err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// Clear removes all tasks.
func (s *Store) Clear() error {
	if err := s.db.Exec("DELETE FROM batch_tasks").Error; err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	return nil
}

// Count returns the number of stored tasks.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&batchTaskRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// CleanupOld deletes every task beyond the maxToKeep most recently created
// and returns the number removed. maxToKeep of 0 purges everything; a bound
// at or above the row count removes nothing.
func (s *Store) CleanupOld(maxToKeep int) (int64, error) {
	if maxToKeep < 0 {
		maxToKeep = DefaultMaxTasksToKeep
	}

	var ids []string
	err := s.db.
		Raw("SELECT id FROM batch_tasks ORDER BY created_at DESC LIMIT -1 OFFSET ?", maxToKeep).
		Scan(&ids).Error
	if err != nil {
		return 0, fmt.Errorf("select old tasks: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.db.Where("id IN ?", ids).Delete(&batchTaskRow{}).Error; err != nil {
		return 0, fmt.Errorf("delete old tasks: %w", err)
	}

	s.log.Info("old tasks removed", zap.Int("count", len(ids)), zap.Int("kept", maxToKeep))
	return int64(len(ids)), nil
}

func toRow(t task.BatchTask) (batchTaskRow, error) {
	configJSON, err := json.Marshal(t.Config)
	if err != nil {
		return batchTaskRow{}, fmt.Errorf("serialize config: %w", err)
	}
	itemsJSON, err := json.Marshal(t.Items)
	if err != nil {
		return batchTaskRow{}, fmt.Errorf("serialize items: %w", err)
	}
	resultsJSON, err := json.Marshal(t.Results)
	if err != nil {
		return batchTaskRow{}, fmt.Errorf("serialize results: %w", err)
	}

	return batchTaskRow{
		ID:             t.ID,
		Name:           t.Name,
		Type:           t.Type,
		Status:         t.Status,
		Progress:       t.Progress,
		TotalItems:     t.TotalItems,
		CompletedItems: t.CompletedItems,
		FailedItems:    t.FailedItems,
		Created:        t.CreatedAt,
		Started:        t.StartedAt,
		Completed:      t.CompletedAt,
		ConfigJSON:     datatypes.JSON(configJSON),
		ItemsJSON:      datatypes.JSON(itemsJSON),
		ResultsJSON:    datatypes.JSON(resultsJSON),
		ErrorText:      t.Error,
	}, nil
}

func (row batchTaskRow) toTask() (task.BatchTask, error) {
	t := task.BatchTask{
		ID:             row.ID,
		Name:           row.Name,
		Type:           row.Type,
		Status:         row.Status,
		Progress:       row.Progress,
		TotalItems:     row.TotalItems,
		CompletedItems: row.CompletedItems,
		FailedItems:    row.FailedItems,
		CreatedAt:      row.Created,
		StartedAt:      row.Started,
		CompletedAt:    row.Completed,
		Error:          row.ErrorText,
	}

	if err := json.Unmarshal(row.ConfigJSON, &t.Config); err != nil {
		return task.BatchTask{}, fmt.Errorf("config: %w", err)
	}
	if err := json.Unmarshal(row.ItemsJSON, &t.Items); err != nil {
		return task.BatchTask{}, fmt.Errorf("items: %w", err)
	}
	if err := json.Unmarshal(row.ResultsJSON, &t.Results); err != nil {
		return task.BatchTask{}, fmt.Errorf("results: %w", err)
	}
	return t, nil
}
