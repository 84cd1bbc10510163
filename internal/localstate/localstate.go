// Package localstate persists the device-local slices of portal state: the
// saved session and the task list. Nothing here is synced to the server;
// the store stands in for the browser's local key-value storage.
package localstate

import (
	"encoding/json"
	"errors"
	"fmt"

	"unihub/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sessionRowID = 1

// savedSession is the single-row table holding the serialized session.
type savedSession struct {
	ID      uint   `gorm:"primaryKey"`
	Payload string `gorm:"type:text"`
}

// Store is the device-local database. It is read once at startup and
// thereafter written through by the stores; external modification while
// the process runs is not observed.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the local state database at path. Use ":memory:"
// in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	if err := db.AutoMigrate(&savedSession{}, &models.Task{}); err != nil {
		return nil, fmt.Errorf("migrate local state: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSession persists the session, replacing any previous one.
func (s *Store) SaveSession(sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Save(&savedSession{ID: sessionRowID, Payload: string(payload)}).Error
}

// LoadSession restores the persisted session. A missing or malformed
// record is treated as "no session": it is discarded and (nil, nil) is
// returned.
func (s *Store) LoadSession() (*models.Session, error) {
	var row savedSession
	err := s.db.First(&row, sessionRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(row.Payload), &sess); err != nil {
		// Corrupt record: drop it rather than failing startup.
		_ = s.ClearSession()
		return nil, nil
	}
	if !sess.IsAuthenticated || sess.User.ID == 0 {
		_ = s.ClearSession()
		return nil, nil
	}
	return &sess, nil
}

// ClearSession removes the persisted session.
func (s *Store) ClearSession() error {
	return s.db.Delete(&savedSession{}, sessionRowID).Error
}

// SaveTask inserts or updates a task.
func (s *Store) SaveTask(t *models.Task) error {
	return s.db.Save(t).Error
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(id string) error {
	return s.db.Delete(&models.Task{}, "id = ?", id).Error
}

// LoadTasks returns every persisted task, newest first.
func (s *Store) LoadTasks() ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.db.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}
