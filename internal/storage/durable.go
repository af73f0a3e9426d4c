package storage

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one persisted key/value pair. Values are JSON documents owned by
// a single writer each (the cart store writes "cartItems").
type Entry struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `gorm:"not null"   json:"value"`
}

// Durable survives restarts. It is the client-side counterpart of the
// browser's localStorage, backed by a local sqlite file.
type Durable struct {
	db *gorm.DB
}

func OpenDurable(path string) (*Durable, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open durable storage: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate durable storage: %w", err)
	}
	return &Durable{db: db}, nil
}

func (d *Durable) Get(key string) (string, bool, error) {
	var entry Entry
	err := d.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (d *Durable) Set(key, value string) error {
	entry := Entry{Key: key, Value: value}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
}

func (d *Durable) Delete(key string) error {
	return d.db.Delete(&Entry{}, "key = ?", key).Error
}

func (d *Durable) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
