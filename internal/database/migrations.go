package database

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

const migrationUpgradeLegacyNotes = "2026-10-19_upgrade_legacy_notes"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

// applyMigrations runs each pending migration once. Page ids minted while upgrading legacy
// notes come from ids, or UUIDv7 when ids is nil.
func applyMigrations(db *gorm.DB, ids notes.IDProvider, log *zap.Logger) error {
	if ids == nil {
		ids = notes.NewUUIDProvider()
	}
	migrations := []migrationDefinition{
		{name: migrationUpgradeLegacyNotes, apply: func(db *gorm.DB) error {
			return upgradeLegacyNotes(db, ids)
		}},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if log != nil {
			log.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// upgradeLegacyNotes rewrites notes stored before pages and tags existed.
func upgradeLegacyNotes(db *gorm.DB, ids notes.IDProvider) error {
	store, err := storage.NewSQLStore(db)
	if err != nil {
		return err
	}
	gateway, err := storage.NewGateway(store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var stored []notes.Note
	found, err := gateway.LoadJSON(ctx, storage.NotesKey, &stored)
	if errors.Is(err, storage.ErrCorrupt) {
		return nil
	}
	if err != nil || !found {
		return err
	}

	upgraded, changed, err := notes.UpgradeLegacyNotes(stored, ids)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return gateway.SaveJSON(ctx, storage.NotesKey, upgraded)
}
