package cache

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	commonsLogger "github.com/flanksource/commons/logger"
)

// patternRow is the GORM model backing a persisted CacheEntry, grounded
// on the teacher's internal/cache SQLite setup (WAL mode, busy timeout)
// adapted from AST nodes to translation patterns.
type patternRow struct {
	Fingerprint  string `gorm:"primaryKey"`
	KqlTemplate  string
	Complexity   string
	HitCount     int64
	SuccessCount int64
	FailureCount int64
	CreatedAt    time.Time
	LastAccess   time.Time
}

func (patternRow) TableName() string { return "translation_patterns" }

// GormStore persists CacheEntry rows to a SQLite database via GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (and migrates) a SQLite-backed pattern store at
// dbPath.
func NewGormStore(dbPath string) (*GormStore, error) {
	logMode := logger.Silent
	if commonsLogger.IsLevelEnabled(3) {
		logMode = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&patternRow{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Load returns every persisted entry.
func (s *GormStore) Load() ([]*CacheEntry, error) {
	var rows []patternRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*CacheEntry, len(rows))
	for i, r := range rows {
		entries[i] = &CacheEntry{
			Fingerprint:  r.Fingerprint,
			KqlTemplate:  r.KqlTemplate,
			Complexity:   r.Complexity,
			HitCount:     r.HitCount,
			SuccessCount: r.SuccessCount,
			FailureCount: r.FailureCount,
			CreatedAt:    r.CreatedAt,
			LastAccess:   r.LastAccess,
		}
	}
	return entries, nil
}

// Upsert inserts or updates e's row.
func (s *GormStore) Upsert(e *CacheEntry) error {
	row := patternRow{
		Fingerprint:  e.Fingerprint,
		KqlTemplate:  e.KqlTemplate,
		Complexity:   e.Complexity,
		HitCount:     e.HitCount,
		SuccessCount: e.SuccessCount,
		FailureCount: e.FailureCount,
		CreatedAt:    e.CreatedAt,
		LastAccess:   e.LastAccess,
	}
	return s.db.Save(&row).Error
}
