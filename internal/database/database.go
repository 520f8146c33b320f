package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"velorent/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// timeFormat is the canonical UTC timestamp layout stored in SQLite.
// Fixed-width, so lexicographic comparison matches chronological order.
const timeFormat = "2006-01-02 15:04:05"

type DB struct {
	*sql.DB
	logger *zerolog.Logger

	mu          sync.RWMutex
	bikesCache  map[string]*models.Bike
	sortedBikes []*models.Bike
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger, bikesCache: make(map[string]*models.Bike)}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_number INTEGER NOT NULL,
            renter_id TEXT NOT NULL,
            bike_id TEXT NOT NULL,
            bike_name TEXT NOT NULL,
            start_time DATETIME NOT NULL,
            end_time DATETIME NOT NULL,
            with_helmet BOOLEAN NOT NULL DEFAULT 0,
            total_cents INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            payment_ref TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_bike_id ON bookings(bike_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_renter_id ON bookings(renter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start_time ON bookings(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_end_time ON bookings(end_time)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetBikes устанавливает каталог велосипедов для проверок доступности.
func (db *DB) SetBikes(bikes []*models.Bike) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.bikesCache = make(map[string]*models.Bike, len(bikes))
	for _, bike := range bikes {
		db.bikesCache[bike.ID] = bike
	}

	sorted := append([]*models.Bike(nil), bikes...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SortOrder == sorted[j].SortOrder {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].SortOrder < sorted[j].SortOrder
	})
	db.sortedBikes = sorted
}

// GetBikes returns the catalog in display order.
func (db *DB) GetBikes() []*models.Bike {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]*models.Bike(nil), db.sortedBikes...)
}

func (db *DB) GetBikeByID(id string) (*models.Bike, error) {
	db.mu.RLock()
	bike, ok := db.bikesCache[id]
	db.mu.RUnlock()
	if !ok {
		return nil, ErrBikeNotFound
	}
	return bike, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
