package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fitsync/internal/core"
	"fitsync/internal/credentials"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers; concurrent syncs would otherwise hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	storage := &SQLiteStorage{
		db: db,
	}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			provider TEXT NOT NULL,
			status TEXT NOT NULL,
			last_sync_at DATETIME,
			is_primary INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_devices_status ON devices(status);
		CREATE INDEX IF NOT EXISTS idx_devices_provider ON devices(provider);

		CREATE TABLE IF NOT EXISTS credentials (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS platform_samples (
			provider TEXT NOT NULL,
			date TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (provider, date)
		);

		CREATE TABLE IF NOT EXISTS platform_grants (
			provider TEXT PRIMARY KEY,
			granted INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const deviceColumns = "id, name, provider, status, last_sync_at, is_primary"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*core.DeviceConnection, error) {
	var device core.DeviceConnection
	var lastSync sql.NullTime

	if err := row.Scan(&device.ID, &device.Name, &device.Provider, &device.Status, &lastSync, &device.IsPrimary); err != nil {
		return nil, err
	}
	if lastSync.Valid {
		t := lastSync.Time
		device.LastSyncAt = &t
	}
	return &device, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// ListDevices returns every cached device, primary first
func (s *SQLiteStorage) ListDevices(ctx context.Context) ([]*core.DeviceConnection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices ORDER BY is_primary DESC, created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*core.DeviceConnection
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}

	return devices, rows.Err()
}

// GetDevice retrieves a cached device by ID
func (s *SQLiteStorage) GetDevice(ctx context.Context, id string) (*core.DeviceConnection, error) {
	device, err := scanDevice(s.db.QueryRowContext(ctx, `
		SELECT `+deviceColumns+` FROM devices WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, core.ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return device, nil
}

// UpsertDevice inserts or fully overwrites a cached device
func (s *SQLiteStorage) UpsertDevice(ctx context.Context, device *core.DeviceConnection) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, provider, status, last_sync_at, is_primary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			status = excluded.status,
			last_sync_at = COALESCE(excluded.last_sync_at, devices.last_sync_at),
			is_primary = excluded.is_primary,
			updated_at = excluded.updated_at
	`, device.ID, device.Name, device.Provider, device.Status, nullTime(device.LastSyncAt), device.IsPrimary, now, now)
	return err
}

// ReplaceDevices mirrors the server's device list into the cache. Devices the
// server no longer lists are dropped unless they are local DISCONNECTED
// tombstones, and a tombstone is never resurrected by a stale server entry.
func (s *SQLiteStorage) ReplaceDevices(ctx context.Context, devices []*core.DeviceConnection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := make([]any, 0, len(devices)+1)
	ids = append(ids, core.DeviceStatusDisconnected)
	placeholders := make([]string, 0, len(devices))
	for _, device := range devices {
		ids = append(ids, device.ID)
		placeholders = append(placeholders, "?")
	}

	query := "DELETE FROM devices WHERE status != ?"
	if len(placeholders) > 0 {
		query += " AND id NOT IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if _, err := tx.ExecContext(ctx, query, ids...); err != nil {
		return err
	}

	now := time.Now()
	for _, device := range devices {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO devices (id, name, provider, status, last_sync_at, is_primary, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				provider = excluded.provider,
				status = CASE WHEN devices.status = 'DISCONNECTED' THEN devices.status ELSE excluded.status END,
				last_sync_at = CASE
					WHEN devices.last_sync_at IS NULL THEN excluded.last_sync_at
					WHEN excluded.last_sync_at IS NULL THEN devices.last_sync_at
					WHEN excluded.last_sync_at > devices.last_sync_at THEN excluded.last_sync_at
					ELSE devices.last_sync_at
				END,
				is_primary = excluded.is_primary,
				updated_at = excluded.updated_at
		`, device.ID, device.Name, device.Provider, device.Status, nullTime(device.LastSyncAt), device.IsPrimary, now, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateDeviceStatus sets a device's status and, when given, its last sync time
func (s *SQLiteStorage) UpdateDeviceStatus(ctx context.Context, id string, status core.DeviceStatus, lastSyncAt *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET status = ?, last_sync_at = COALESCE(?, last_sync_at), updated_at = ?
		WHERE id = ?
	`, status, nullTime(lastSyncAt), time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return core.ErrDeviceNotFound
	}

	return nil
}

// Get returns an encrypted credential value
func (s *SQLiteStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// SetMany writes credential values in one transaction; nil values delete their key
func (s *SQLiteStorage) SetMany(ctx context.Context, values map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for key, value := range values {
		if value == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
				return err
			}
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes credential values; missing keys are ignored
func (s *SQLiteStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, len(keys))
	placeholders := make([]string, len(keys))
	for i, key := range keys {
		args[i] = key
		placeholders[i] = "?"
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE key IN ("+strings.Join(placeholders, ", ")+")", args...)
	return err
}

// SavePlatformSample stores the daily snapshot pushed by a platform bridge
func (s *SQLiteStorage) SavePlatformSample(ctx context.Context, sample *core.HealthData) error {
	if sample.Provider == "" {
		return errors.New("sample provider is required")
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO platform_samples (provider, date, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(provider, date) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, sample.Provider, sample.Date.Format(core.DateLayout), string(data), time.Now())
	return err
}

// GetPlatformSample returns the snapshot for a date, or nil when none was pushed
func (s *SQLiteStorage) GetPlatformSample(ctx context.Context, provider core.ProviderType, date time.Time) (*core.HealthData, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM platform_samples WHERE provider = ? AND date = ?
	`, provider, date.Format(core.DateLayout)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sample core.HealthData
	if err := json.Unmarshal([]byte(data), &sample); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
	}
	return &sample, nil
}

// SetPlatformGrant records whether the platform permission was granted
func (s *SQLiteStorage) SetPlatformGrant(ctx context.Context, provider core.ProviderType, granted bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_grants (provider, granted, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET granted = excluded.granted, updated_at = excluded.updated_at
	`, provider, granted, time.Now())
	return err
}

// PlatformGrant reports whether the platform permission is currently granted
func (s *SQLiteStorage) PlatformGrant(ctx context.Context, provider core.ProviderType) (bool, error) {
	var granted bool
	err := s.db.QueryRowContext(ctx, "SELECT granted FROM platform_grants WHERE provider = ?", provider).Scan(&granted)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return granted, nil
}
