package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// Settings are stored one per row, keyed by their dotted path
// (e.g. "forecast.step_seconds") with a JSON-encoded value.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database, applies
// defaults and validates it.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	tree := map[string]interface{}{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		if err := insertPath(tree, strings.Split(key, "."), json.RawMessage(value)); err != nil {
			return nil, fmt.Errorf("%w: setting %q: %v", ErrInvalidConfig, key, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	doc, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config := &ConfigData{}
	dec := json.NewDecoder(strings.NewReader(string(doc)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig replaces every stored setting with the contents of configData.
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	doc, err := json.Marshal(configData)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	var tree map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(string(doc)))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	settings := map[string]string{}
	if err := flattenPath(tree, "", settings); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear existing settings: %w", err)
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, k, settings[k]); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// SetValue stores a single setting. value is JSON-encoded before storage.
func (s *SQLiteProvider) SetValue(key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	_, err = s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// IsReadOnly returns false since SQLite supports write operations
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func insertPath(tree map[string]interface{}, path []string, value json.RawMessage) error {
	if len(path) == 1 {
		if _, exists := tree[path[0]]; exists {
			return fmt.Errorf("conflicts with a nested setting")
		}
		tree[path[0]] = value
		return nil
	}

	child, ok := tree[path[0]]
	if !ok {
		child = map[string]interface{}{}
		tree[path[0]] = child
	}
	sub, ok := child.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s is a value, not a section", path[0])
	}
	return insertPath(sub, path[1:], value)
}

func flattenPath(tree map[string]interface{}, prefix string, out map[string]string) error {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			if err := flattenPath(sub, key, out); err != nil {
				return err
			}
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode setting %s: %w", key, err)
		}
		out[key] = string(encoded)
	}
	return nil
}
