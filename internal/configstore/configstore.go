package configstore

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/semmidev/dbswap/internal/domain"
)

// Record is the persisted binding of one database slot.
type Record struct {
	Path         string    `mapstructure:"path"`
	LastModified time.Time `mapstructure:"last_modified"`
	Source       string    `mapstructure:"source"`
}

// Store persists one record per database type under databases.<type> in a
// YAML document, so the bindings survive restarts.
type Store struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

func New(path string) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	return &Store{path: path, v: v}
}

// Load reads the document from disk. A missing file yields an empty map.
func (s *Store) Load() (map[domain.DatabaseType]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return map[domain.DatabaseType]Record{}, nil
		}
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return map[domain.DatabaseType]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read database config: %w", err)
	}

	records := make(map[domain.DatabaseType]Record)
	for _, dbType := range domain.AllDatabaseTypes() {
		key := fmt.Sprintf("databases.%s", dbType)
		if !s.v.IsSet(key) {
			continue
		}

		record := Record{
			Path:   s.v.GetString(key + ".path"),
			Source: s.v.GetString(key + ".source"),
		}
		if raw := s.v.GetString(key + ".last_modified"); raw != "" {
			if at, err := time.Parse(time.RFC3339, raw); err == nil {
				record.LastModified = at
			}
		}
		records[dbType] = record
	}

	return records, nil
}

// Persist commits one slot binding and rewrites the document.
func (s *Store) Persist(dbType domain.DatabaseType, path, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("databases.%s", dbType)
	s.v.Set(key+".path", path)
	s.v.Set(key+".last_modified", time.Now().Format(time.RFC3339))
	s.v.Set(key+".source", source)

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write database config: %w", err)
	}
	return nil
}
