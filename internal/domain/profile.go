package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DatabaseType names one of the fixed slots a database file can fill.
type DatabaseType string

const (
	TypeSettings   DatabaseType = "settings"
	TypeStrategies DatabaseType = "strategies"
	TypeMarketData DatabaseType = "market_data"
)

func AllDatabaseTypes() []DatabaseType {
	return []DatabaseType{TypeSettings, TypeStrategies, TypeMarketData}
}

func (t DatabaseType) Valid() bool {
	switch t {
	case TypeSettings, TypeStrategies, TypeMarketData:
		return true
	}
	return false
}

// Profile binds one database slot to a concrete file on disk.
type Profile struct {
	ID           string
	Name         string
	Type         DatabaseType
	FilePath     string
	CreatedAt    time.Time
	LastAccessed time.Time
	Active       bool
	Metadata     map[string]string
}

func NewProfile(name string, dbType DatabaseType, filePath string) (*Profile, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !dbType.Valid() {
		return nil, &ValidationError{Field: "database_type", Reason: fmt.Sprintf("unknown type %q", dbType)}
	}
	if _, err := NewDatabasePath(filePath); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Profile{
		ID:           uuid.NewString(),
		Name:         name,
		Type:         dbType,
		FilePath:     filePath,
		CreatedAt:    now,
		LastAccessed: now,
		Metadata:     make(map[string]string),
	}, nil
}

func (p *Profile) Touch() {
	p.LastAccessed = time.Now()
}
