package store

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/semmidev/dbswap/internal/domain"
)

// ProfileStore is the aggregate owning profiles and backup records. It
// enforces that each database type has at most one active profile and that
// the active map only ever references existing, active, correctly typed
// profiles.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile
	backups  map[string]*domain.BackupRecord
	active   map[domain.DatabaseType]string
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]*domain.Profile),
		backups:  make(map[string]*domain.BackupRecord),
		active:   make(map[domain.DatabaseType]string),
	}
}

// AddProfile registers a profile. A duplicate id or duplicate file path is
// rejected. When the incoming profile is active, the prior active profile of
// the same type is deactivated first so the single-active invariant holds
// within this one mutation.
func (s *ProfileStore) AddProfile(p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return domain.ErrDuplicateProfile
	}
	for _, existing := range s.profiles {
		if existing.FilePath == p.FilePath {
			return domain.ErrDuplicatePath
		}
	}

	if p.Active {
		if priorID, ok := s.active[p.Type]; ok {
			s.profiles[priorID].Active = false
		}
		s.active[p.Type] = p.ID
	}
	s.profiles[p.ID] = p

	return s.checkInvariants()
}

// Activate makes a profile the active one for its type. The bound file must
// exist on disk.
func (s *ProfileStore) Activate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if _, err := os.Stat(p.FilePath); err != nil {
		return fmt.Errorf("cannot activate profile %s: %w", id, err)
	}

	if priorID, ok := s.active[p.Type]; ok && priorID != id {
		s.profiles[priorID].Active = false
	}
	p.Active = true
	p.Touch()
	s.active[p.Type] = id

	return s.checkInvariants()
}

func (s *ProfileStore) Deactivate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}

	p.Active = false
	if s.active[p.Type] == id {
		delete(s.active, p.Type)
	}

	return s.checkInvariants()
}

// RemoveProfile deletes an inactive profile and cascades deletion of its
// backup records.
func (s *ProfileStore) RemoveProfile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if p.Active {
		return domain.ErrProfileActive
	}

	delete(s.profiles, id)
	for backupID, record := range s.backups {
		if record.ProfileID == id {
			delete(s.backups, backupID)
		}
	}

	return s.checkInvariants()
}

// UpdatePath rebinds a profile to a new file path, e.g. after a committed
// path change.
func (s *ProfileStore) UpdatePath(id, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if _, err := domain.NewDatabasePath(newPath); err != nil {
		return err
	}
	for otherID, existing := range s.profiles {
		if otherID != id && existing.FilePath == newPath {
			return domain.ErrDuplicatePath
		}
	}

	p.FilePath = newPath
	p.Touch()

	return s.checkInvariants()
}

func (s *ProfileStore) GetProfile(id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (s *ProfileStore) GetActive(dbType domain.DatabaseType) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[dbType]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return s.profiles[id], nil
}

func (s *ProfileStore) GetByType(dbType domain.DatabaseType) []*domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Profile
	for _, p := range s.profiles {
		if p.Type == dbType {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (s *ProfileStore) AddBackup(record *domain.BackupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.backups[record.ID]; exists {
		return fmt.Errorf("backup record %s already registered", record.ID)
	}
	if _, exists := s.profiles[record.ProfileID]; !exists {
		return domain.ErrProfileNotFound
	}
	s.backups[record.ID] = record

	return s.checkInvariants()
}

func (s *ProfileStore) GetBackup(id string) (*domain.BackupRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.backups[id]
	if !ok {
		return nil, domain.ErrBackupNotFound
	}
	return record, nil
}

func (s *ProfileStore) RemoveBackup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.backups[id]; !ok {
		return domain.ErrBackupNotFound
	}
	delete(s.backups, id)
	return nil
}

// BackupsOlderThan returns records created before the cutoff, oldest first.
func (s *ProfileStore) BackupsOlderThan(cutoff time.Time) []*domain.BackupRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BackupRecord
	for _, record := range s.backups {
		if record.CreatedAt.Before(cutoff) {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (s *ProfileStore) BackupsForProfile(profileID string) []*domain.BackupRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BackupRecord
	for _, record := range s.backups {
		if record.ProfileID == profileID {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

// checkInvariants runs after every mutation while the write lock is held.
func (s *ProfileStore) checkInvariants() error {
	perType := make(map[domain.DatabaseType]int)
	for _, p := range s.profiles {
		if p.Active {
			perType[p.Type]++
		}
	}
	for dbType, count := range perType {
		if count > 1 {
			return fmt.Errorf("invariant violated: %d active profiles for %s", count, dbType)
		}
	}

	for dbType, id := range s.active {
		p, ok := s.profiles[id]
		if !ok {
			return fmt.Errorf("invariant violated: active map references missing profile %s", id)
		}
		if !p.Active {
			return fmt.Errorf("invariant violated: active map references inactive profile %s", id)
		}
		if p.Type != dbType {
			return fmt.Errorf("invariant violated: profile %s has type %s but is active for %s", id, p.Type, dbType)
		}
	}

	return nil
}
