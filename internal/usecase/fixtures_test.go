package usecase

import (
	"context"
	"encoding/binary"
	"os"
	"sync"
	"testing"

	"github.com/semmidev/dbswap/internal/adapter/integrity"
	"github.com/semmidev/dbswap/internal/domain"
	"github.com/semmidev/dbswap/internal/registry"
	"github.com/semmidev/dbswap/internal/store"
)

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}
func (noopLogger) Warnf(string, ...interface{})  {}

type fakeProvider struct {
	mu    sync.Mutex
	state domain.TradingState
	err   error
}

func (p *fakeProvider) State(context.Context) (domain.TradingState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.err
}

func (p *fakeProvider) set(state domain.TradingState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

type fakePool struct {
	mu         sync.Mutex
	released   int
	reacquired int
	releaseErr error
}

func (p *fakePool) ReleaseAll(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.releaseErr != nil {
		return p.releaseErr
	}
	p.released++
	return nil
}

func (p *fakePool) Reacquire(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reacquired++
	return nil
}

type fakePersister struct {
	mu      sync.Mutex
	commits map[domain.DatabaseType]string
}

func (p *fakePersister) Persist(dbType domain.DatabaseType, path, source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.commits == nil {
		p.commits = make(map[domain.DatabaseType]string)
	}
	p.commits[dbType] = path
	return nil
}

// writeDatabaseFile writes a structurally valid database file of one or more
// 4096-byte pages.
func writeDatabaseFile(t *testing.T, path string, pages int, fill byte) {
	t.Helper()

	content := make([]byte, 4096*pages)
	copy(content, "SQLite format 3\x00")
	binary.BigEndian.PutUint16(content[16:18], 4096)
	for i := 100; i < len(content); i++ {
		content[i] = fill
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write database file: %v", err)
	}
}

// env wires a full coordinator stack over a temp data directory with an
// active strategies profile bound to the canonical slot path.
type env struct {
	dir       string
	reg       *registry.Registry
	st        *store.ProfileStore
	integrity *integrity.Service
	provider  *fakeProvider
	pool      *fakePool
	persister *fakePersister
	gate      *SafetyGate
	manager   *BackupManager
	coord     *Coordinator
	profile   *domain.Profile
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dir, err := os.MkdirTemp("", "usecase_test")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	reg, err := registry.New(dir)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	canonical, err := reg.Resolve(domain.TypeStrategies)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	writeDatabaseFile(t, canonical.String(), 2, 0x11)

	profile, err := domain.NewProfile("strategies", domain.TypeStrategies, canonical.String())
	if err != nil {
		t.Fatalf("new profile: %v", err)
	}

	st := store.NewProfileStore()
	if err := st.AddProfile(profile); err != nil {
		t.Fatalf("add profile: %v", err)
	}
	if err := st.Activate(profile.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	integ := integrity.New()
	provider := &fakeProvider{state: domain.TradingState{CanSwitch: true}}
	pool := &fakePool{}
	persister := &fakePersister{}
	logger := noopLogger{}

	gate := NewSafetyGate(provider, pool, logger)
	manager := NewBackupManager(st, reg, integ, nil, nil, logger, false)
	coord := NewCoordinator(st, reg, integ, gate, manager, persister, logger)

	return &env{
		dir:       dir,
		reg:       reg,
		st:        st,
		integrity: integ,
		provider:  provider,
		pool:      pool,
		persister: persister,
		gate:      gate,
		manager:   manager,
		coord:     coord,
		profile:   profile,
	}
}
