package usecase

import (
	"context"
	"fmt"

	"github.com/semmidev/dbswap/internal/domain"
)

// GateOperation is the kind of action the safety gate is asked about.
type GateOperation string

const (
	OpBackupCreate  GateOperation = "backup_create"
	OpBackupRestore GateOperation = "backup_restore"
	OpPathChange    GateOperation = "path_change"
	OpProfileSwitch GateOperation = "profile_switch"
	OpFileImport    GateOperation = "file_import"
)

// GateOperationFor maps a replacement kind onto the gate operation that
// guards it.
func GateOperationFor(kind domain.ReplacementKind) GateOperation {
	switch kind {
	case domain.KindBackupRestore:
		return OpBackupRestore
	case domain.KindFileImport:
		return OpFileImport
	default:
		return OpPathChange
	}
}

// Decision is the gate's answer for one operation.
type Decision struct {
	Allowed         bool
	Reason          string
	Blocking        []string
	Recommendations []string
}

// SafetyGate consults the live trading state before destructive operations
// and asks the connection pool to let go of file handles around a swap.
type SafetyGate struct {
	provider domain.TradingStateProvider
	pool     domain.ConnectionPool
	logger   Logger
}

func NewSafetyGate(provider domain.TradingStateProvider, pool domain.ConnectionPool, logger Logger) *SafetyGate {
	return &SafetyGate{
		provider: provider,
		pool:     pool,
		logger:   logger,
	}
}

// Check decides whether an operation may proceed right now. Backup creation
// is always allowed; the decision is informational only. Every destructive
// operation is denied while trading or a backtest is active, or while the
// application reports it cannot switch.
func (g *SafetyGate) Check(ctx context.Context, op GateOperation) Decision {
	if op == OpBackupCreate {
		return Decision{Allowed: true, Reason: "backups are safe to take during normal operation"}
	}

	state, err := g.provider.State(ctx)
	if err != nil {
		// Unknown state is treated as unsafe for destructive work.
		return Decision{
			Allowed:         false,
			Reason:          fmt.Sprintf("trading state unavailable: %v", err),
			Recommendations: []string{"verify the trading application is reachable and retry"},
		}
	}

	var blocking []string
	if state.TradingActive {
		blocking = append(blocking, "live trading session")
	}
	if state.BacktestRunning {
		blocking = append(blocking, "running backtest")
	}
	blocking = append(blocking, state.BlockingOperations...)

	if state.TradingActive || state.BacktestRunning || !state.CanSwitch {
		return Decision{
			Allowed:         false,
			Reason:          "application is busy",
			Blocking:        blocking,
			Recommendations: []string{"stop trading and backtests, then retry", "or wait for blocking operations to finish"},
		}
	}

	return Decision{Allowed: true, Reason: "no blocking operations"}
}

// Pause asks dependent subsystems to release their database handles. A
// failure here aborts the workflow: nothing destructive has happened yet.
func (g *SafetyGate) Pause(ctx context.Context) bool {
	if g.pool == nil {
		return true
	}
	if err := g.pool.ReleaseAll(ctx); err != nil {
		g.logger.Errorf("Failed to pause connection pool: %v", err)
		return false
	}
	g.logger.Infof("Connection pool paused")
	return true
}

// Resume asks dependent subsystems to reacquire their handles. Failure is
// logged but never rolls back already-committed work.
func (g *SafetyGate) Resume(ctx context.Context) bool {
	if g.pool == nil {
		return true
	}
	if err := g.pool.Reacquire(ctx); err != nil {
		g.logger.Errorf("Failed to resume connection pool: %v", err)
		return false
	}
	g.logger.Infof("Connection pool resumed")
	return true
}
