package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/semmidev/dbswap/internal/domain"
)

// StateFile reads the state document the trading application publishes while
// it runs. A missing file means the application is not running, which is the
// safe idle state for operator tooling. A file older than maxAge is treated
// as unreliable and reported as an error so the safety gate denies.
type StateFile struct {
	path   string
	maxAge time.Duration
}

type stateDocument struct {
	TradingActive      bool     `json:"trading_active"`
	BacktestRunning    bool     `json:"backtest_running"`
	CanSwitch          bool     `json:"can_switch"`
	BlockingOperations []string `json:"blocking_operations"`
}

func NewStateFile(path string, maxAge time.Duration) *StateFile {
	return &StateFile{path: path, maxAge: maxAge}
}

func (s *StateFile) State(ctx context.Context) (domain.TradingState, error) {
	if err := ctx.Err(); err != nil {
		return domain.TradingState{}, err
	}

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return domain.TradingState{CanSwitch: true}, nil
	}
	if err != nil {
		return domain.TradingState{}, fmt.Errorf("failed to stat state file: %w", err)
	}
	if s.maxAge > 0 && time.Since(info.ModTime()) > s.maxAge {
		return domain.TradingState{}, fmt.Errorf("state file %s is stale (last update %s ago)",
			s.path, time.Since(info.ModTime()).Round(time.Second))
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.TradingState{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.TradingState{}, fmt.Errorf("failed to parse state file: %w", err)
	}

	return domain.TradingState{
		TradingActive:      doc.TradingActive,
		BacktestRunning:    doc.BacktestRunning,
		CanSwitch:          doc.CanSwitch,
		BlockingOperations: doc.BlockingOperations,
	}, nil
}
