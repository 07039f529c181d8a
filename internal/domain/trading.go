package domain

import "context"

// TradingState is the live application state consulted before destructive
// operations.
type TradingState struct {
	TradingActive      bool
	BacktestRunning    bool
	CanSwitch          bool
	BlockingOperations []string
}

// TradingStateProvider reports what the trading application is doing right
// now. Polled synchronously before every destructive operation.
type TradingStateProvider interface {
	State(ctx context.Context) (TradingState, error)
}

// ConnectionPool is the collaborator holding open handles on the database
// files. It is asked to let go of them around a swap.
type ConnectionPool interface {
	ReleaseAll(ctx context.Context) error
	Reacquire(ctx context.Context) error
}
