package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/semmidev/dbswap/internal/domain"
	"github.com/semmidev/dbswap/internal/registry"
	"github.com/semmidev/dbswap/internal/store"
)

// ConfigPersister commits the new slot binding to the external configuration
// store.
type ConfigPersister interface {
	Persist(dbType domain.DatabaseType, path, source string) error
}

// Notifier receives best-effort operator notifications.
type Notifier interface {
	SendNotification(message string) error
}

// LockRetryConfig bounds the wait for an OS-level file lock on the target to
// clear.
type LockRetryConfig struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Deadline       time.Duration
}

func DefaultLockRetry() LockRetryConfig {
	return LockRetryConfig{
		Attempts:       10,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Deadline:       30 * time.Second,
	}
}

// DefaultMoveThreshold is the source size above which a path change moves the
// file into place instead of copying it.
const DefaultMoveThreshold = 8 * 1024 * 1024

// Coordinator orchestrates the replacement workflow:
// validate -> safety check -> optional backup -> pause -> swap ->
// finalize-or-rollback -> resume.
type Coordinator struct {
	store         *store.ProfileStore
	registry      *registry.Registry
	integrity     IntegrityService
	gate          *SafetyGate
	backups       *BackupManager
	configStore   ConfigPersister
	notifier      Notifier
	logger        Logger
	lockRetry     LockRetryConfig
	moveThreshold int64
	onProgress    domain.ProgressFunc

	mu        sync.Mutex
	activeOps map[domain.DatabaseType]struct{}
}

func NewCoordinator(
	profileStore *store.ProfileStore,
	reg *registry.Registry,
	integrity IntegrityService,
	gate *SafetyGate,
	backups *BackupManager,
	configStore ConfigPersister,
	logger Logger,
) *Coordinator {
	return &Coordinator{
		store:         profileStore,
		registry:      reg,
		integrity:     integrity,
		gate:          gate,
		backups:       backups,
		configStore:   configStore,
		logger:        logger,
		lockRetry:     DefaultLockRetry(),
		moveThreshold: DefaultMoveThreshold,
		activeOps:     make(map[domain.DatabaseType]struct{}),
	}
}

// SetNotifier attaches an optional operator notifier.
func (c *Coordinator) SetNotifier(n Notifier) { c.notifier = n }

// SetProgressFunc attaches an optional progress observer.
func (c *Coordinator) SetProgressFunc(fn domain.ProgressFunc) { c.onProgress = fn }

// SetLockRetry overrides the lock retry budget.
func (c *Coordinator) SetLockRetry(cfg LockRetryConfig) { c.lockRetry = cfg }

// SetMoveThreshold overrides the large-file move threshold in bytes.
func (c *Coordinator) SetMoveThreshold(bytes int64) { c.moveThreshold = bytes }

// Execute runs one replacement request to completion. Exactly one replacement
// may run per database type; a concurrent request for the same type fails
// fast without touching any files.
func (c *Coordinator) Execute(ctx context.Context, req domain.ReplacementRequest) domain.ReplacementResult {
	if !c.acquireSlot(req.DatabaseType) {
		err := &domain.ConcurrentOperationError{Type: req.DatabaseType}
		c.logger.Warnf("[%s] %v", req.DatabaseType, err)
		return failed(domain.PhaseValidating, err, false)
	}
	defer c.releaseSlot(req.DatabaseType)

	result := c.execute(ctx, req)
	c.notify(req, result)
	return result
}

func (c *Coordinator) execute(ctx context.Context, req domain.ReplacementRequest) domain.ReplacementResult {
	// Phase 1: validation. No side effects.
	c.progress(domain.PhaseValidating, fmt.Sprintf("validating %s request for %s", req.Kind, req.DatabaseType))

	target, sourceChecksum, err := c.validate(ctx, req)
	if err != nil {
		return failed(domain.PhaseValidating, err, false)
	}

	// Phase 2: safety check. Abort unless allowed or forced.
	c.progress(domain.PhaseSafetyCheck, "consulting safety gate")
	decision := c.gate.Check(ctx, GateOperationFor(req.Kind))
	if !decision.Allowed && !req.Force {
		return failed(domain.PhaseSafetyCheck, &domain.SafetyDeniedError{Reason: decision.Reason, Blocking: decision.Blocking}, false)
	}
	if !decision.Allowed && req.Force {
		c.logger.Warnf("[%s] Safety gate denied (%s) but operation is forced", req.DatabaseType, decision.Reason)
	}
	if err := ctx.Err(); err != nil {
		return failed(domain.PhaseSafetyCheck, err, false)
	}

	// Phase 3: optional safety backup of the current file. Failure aborts
	// before anything destructive happens.
	safetyBackupPath := ""
	if req.CreateSafetyBackup {
		c.progress(domain.PhaseBackup, "creating safety backup of current file")
		record, err := c.backups.CreateBackup(ctx, target, domain.BackupTypeAutomatic, "pre-replacement safety backup")
		if err != nil {
			return failed(domain.PhaseBackup, fmt.Errorf("safety backup failed: %w", err), false)
		}
		safetyBackupPath = record.FilePath
	}

	// Phase 4: pause dependent subsystems. Still fully reversible.
	c.progress(domain.PhasePausing, "pausing dependent subsystems")
	if err := ctx.Err(); err != nil {
		return failed(domain.PhasePausing, err, false)
	}
	if !c.gate.Pause(ctx) {
		return failed(domain.PhasePausing, fmt.Errorf("failed to pause dependent subsystems"), false)
	}
	// Resume is always attempted from here on, whatever the outcome.
	defer c.gate.Resume(ctx)

	// Phase 5: destructive swap. Cancellation is no longer honored: the
	// operation runs to success or rollback.
	c.progress(domain.PhaseSwapping, "swapping database file")

	targetPath := target.FilePath
	targetChecksumBefore := ""
	asidePath := ""

	if _, statErr := os.Stat(targetPath); statErr == nil {
		targetChecksumBefore, err = c.integrity.Checksum(targetPath)
		if err != nil {
			return failed(domain.PhaseSwapping, err, false)
		}

		dbPath, pathErr := domain.NewDatabasePath(targetPath)
		if pathErr != nil {
			return failed(domain.PhaseSwapping, pathErr, false)
		}
		asidePath = c.registry.DeriveTempPath(dbPath, req.DatabaseType)

		if err := c.moveAsideWithRetry(targetPath, asidePath); err != nil {
			// The original never moved: nothing to roll back.
			return withBackup(failed(domain.PhaseSwapping, err, false), safetyBackupPath)
		}
	}

	if err := c.installSource(req, targetPath, sourceChecksum); err != nil {
		return withBackup(c.rollback(req, targetPath, asidePath, targetChecksumBefore, classifySwapError("install", err)), safetyBackupPath)
	}

	// Phase 6: finalize. Commit the new binding, then clean up.
	c.progress(domain.PhaseFinalizing, "committing new profile state")

	if err := c.finalize(req, target, targetPath); err != nil {
		return withBackup(c.rollback(req, targetPath, asidePath, targetChecksumBefore, classifySwapError("finalize", err)), safetyBackupPath)
	}

	if asidePath != "" {
		if err := os.Remove(asidePath); err != nil {
			c.logger.Warnf("[%s] Could not remove aside file %s: %v", req.DatabaseType, asidePath, err)
		}
	}
	c.sweepTempFiles(filepath.Dir(targetPath), req.DatabaseType)

	c.progress(domain.PhaseSuccess, "replacement completed")
	c.logger.Infof("[%s] Replacement (%s) completed: %s", req.DatabaseType, req.Kind, targetPath)

	return domain.ReplacementResult{
		Success:          true,
		Phase:            domain.PhaseSuccess,
		NewPath:          targetPath,
		SafetyBackupPath: safetyBackupPath,
		SourceChecksum:   sourceChecksum,
	}
}

// validate checks the request and source file, returning the active target
// profile and the source checksum.
func (c *Coordinator) validate(ctx context.Context, req domain.ReplacementRequest) (*domain.Profile, string, error) {
	if !req.Kind.Valid() {
		return nil, "", &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown replacement kind %q", req.Kind)}
	}
	if !req.DatabaseType.Valid() {
		return nil, "", &domain.ValidationError{Field: "database_type", Reason: fmt.Sprintf("unknown type %q", req.DatabaseType)}
	}
	if err := c.registry.Validate(req.DatabaseType, req.SourcePath); err != nil {
		return nil, "", err
	}
	if req.Kind == domain.KindBackupRestore && !c.registry.InsideBackupDir(req.SourcePath) {
		return nil, "", &domain.ValidationError{
			Field:  "source_path",
			Reason: "backup restore source must live inside the backups directory",
		}
	}

	if _, err := os.Stat(req.SourcePath); err != nil {
		return nil, "", &domain.ValidationError{Field: "source_path", Reason: fmt.Sprintf("source file not accessible: %v", err)}
	}
	if err := c.integrity.VerifyStructure(req.SourcePath); err != nil {
		return nil, "", err
	}

	target, err := c.store.GetActive(req.DatabaseType)
	if err != nil {
		return nil, "", &domain.ValidationError{
			Field:  "database_type",
			Reason: fmt.Sprintf("no active profile for %s", req.DatabaseType),
		}
	}
	if filepath.Clean(req.SourcePath) == filepath.Clean(target.FilePath) {
		return nil, "", &domain.ValidationError{Field: "source_path", Reason: "source and target are the same file"}
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	checksum, err := c.integrity.Checksum(req.SourcePath)
	if err != nil {
		return nil, "", err
	}
	return target, checksum, nil
}

// moveAsideWithRetry moves the current target out of the way, waiting with
// bounded backoff for any OS-level lock on it to clear.
func (c *Coordinator) moveAsideWithRetry(targetPath, asidePath string) error {
	backoff := c.lockRetry.InitialBackoff
	deadline := time.Now().Add(c.lockRetry.Deadline)

	var lastErr error
	for attempt := 1; attempt <= c.lockRetry.Attempts; attempt++ {
		lastErr = os.Rename(targetPath, asidePath)
		if lastErr == nil {
			return nil
		}
		if os.IsNotExist(lastErr) {
			return nil
		}
		if time.Now().Add(backoff).After(deadline) {
			break
		}

		c.logger.Warnf("Target %s still locked (attempt %d/%d): %v", targetPath, attempt, c.lockRetry.Attempts, lastErr)
		time.Sleep(backoff)
		if backoff *= 2; backoff > c.lockRetry.MaxBackoff {
			backoff = c.lockRetry.MaxBackoff
		}
	}

	return &domain.LockTimeoutError{
		Path:     targetPath,
		Attempts: c.lockRetry.Attempts,
		Elapsed:  c.lockRetry.Deadline - time.Until(deadline),
	}
}

// installSource puts the new content at the target path. Large path changes
// move the source in place; everything else is copy-then-verify.
func (c *Coordinator) installSource(req domain.ReplacementRequest, targetPath, sourceChecksum string) error {
	if req.Kind == domain.KindPathChange {
		if info, err := os.Stat(req.SourcePath); err == nil && info.Size() >= c.moveThreshold {
			c.logger.Infof("[%s] Source is %.2f MB, moving instead of copying",
				req.DatabaseType, float64(info.Size())/(1024*1024))
			return moveFile(req.SourcePath, targetPath)
		}
	}

	if err := copyFile(req.SourcePath, targetPath); err != nil {
		return err
	}

	copied, err := c.integrity.Checksum(targetPath)
	if err != nil {
		return err
	}
	if copied != sourceChecksum {
		return &domain.IntegrityError{Path: targetPath, Reason: "copied file checksum does not match source"}
	}
	return c.integrity.VerifyStructure(targetPath)
}

func (c *Coordinator) finalize(req domain.ReplacementRequest, target *domain.Profile, targetPath string) error {
	if err := c.store.UpdatePath(target.ID, targetPath); err != nil {
		return fmt.Errorf("commit profile path: %w", err)
	}
	if err := c.registry.Override(req.DatabaseType, targetPath); err != nil {
		return fmt.Errorf("commit registry location: %w", err)
	}
	if c.configStore != nil {
		if err := c.configStore.Persist(req.DatabaseType, targetPath, string(req.Kind)); err != nil {
			return fmt.Errorf("persist configuration: %w", err)
		}
	}
	return nil
}

// rollback restores the aside-moved original after a mid-swap failure.
func (c *Coordinator) rollback(req domain.ReplacementRequest, targetPath, asidePath, checksumBefore string, cause error) domain.ReplacementResult {
	c.logger.Errorf("[%s] Swap failed: %v", req.DatabaseType, cause)

	if !req.RollbackOnFailure {
		return failed(domain.PhaseFailedUnrecoverable, cause, false)
	}
	if asidePath == "" {
		// No original existed: restoring that state means removing the
		// rejected copy from the target path.
		if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
			c.logger.Errorf("[%s] Could not remove rejected file %s: %v", req.DatabaseType, targetPath, err)
			return failed(domain.PhaseFailedUnrecoverable, cause, false)
		}
		return failed(domain.PhaseFailedRolledBack, cause, true)
	}

	if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
		c.logger.Errorf("[%s] Could not remove partial target %s: %v", req.DatabaseType, targetPath, err)
	}
	if err := copyFile(asidePath, targetPath); err != nil {
		c.logger.Errorf("[%s] Rollback failed, original preserved at %s: %v", req.DatabaseType, asidePath, err)
		return failed(domain.PhaseFailedUnrecoverable, cause, false)
	}

	if checksumBefore != "" {
		restored, err := c.integrity.Checksum(targetPath)
		if err != nil || restored != checksumBefore {
			c.logger.Errorf("[%s] Rolled-back file does not verify, original preserved at %s", req.DatabaseType, asidePath)
			return failed(domain.PhaseFailedUnrecoverable, cause, false)
		}
	}

	// The copy back verified: the aside temp is no longer needed.
	if err := os.Remove(asidePath); err != nil {
		c.logger.Warnf("[%s] Could not remove aside file %s: %v", req.DatabaseType, asidePath, err)
	}

	c.logger.Infof("[%s] Rolled back to original file", req.DatabaseType)
	return failed(domain.PhaseFailedRolledBack, cause, true)
}

// sweepTempFiles removes stale temp files for a slot left behind by earlier
// attempts.
func (c *Coordinator) sweepTempFiles(dir string, dbType domain.DatabaseType) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.logger.Warnf("Could not sweep temp files in %s: %v", dir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !domain.TempNameForType(entry.Name(), dbType) {
			continue
		}
		stale := filepath.Join(dir, entry.Name())
		if err := os.Remove(stale); err != nil {
			c.logger.Warnf("Could not remove stale temp file %s: %v", stale, err)
		} else {
			c.logger.Infof("Swept stale temp file %s", stale)
		}
	}
}

func (c *Coordinator) acquireSlot(dbType domain.DatabaseType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.activeOps[dbType]; busy {
		return false
	}
	c.activeOps[dbType] = struct{}{}
	return true
}

func (c *Coordinator) releaseSlot(dbType domain.DatabaseType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeOps, dbType)
}

func (c *Coordinator) progress(phase domain.Phase, message string) {
	if c.onProgress != nil {
		c.onProgress(phase, message)
	}
}

func (c *Coordinator) notify(req domain.ReplacementRequest, result domain.ReplacementResult) {
	if c.notifier == nil {
		return
	}

	var message string
	if result.Success {
		message = fmt.Sprintf("Replacement (%s) for %s completed: %s", req.Kind, req.DatabaseType, result.NewPath)
	} else {
		message = fmt.Sprintf("Replacement (%s) for %s failed: %s (rollback performed: %t)",
			req.Kind, req.DatabaseType, result.ErrorMessage, result.RollbackPerformed)
	}
	if err := c.notifier.SendNotification(message); err != nil {
		c.logger.Warnf("Could not send notification: %v", err)
	}
}

// classifySwapError leaves taxonomy errors intact and wraps anything else so
// the caller can tell a known failure mode from a surprise.
func classifySwapError(op string, err error) error {
	var ve *domain.ValidationError
	var ie *domain.IntegrityError
	var le *domain.LockTimeoutError
	if errors.As(err, &ve) || errors.As(err, &ie) || errors.As(err, &le) {
		return err
	}
	return &domain.UnexpectedError{Op: op, Err: err}
}

func failed(phase domain.Phase, err error, rolledBack bool) domain.ReplacementResult {
	return domain.ReplacementResult{
		Phase:             phase,
		ErrorMessage:      err.Error(),
		RollbackPerformed: rolledBack,
	}
}

func withBackup(result domain.ReplacementResult, safetyBackupPath string) domain.ReplacementResult {
	result.SafetyBackupPath = safetyBackupPath
	return result
}
