package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/semmidev/dbswap/internal/adapter/compressor"
	"github.com/semmidev/dbswap/internal/adapter/integrity"
	"github.com/semmidev/dbswap/internal/adapter/offsite"
	"github.com/semmidev/dbswap/internal/adapter/trading"
	"github.com/semmidev/dbswap/internal/config"
	"github.com/semmidev/dbswap/internal/configstore"
	"github.com/semmidev/dbswap/internal/domain"
	"github.com/semmidev/dbswap/internal/infrastructure/logger"
	"github.com/semmidev/dbswap/internal/infrastructure/scheduler"
	"github.com/semmidev/dbswap/internal/registry"
	"github.com/semmidev/dbswap/internal/store"
	"github.com/semmidev/dbswap/internal/usecase"
)

// DatabaseConfigFile holds the persisted slot bindings inside the data
// directory.
const DatabaseConfigFile = "databases.yaml"

type App struct {
	config      *config.Config
	logger      *logger.Logger
	scheduler   *scheduler.Scheduler
	registry    *registry.Registry
	store       *store.ProfileStore
	backups     *usecase.BackupManager
	coordinator *usecase.Coordinator
	cleanupUC   *usecase.Cleanup
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)
	log.Infof("Found %d slot(s) configured", len(cfg.GetEnabledSlots()))

	reg, err := registry.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path registry: %w", err)
	}
	if err := os.MkdirAll(reg.BackupDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	profileStore := store.NewProfileStore()
	configStore := configstore.New(filepath.Join(cfg.DataDir, DatabaseConfigFile))

	if err := bootstrapProfiles(cfg, reg, profileStore, configStore, log); err != nil {
		return nil, err
	}

	integritySvc := integrity.New()
	comp := compressor.NewGzip()

	uploadTargets, notifier := initializeOffsiteTargets(cfg, log)

	backups := usecase.NewBackupManager(
		profileStore,
		reg,
		integritySvc,
		comp,
		uploadTargets,
		log.Named("backup"),
		cfg.Backup.CompressOffsite,
	)

	provider := trading.NewStateFile(cfg.Safety.StateFile, cfg.Safety.StateMaxAge)
	gate := usecase.NewSafetyGate(provider, nil, log.Named("safety"))

	coordinator := usecase.NewCoordinator(
		profileStore,
		reg,
		integritySvc,
		gate,
		backups,
		configStore,
		log.Named("coordinator"),
	)
	coordinator.SetLockRetry(usecase.LockRetryConfig{
		Attempts:       cfg.Safety.LockRetryAttempts,
		InitialBackoff: cfg.Safety.LockRetryInitialBackoff,
		MaxBackoff:     cfg.Safety.LockRetryMaxBackoff,
		Deadline:       cfg.Safety.LockRetryDeadline,
	})
	coordinator.SetMoveThreshold(cfg.Safety.MoveThresholdMB * 1024 * 1024)
	if notifier != nil {
		coordinator.SetNotifier(notifier)
	}

	cleanupUC := usecase.NewCleanup(
		backups,
		uploadTargets,
		log.Named("cleanup"),
		cfg.Backup.RetentionDays,
	)

	return &App{
		config:      cfg,
		logger:      log,
		scheduler:   scheduler.New(log.Named("scheduler")),
		registry:    reg,
		store:       profileStore,
		backups:     backups,
		coordinator: coordinator,
		cleanupUC:   cleanupUC,
	}, nil
}

// bootstrapProfiles rebuilds the in-memory profile set from the persisted
// slot bindings, falling back to the static slot config and finally to the
// registry's canonical locations.
func bootstrapProfiles(
	cfg *config.Config,
	reg *registry.Registry,
	profileStore *store.ProfileStore,
	configStore *configstore.Store,
	log *logger.Logger,
) error {
	records, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load persisted slot bindings: %w", err)
	}

	for _, slot := range cfg.GetEnabledSlots() {
		dbType := domain.DatabaseType(slot.Type)
		if !dbType.Valid() {
			return fmt.Errorf("unknown database type in slot config: %s", slot.Type)
		}

		path := slot.Path
		if record, ok := records[dbType]; ok && record.Path != "" {
			path = record.Path
		}
		if path == "" {
			canonical, err := reg.Resolve(dbType)
			if err != nil {
				return err
			}
			path = canonical.String()
		} else if err := reg.Override(dbType, path); err != nil {
			return fmt.Errorf("slot %s: %w", dbType, err)
		}

		profile, err := domain.NewProfile(string(dbType), dbType, path)
		if err != nil {
			return fmt.Errorf("slot %s: %w", dbType, err)
		}
		if err := profileStore.AddProfile(profile); err != nil {
			return fmt.Errorf("slot %s: %w", dbType, err)
		}

		if _, err := os.Stat(path); err == nil {
			if err := profileStore.Activate(profile.ID); err != nil {
				return fmt.Errorf("slot %s: %w", dbType, err)
			}
			log.Infof("✓ Slot %s bound to %s", dbType, path)
		} else {
			log.Warnf("Slot %s has no database file yet at %s", dbType, path)
		}
	}

	return nil
}

func initializeOffsiteTargets(cfg *config.Config, log *logger.Logger) ([]usecase.UploadTarget, usecase.Notifier) {
	var targets []usecase.UploadTarget
	var notifier usecase.Notifier

	for _, targetCfg := range cfg.GetEnabledOffsiteTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = offsite.NewGDrive(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive replication enabled")

		case "s3":
			stor, err = offsite.NewS3(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 replication enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			tg, err := offsite.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			stor = tg
			notifier = tg
			log.Infof("✓ Telegram notifications enabled")

		default:
			log.Warnf("Unknown offsite target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets, notifier
}

// Coordinator exposes the replacement workflow for embedding callers.
func (a *App) Coordinator() *usecase.Coordinator {
	return a.coordinator
}

// Backups exposes the backup manager for embedding callers.
func (a *App) Backups() *usecase.BackupManager {
	return a.backups
}

// Store exposes the profile store for embedding callers.
func (a *App) Store() *store.ProfileStore {
	return a.store
}

func (a *App) Run(ctx context.Context) error {
	scheduled := 0
	for _, slot := range a.config.GetEnabledSlots() {
		if slot.Schedule == "" {
			continue
		}

		dbType := domain.DatabaseType(slot.Type)
		jobName := fmt.Sprintf("backup:%s", dbType)

		if err := a.scheduler.AddJob(jobName, slot.Schedule, func(ctx context.Context) error {
			profile, err := a.store.GetActive(dbType)
			if err != nil {
				return fmt.Errorf("no active profile for %s: %w", dbType, err)
			}
			_, err = a.backups.CreateBackup(ctx, profile, domain.BackupTypeScheduled, "scheduled snapshot")
			return err
		}); err != nil {
			return fmt.Errorf("failed to schedule backup for %s: %w", dbType, err)
		}

		a.logger.Infof("✓ Scheduled backup for %s: %s", dbType, slot.Schedule)
		scheduled++
	}

	// Retention cleanup runs daily at 3 AM.
	cleanupSchedule := "0 0 3 * * *"
	if err := a.scheduler.AddJob("cleanup", cleanupSchedule, a.cleanupUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started with %d backup job(s)", scheduled)

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	a.logger.Close()
}
