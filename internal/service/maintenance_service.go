package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type refreshTokenPurger interface {
	PurgeRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceConfig controls scheduled housekeeping.
type MaintenanceConfig struct {
	// TokenPurgeSchedule is a standard five field cron expression.
	TokenPurgeSchedule string
	// TokenRetention keeps expired or revoked tokens around for this long.
	TokenRetention time.Duration
	Timeout        time.Duration
}

// MaintenanceService runs periodic cleanup jobs.
type MaintenanceService struct {
	tokens refreshTokenPurger
	cron   *cron.Cron
	config MaintenanceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(tokens refreshTokenPurger, config MaintenanceConfig, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TokenPurgeSchedule == "" {
		config.TokenPurgeSchedule = "0 3 * * *"
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	return &MaintenanceService{
		tokens: tokens,
		cron:   cron.New(),
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *MaintenanceService) Start() error {
	if _, err := s.cron.AddFunc(s.config.TokenPurgeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
		defer cancel()
		if _, err := s.PurgeRefreshTokens(ctx); err != nil {
			s.logger.Error("refresh token purge failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", zap.String("token_purge", s.config.TokenPurgeSchedule))
	return nil
}

// Stop waits for running jobs to finish.
func (s *MaintenanceService) Stop() {
	<-s.cron.Stop().Done()
}

// PurgeRefreshTokens deletes refresh tokens that expired or were revoked
// before the retention window.
func (s *MaintenanceService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.config.TokenRetention)
	purged, err := s.tokens.PurgeRefreshTokens(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("refresh tokens purged", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	return purged, nil
}
