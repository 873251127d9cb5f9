package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type purgerStub struct {
	cutoff time.Time
	purged int64
	err    error
}

func (p *purgerStub) PurgeRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.purged, p.err
}

func TestMaintenanceServicePurgeUsesRetention(t *testing.T) {
	stub := &purgerStub{purged: 7}
	svc := NewMaintenanceService(stub, MaintenanceConfig{TokenRetention: 48 * time.Hour}, zap.NewNop())
	now := time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	purged, err := svc.PurgeRefreshTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), purged)
	assert.Equal(t, now.Add(-48*time.Hour), stub.cutoff)
}

func TestMaintenanceServicePurgeError(t *testing.T) {
	stub := &purgerStub{err: errors.New("db down")}
	svc := NewMaintenanceService(stub, MaintenanceConfig{}, zap.NewNop())

	_, err := svc.PurgeRefreshTokens(context.Background())
	require.Error(t, err)
}

func TestMaintenanceServiceStartRejectsBadSchedule(t *testing.T) {
	svc := NewMaintenanceService(&purgerStub{}, MaintenanceConfig{TokenPurgeSchedule: "every tuesday"}, zap.NewNop())
	require.Error(t, svc.Start())

	ok := NewMaintenanceService(&purgerStub{}, MaintenanceConfig{TokenPurgeSchedule: "*/5 * * * *"}, zap.NewNop())
	require.NoError(t, ok.Start())
	ok.Stop()
}
