package discovery

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// FullScanName identifies the FullScan strategy.
const FullScanName = "full_scan"

// FullScan lists every key in one container.
//
// The complete key space of the container is loaded into memory, so this is
// only suitable for small containers.
type FullScan struct {
	container string
}

// NewFullScan returns a FullScan over container.
func NewFullScan(container string) *FullScan {
	return &FullScan{container: container}
}

// Name implements Strategy.
func (f *FullScan) Name() string { return FullScanName }

// Container returns the configured container, or "" when unconfigured.
func (f *FullScan) Container() string { return f.container }

// InitString is the container name.
func (f *FullScan) InitString() (string, error) {
	return f.container, nil
}

// Init sets the container name.
func (f *FullScan) Init(s string) error {
	if s == "" {
		return invalidInit(FullScanName, errors.New(errors.ErrorTypeFormat, "empty container name"))
	}
	f.container = s
	return nil
}

// Discover implements Strategy.
func (f *FullScan) Discover(ctx context.Context, conn store.Connection) ([]models.RecordID, error) {
	if f.container == "" {
		return nil, notConfigured(FullScanName)
	}
	if conn == nil {
		return nil, noConnection(FullScanName)
	}

	keys, err := conn.ListKeys(ctx, f.container)
	if err != nil {
		return nil, err
	}

	ids := make([]models.RecordID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, models.NewRecordID(f.container, k))
	}
	ids = normalize(ids)

	logger.WithContext(ctx).Debug("listed container keys",
		zap.String("component", "discovery"),
		zap.String("container", f.container),
		zap.Int("keys", len(ids)))
	return ids, nil
}
