package jobs

import (
	"context"

	"go.uber.org/zap"
)

const (
	CatalogSyncTag         = "catalog_sync"
	CatalogSyncOneTimeName = "catalog_sync_one_time"
)

// CatalogRefresher refreshes the driver profile and routes
type CatalogRefresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// CatalogSyncWorker runs one catalog refresh
type CatalogSyncWorker struct {
	catalog CatalogRefresher
	log     *zap.SugaredLogger
}

func NewCatalogSyncWorker(catalog CatalogRefresher, log *zap.SugaredLogger) *CatalogSyncWorker {
	return &CatalogSyncWorker{catalog: catalog, log: log}
}

func (w *CatalogSyncWorker) DoWork(ctx context.Context) Result {
	ok, err := w.catalog.Refresh(ctx)
	if err != nil {
		w.log.Warnf("⚠️  Catalog refresh failed: %v", err)
		return ResultRetry
	}
	w.log.Infof("✅ Catalog refresh finished: %t", ok)
	return ResultSuccess
}
