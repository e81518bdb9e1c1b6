package jobs

import "time"

// DefaultSyncPeriod is the interval of the periodic trip sync
const DefaultSyncPeriod = 15 * time.Minute

// SyncQueue binds the sync workers to their unique names on a Scheduler
type SyncQueue struct {
	scheduler *Scheduler
	tripSync  Worker
	catalog   Worker
	period    time.Duration
}

func NewSyncQueue(s *Scheduler, tripSync, catalogSync Worker, period time.Duration) *SyncQueue {
	if period <= 0 {
		period = DefaultSyncPeriod
	}
	return &SyncQueue{scheduler: s, tripSync: tripSync, catalog: catalogSync, period: period}
}

// FireOnce schedules a one-time upload pass
func (q *SyncQueue) FireOnce() {
	q.scheduler.EnqueueUniqueWork(TripSyncOneTimeName, TripSyncTag, q.tripSync)
}

// EnsurePeriodic makes sure the periodic upload pass exists
func (q *SyncQueue) EnsurePeriodic() {
	q.scheduler.EnqueueUniquePeriodicWork(TripSyncPeriodicName, TripSyncTag, q.period, q.tripSync)
}

// FireCatalogOnce schedules a one-time catalog refresh
func (q *SyncQueue) FireCatalogOnce() {
	if q.catalog == nil {
		return
	}
	q.scheduler.EnqueueUniqueWork(CatalogSyncOneTimeName, CatalogSyncTag, q.catalog)
}

// CancelAll stops all trip sync work
func (q *SyncQueue) CancelAll() int {
	return q.scheduler.CancelAllWorkByTag(TripSyncTag)
}
