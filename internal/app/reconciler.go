package app

import (
	"context"
	"log"
	"time"

	"github.com/lumalyte/guildshop-service/internal/store"
	"github.com/robfig/cron/v3"
)

// BlockedSetReconciler periodically rebuilds every zone's blocked set from
// the relation authority. The blocked set is a cache of relation state; this
// job repairs any drift left behind by missed events or failed seeding.
type BlockedSetReconciler struct {
	repo store.Repository
	sync *RelationSync
	cron *cron.Cron
}

// NewBlockedSetReconciler creates a reconciler driven by the given cron spec.
func NewBlockedSetReconciler(repo store.Repository, sync *RelationSync) *BlockedSetReconciler {
	return &BlockedSetReconciler{
		repo: repo,
		sync: sync,
		cron: cron.New(),
	}
}

// Start schedules the reconciliation job. An empty spec disables the job.
func (r *BlockedSetReconciler) Start(spec string) error {
	if spec == "" {
		log.Println("level=info component=reconciler msg=\"blocked-set reconciliation disabled\"")
		return nil
	}
	if _, err := r.cron.AddFunc(spec, r.runOnce); err != nil {
		return err
	}
	r.cron.Start()
	log.Printf("level=info component=reconciler msg=\"blocked-set reconciliation scheduled\" spec=%q", spec)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *BlockedSetReconciler) Stop() {
	<-r.cron.Stop().Done()
}

func (r *BlockedSetReconciler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := r.Reconcile(ctx); err != nil {
		log.Printf("level=warn component=reconciler msg=\"reconciliation pass failed\" err=%v", err)
	}
}

// Reconcile rebuilds the blocked set of every registered zone. Per-zone
// failures are logged and skipped so one bad zone cannot stall the pass.
func (r *BlockedSetReconciler) Reconcile(ctx context.Context) error {
	zones, err := r.repo.AllZones(ctx)
	if err != nil {
		return err
	}

	repaired := 0
	for i := range zones {
		if err := r.sync.RecomputeZone(ctx, &zones[i]); err != nil {
			log.Printf("level=warn component=reconciler msg=\"zone recompute failed\" zone_id=%s namespace=%s err=%v", zones[i].ZoneID, zones[i].Namespace, err)
			continue
		}
		repaired++
	}
	log.Printf("level=info component=reconciler msg=\"reconciliation pass complete\" zones=%d recomputed=%d", len(zones), repaired)
	return nil
}
