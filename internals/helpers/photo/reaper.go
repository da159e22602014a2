package photo

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reaper deletes stored photos that no student row references. Files younger than
// Grace are skipped so an upload whose row has not committed yet survives.
type Reaper struct {
	Service    *Service
	Referenced func(ctx context.Context) (map[string]struct{}, error)
	Grace      time.Duration
	DryRun     bool
}

func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	refs, err := r.Referenced(ctx)
	if err != nil {
		return 0, err
	}
	objs, err := r.Service.Store.List(ctx)
	if err != nil {
		return 0, err
	}

	threshold := time.Now().Add(-r.Grace)
	deleted := 0
	for _, o := range objs {
		if IsThumbKey(o.Key) || o.ModTime.After(threshold) {
			continue
		}
		if _, ok := refs[o.Key]; ok {
			continue
		}
		if r.DryRun {
			log.Printf("[PHOTO-REAPER] DRY-RUN would delete %s", o.Key)
			continue
		}
		if err := r.Service.Delete(ctx, o.Key); err != nil {
			log.Printf("[PHOTO-REAPER] delete %s failed: %v", o.Key, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// StartCron schedules RunOnce; overlapping runs are skipped.
func (r *Reaper) StartCron(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		n, err := r.RunOnce(ctx)
		if err != nil {
			log.Printf("[PHOTO-REAPER] error: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[PHOTO-REAPER] deleted %d orphaned photos", n)
		}
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[PHOTO-REAPER] started schedule=%q grace=%s dryRun=%v", schedule, r.Grace, r.DryRun)
	c.Start()
	return c, nil
}
