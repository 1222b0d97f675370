package service

import (
	"context"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/sourcegraph/conc/pool"
)

// Preloader fills the store cache ahead of the first requests.
type Preloader struct {
	base
}

// WarmAll loads the cross-owner listings of every kind in parallel.
func (p *Preloader) WarmAll(ctx context.Context) error {
	start := time.Now()
	kinds := append([]model.Kind{model.KindProfile}, model.RecordKinds...)

	wp := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(p.fanout)
	for _, kind := range kinds {
		wp.Go(func(ctx context.Context) error {
			docs, err := p.store.ListAllEntities(ctx, kind)
			if err != nil {
				Logger.Warningf("preloading %s failed: %v", kind, err)
				return err
			}
			Logger.Debugf("preloaded %d %s", len(docs), kind)
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return err
	}
	Logger.Infof("preloaded all listings in %s", time.Since(start))
	return nil
}

// WarmOwner loads the profile and every record listing of one owner.
func (p *Preloader) WarmOwner(ctx context.Context, callsign string) error {
	owner, err := ownerKey(callsign)
	if err != nil {
		return err
	}

	wp := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(p.fanout)
	wp.Go(func(ctx context.Context) error {
		_, _, err := p.store.ReadEntity(ctx, owner, model.KindProfile, "")
		return err
	})
	for _, kind := range model.RecordKinds {
		wp.Go(func(ctx context.Context) error {
			_, err := p.store.ListEntitiesForOwner(ctx, owner, kind)
			return err
		})
	}
	if err := wp.Wait(); err != nil {
		Logger.Warningf("preloading %s failed: %v", owner, err)
		return err
	}
	return nil
}
