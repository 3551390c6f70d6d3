package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
	"medcontent-subscription/internal/infra/metrics"
	red "medcontent-subscription/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

const (
	planCacheTTL   = time.Hour
	activePlansKey = "plans:active"
)

func planKey(id int64) string { return fmt.Sprintf("plan:%d", id) }

// planRepoCacheDecorator serves non-transactional plan reads from Redis.
// Reads inside a transaction always hit the database.
type planRepoCacheDecorator struct {
	inner  repository.PlanRepository
	cache  red.RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
	// misses collapses concurrent database loads for the same key.
	misses singleflight.Group
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, logger *zerolog.Logger) repository.PlanRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &planRepoCacheDecorator{
		inner:  inner,
		cache:  cache,
		ttl:    planCacheTTL,
		logger: logger,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := planKey(id)
	var plan model.Plan
	if d.load(ctx, "plan", key, &plan) {
		return &plan, nil
	}

	v, err, _ := d.misses.Do(key, func() (interface{}, error) {
		p, err := d.inner.FindByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		d.store(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*model.Plan)
	return &cp, nil
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	if tx != nil {
		return d.inner.ListActive(ctx, tx)
	}
	var plans []*model.Plan
	if d.load(ctx, "plan_list", activePlansKey, &plans) {
		return plans, nil
	}

	plans, err := d.inner.ListActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		d.store(ctx, activePlansKey, plans)
	}
	return plans, nil
}

// For write operations, we must invalidate the cache.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	d.invalidate(ctx, plan.ID)
	return nil
}

func (d *planRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	if err := d.inner.Delete(ctx, tx, id); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

func (d *planRepoCacheDecorator) SaveMembership(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	return d.inner.SaveMembership(ctx, tx, m)
}

func (d *planRepoCacheDecorator) load(ctx context.Context, cache, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.ObserveCacheLookup(cache, true)
		return true
	}
	if err != nil && err != red.Nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}
	metrics.ObserveCacheLookup(cache, false)
	return false
}

func (d *planRepoCacheDecorator) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
	}
}

func (d *planRepoCacheDecorator) invalidate(ctx context.Context, id int64) {
	if err := d.cache.Del(ctx, planKey(id), activePlansKey); err != nil {
		d.logger.Warn().Err(err).Int64("plan_id", id).Msg("plan cache invalidation failed")
	}
}
