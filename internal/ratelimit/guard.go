package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisLockRetryInterval = 25 * time.Millisecond

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

type GenerationGuardParam struct {
	fx.In

	Log     *zap.Logger
	Locker  *Locker `optional:"true"`
	LockTTL time.Duration `name:"generation_lock_ttl" optional:"true"`
}

// GenerationGuard closes the window between the quota read and the ledger
// write by serializing attempts per owner and service. The in-process
// keyed mutex always applies; the redis lock is layered on top when
// configured so multiple replicas contend on the same key.
type GenerationGuard struct {
	log     *zap.Logger
	locker  *Locker
	lockTTL time.Duration

	mu    sync.Mutex
	locks map[string]*ownerLock
}

func NewGenerationGuard(p GenerationGuardParam) *GenerationGuard {
	ttl := p.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &GenerationGuard{
		log:     p.Log.Named("ratelimit.guard"),
		locker:  p.Locker,
		lockTTL: ttl,
		locks:   make(map[string]*ownerLock),
	}
}

// Acquire blocks until the owner+service slot is free, then returns a
// release function. The release function is safe to call exactly once.
func (g *GenerationGuard) Acquire(ctx context.Context, ownerID, serviceType string) (func(), error) {
	key := ownerID + ":" + serviceType

	g.mu.Lock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &ownerLock{}
		g.locks[key] = lock
	}
	lock.refs++
	g.mu.Unlock()

	lock.mu.Lock()

	releaseLocal := func() {
		lock.mu.Unlock()
		g.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(g.locks, key)
		}
		g.mu.Unlock()
	}

	if g.locker == nil {
		return releaseLocal, nil
	}

	redisKey := "scribe:generation:lock:" + key
	token, err := g.acquireRedis(ctx, redisKey)
	if err != nil {
		releaseLocal()
		return nil, err
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.locker.Release(releaseCtx, redisKey, token); err != nil {
			g.log.Warn("release generation lock", zap.String("key", redisKey), zap.Error(err))
		}
		releaseLocal()
	}, nil
}

func (g *GenerationGuard) acquireRedis(ctx context.Context, key string) (string, error) {
	ticker := time.NewTicker(redisLockRetryInterval)
	defer ticker.Stop()

	for {
		token, ok, err := g.locker.TryLock(ctx, key, g.lockTTL)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
