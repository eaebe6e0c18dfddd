package cache

import (
    "sync"

    "go.uber.org/zap"
    "golang.org/x/time/rate"

    "github.com/d60-Lab/studycircle/pkg/logger"
)

// Refresher 后台刷新去重器：同一集合最多一只在途刷新，并做整体限速
type Refresher struct {
    mu       sync.Mutex
    inflight map[Key]struct{}
    limiter  *rate.Limiter
}

func NewRefresher(perSecond float64) *Refresher {
    if perSecond <= 0 {
        perSecond = 8
    }
    return &Refresher{
        inflight: make(map[Key]struct{}),
        limiter:  rate.NewLimiter(rate.Limit(perSecond), int(perSecond)),
    }
}

// Trigger 为 key 调度一次后台刷新；已在途或被限速则放弃并返回 false
func (r *Refresher) Trigger(key Key, fn func()) bool {
    r.mu.Lock()
    if _, busy := r.inflight[key]; busy {
        r.mu.Unlock()
        return false
    }
    if !r.limiter.Allow() {
        r.mu.Unlock()
        logger.Debug("cache: refresh rate limited", zap.String("kind", string(key.Kind)), zap.String("id", key.ID))
        return false
    }
    r.inflight[key] = struct{}{}
    r.mu.Unlock()

    go func() {
        defer func() {
            r.mu.Lock()
            delete(r.inflight, key)
            r.mu.Unlock()
        }()
        fn()
    }()
    return true
}

// Inflight 当前在途刷新数（采样值）
func (r *Refresher) Inflight() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.inflight)
}
