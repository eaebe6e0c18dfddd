package gateway

import (
    "context"
    "encoding/json"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/d60-Lab/studycircle/pkg/logger"
)

const feedChannelPrefix = "feed:"

// RedisFeed 用 redis pub/sub 承载行级变更推送；既是订阅端也是本地网关的投递端
type RedisFeed struct {
    rdb *redis.Client
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
    return &RedisFeed{rdb: rdb}
}

func (f *RedisFeed) Publish(ctx context.Context, e Event) error {
    payload, err := json.Marshal(e)
    if err != nil {
        return err
    }
    return f.rdb.Publish(ctx, feedChannelPrefix+e.Table, payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
    ps := f.rdb.Subscribe(ctx, feedChannelPrefix+table)
    // 确认订阅已建立，避免漏掉紧随其后的事件
    if _, err := ps.Receive(ctx); err != nil {
        _ = ps.Close()
        return nil, err
    }
    sub := &redisSubscription{ps: ps, ch: make(chan Event, 256)}
    go sub.pump(table)
    return sub, nil
}

type redisSubscription struct {
    ps *redis.PubSub
    ch chan Event
}

func (s *redisSubscription) pump(table string) {
    defer close(s.ch)
    for msg := range s.ps.Channel() {
        var e Event
        if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
            logger.Warn("feed: bad event payload", zap.String("table", table), zap.Error(err))
            continue
        }
        select {
        case s.ch <- e:
        default:
            logger.Warn("feed: subscriber lagging, drop event", zap.String("table", table))
        }
    }
}

func (s *redisSubscription) Events() <-chan Event { return s.ch }

func (s *redisSubscription) Close() error { return s.ps.Close() }
