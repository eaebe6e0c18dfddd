package cache

import (
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestStorePutGetInvalidate(t *testing.T) {
    s := NewStore()
    key := CommentsKey("p1")

    _, ok := s.Get(key)
    require.False(t, ok)

    s.Put(key, []string{"a"})
    e, ok := s.Get(key)
    require.True(t, ok)
    assert.Equal(t, []string{"a"}, e.Data)

    s.Invalidate(key)
    _, ok = s.Get(key)
    require.False(t, ok)
}

func TestMutateMissIsSilentNoop(t *testing.T) {
    s := NewStore()
    called := false
    ok := s.Mutate(FeedKey(), func(data any) any {
        called = true
        return data
    })
    require.False(t, ok)
    require.False(t, called)
}

func TestStaleAtWindow(t *testing.T) {
    base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
    now := base
    s := NewStore().WithClock(func() time.Time { return now })

    s.Put(FeedKey(), 1)
    e, _ := s.Get(FeedKey())
    assert.False(t, e.StaleAt(base.Add(10*time.Second), 30*time.Second))
    assert.False(t, e.StaleAt(base.Add(30*time.Second), 30*time.Second))
    assert.True(t, e.StaleAt(base.Add(31*time.Second), 30*time.Second))
}

func TestGetAsTypeMismatch(t *testing.T) {
    s := NewStore()
    s.Put(FeedKey(), "not a slice")
    _, _, ok := GetAs[[]int](s, FeedKey())
    require.False(t, ok)
}

func TestMutateAsKeepsDataOnTypeMismatch(t *testing.T) {
    s := NewStore()
    s.Put(FeedKey(), "original")
    MutateAs(s, FeedKey(), func(v []int) []int { return append(v, 1) })
    e, _ := s.Get(FeedKey())
    assert.Equal(t, "original", e.Data)
}

func TestRefresherSingleFlight(t *testing.T) {
    r := NewRefresher(1000)
    key := FriendsKey("u1")

    block := make(chan struct{})
    var mu sync.Mutex
    runs := 0

    ok := r.Trigger(key, func() {
        mu.Lock()
        runs++
        mu.Unlock()
        <-block
    })
    require.True(t, ok)

    // 同集合已在途：不再调度
    require.Eventually(t, func() bool { return r.Inflight() == 1 }, time.Second, time.Millisecond)
    require.False(t, r.Trigger(key, func() { t.Error("must not run") }))

    // 不同集合互不影响
    require.True(t, r.Trigger(FriendsKey("u2"), func() {}))

    close(block)
    require.Eventually(t, func() bool { return r.Inflight() == 0 }, time.Second, time.Millisecond)

    // 在途结束后可再次调度
    require.True(t, r.Trigger(key, func() {}))
    mu.Lock()
    require.Equal(t, 1, runs)
    mu.Unlock()
}

func TestRefresherRateLimit(t *testing.T) {
    r := NewRefresher(1)
    done := make(chan struct{})
    require.True(t, r.Trigger(FeedKey(), func() { close(done) }))
    <-done
    // 突发额度已用完，立刻再触发会被限流
    require.False(t, r.Trigger(CommentsKey("p"), func() {}))
}
