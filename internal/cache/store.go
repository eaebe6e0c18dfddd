package cache

import (
    "sync"
    "time"
)

// 集合类缓存：整体替换、读驱动、不自动过期。
// 新鲜度只是读取方的判断依据，过窗条目照常立即返回（stale-while-revalidate）。

// Kind 集合种类
type Kind string

const (
    KindFeed          Kind = "feed"
    KindComments      Kind = "comments"
    KindFriends       Kind = "friends"
    KindNotifications Kind = "notifications"
    KindProfile       Kind = "profile"
)

// Key 集合身份：种类 + 归属（帖子/用户），全局集合 ID 为空
type Key struct {
    Kind Kind
    ID   string
}

func FeedKey() Key                     { return Key{Kind: KindFeed} }
func CommentsKey(postID string) Key    { return Key{Kind: KindComments, ID: postID} }
func FriendsKey(userID string) Key     { return Key{Kind: KindFriends, ID: userID} }
func NotificationsKey(userID string) Key { return Key{Kind: KindNotifications, ID: userID} }
func ProfileKey(userID string) Key       { return Key{Kind: KindProfile, ID: userID} }

// Entry 缓存条目与其拉取时刻
type Entry struct {
    Data      any
    FetchedAt time.Time
}

// StaleAt 是否超出新鲜度窗口
func (e Entry) StaleAt(now time.Time, window time.Duration) bool {
    return now.Sub(e.FetchedAt) > window
}

// Store 会话级共享缓存；所有变更在锁内完成，锁内不做 I/O
type Store struct {
    mu      sync.Mutex
    entries map[Key]Entry
    now     func() time.Time
}

func NewStore() *Store {
    return &Store{entries: make(map[Key]Entry), now: time.Now}
}

// WithClock 注入时钟（测试用）
func (s *Store) WithClock(now func() time.Time) *Store {
    s.now = now
    return s
}

// Get 命中返回条目；从不触发拉取
func (s *Store) Get(key Key) (Entry, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.entries[key]
    return e, ok
}

// Put 整体替换并重置拉取时刻
func (s *Store) Put(key Key, data any) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.entries[key] = Entry{Data: data, FetchedAt: s.now()}
}

// Mutate 对已缓存数据做原子读改写；未加载的集合静默跳过
func (s *Store) Mutate(key Key, fn func(data any) any) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.entries[key]
    if !ok {
        return false
    }
    e.Data = fn(e.Data)
    s.entries[key] = e
    return true
}

// Invalidate 使下次 Get 以未命中处理
func (s *Store) Invalidate(key Key) {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.entries, key)
}

// GetAs 取出指定类型的数据；类型不符按未命中处理
func GetAs[T any](s *Store, key Key) (T, Entry, bool) {
    var zero T
    e, ok := s.Get(key)
    if !ok {
        return zero, Entry{}, false
    }
    data, ok := e.Data.(T)
    if !ok {
        return zero, Entry{}, false
    }
    return data, e, true
}

// MutateAs 类型化的 Mutate
func MutateAs[T any](s *Store, key Key, fn func(T) T) bool {
    return s.Mutate(key, func(data any) any {
        typed, ok := data.(T)
        if !ok {
            return data
        }
        return fn(typed)
    })
}
