package service

import (
    "context"
    "fmt"
    "sync"
    "sync/atomic"

    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
)

// Searcher 按序号丢弃过期响应的即输即搜：
// 只有携带最新序号的响应才会落到可见结果，慢到的旧响应直接丢弃。
type Searcher struct {
    store gateway.Store
    seq   atomic.Int64

    mu      sync.Mutex
    results []model.Profile
}

func NewSearcher(store gateway.Store) *Searcher {
    return &Searcher{store: store}
}

// Search 发起一次查询；返回本次响应是否被采纳
func (s *Searcher) Search(ctx context.Context, query string) (bool, error) {
    mySeq := s.seq.Add(1)
    profiles, err := s.store.SearchProfiles(ctx, query, 20)
    if err != nil {
        return false, fmt.Errorf("search profiles: %w", err)
    }
    if s.seq.Load() != mySeq {
        return false, nil
    }
    s.mu.Lock()
    // 回包间隙可能又发了新查询，采纳前复核序号
    if s.seq.Load() != mySeq {
        s.mu.Unlock()
        return false, nil
    }
    s.results = profiles
    s.mu.Unlock()
    return true, nil
}

// Results 当前可见结果
func (s *Searcher) Results() []model.Profile {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Profile, len(s.results))
    copy(out, s.results)
    return out
}

// Reset 清空结果并作废在途响应
func (s *Searcher) Reset() {
    s.seq.Add(1)
    s.mu.Lock()
    s.results = nil
    s.mu.Unlock()
}
