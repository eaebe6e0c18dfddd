package realtime

import (
    "context"
    "fmt"
    "sync"

    "go.uber.org/zap"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
    "github.com/d60-Lab/studycircle/internal/service"
    "github.com/d60-Lab/studycircle/pkg/logger"
)

// Merger 把行级推送折叠进本地缓存。所有合并以实体 ID 为键做到幂等：
// 重复 insert 不产生副本，delete 落在已缺失的 ID 上安静跳过，
// 本人发起的互动事件一律忽略（乐观路径已先行生效）。
type Merger struct {
    feed      gateway.Feed
    store     gateway.Store
    cache     *cache.Store
    refresher *cache.Refresher
    session   *service.Session
    friends   *service.FriendService
    notifs    *service.NotificationService

    mu   sync.Mutex
    subs []gateway.Subscription
    wg   sync.WaitGroup
}

func NewMerger(feed gateway.Feed, store gateway.Store, c *cache.Store, r *cache.Refresher,
    session *service.Session, friends *service.FriendService, notifs *service.NotificationService) *Merger {
    return &Merger{
        feed:      feed,
        store:     store,
        cache:     c,
        refresher: r,
        session:   session,
        friends:   friends,
        notifs:    notifs,
    }
}

// Start 订阅全部关心的表并开始折叠；Close 前持续生效
func (m *Merger) Start(ctx context.Context) error {
    for _, table := range gateway.Tables {
        sub, err := m.feed.Subscribe(ctx, table)
        if err != nil {
            m.Close()
            return fmt.Errorf("subscribe %s: %w", table, err)
        }
        m.mu.Lock()
        m.subs = append(m.subs, sub)
        m.mu.Unlock()

        m.wg.Add(1)
        go func(table string, sub gateway.Subscription) {
            defer m.wg.Done()
            for e := range sub.Events() {
                m.apply(e)
            }
        }(table, sub)
    }
    return nil
}

// Close 释放全部订阅并等待折叠协程退出
func (m *Merger) Close() error {
    m.mu.Lock()
    subs := m.subs
    m.subs = nil
    m.mu.Unlock()
    for _, sub := range subs {
        _ = sub.Close()
    }
    m.wg.Wait()
    return nil
}

func (m *Merger) apply(e gateway.Event) {
    switch e.Table {
    case gateway.TablePosts:
        m.applyPost(e)
    case gateway.TableReactions:
        m.applyReaction(e)
    case gateway.TableComments:
        m.applyComment(e)
    case gateway.TableFriendships:
        m.applyFriendship(e)
    case gateway.TableNotes:
        m.applyNote(e)
    case gateway.TableNotifications:
        m.applyNotification(e)
    case gateway.TableProfiles:
        m.applyProfile(e)
    }
}

// applyPost insert/update 不直接用事件行（缺作者快照与计数），按 ID 回查后落位
func (m *Merger) applyPost(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Post](e.Row())
    if err != nil {
        logger.Warn("merge: bad post row", zap.Error(err))
        return
    }
    switch e.Kind {
    case gateway.EventDelete:
        cache.MutateAs(m.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
            out := posts[:0:0]
            for _, p := range posts {
                if p.ID != row.ID {
                    out = append(out, p)
                }
            }
            return out
        })
        m.cache.Invalidate(cache.CommentsKey(row.ID))

    case gateway.EventInsert:
        if m.feedHas(row.ID) {
            return
        }
        view, err := m.store.GetPost(context.Background(), m.session.UserID(), row.ID)
        if err != nil {
            return
        }
        cache.MutateAs(m.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
            for _, p := range posts {
                if p.ID == row.ID {
                    return posts
                }
            }
            return append([]model.PostView{*view}, posts...)
        })

    case gateway.EventUpdate:
        if !m.feedHas(row.ID) {
            return
        }
        view, err := m.store.GetPost(context.Background(), m.session.UserID(), row.ID)
        if err != nil {
            return
        }
        cache.MutateAs(m.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
            out := make([]model.PostView, len(posts))
            for i, p := range posts {
                if p.ID == row.ID {
                    p = *view
                }
                out[i] = p
            }
            return out
        })
    }
}

// applyReaction 高频低价事件只做 ±1 增量，绝不回查整帖
func (m *Merger) applyReaction(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Reaction](e.Row())
    if err != nil {
        logger.Warn("merge: bad reaction row", zap.Error(err))
        return
    }
    me := m.session.UserID()
    if row.UserID == me {
        return
    }
    if row.Kind != model.ReactionLike {
        return
    }
    up := e.Kind == gateway.EventInsert
    if e.Kind == gateway.EventUpdate {
        return
    }
    var owner string
    cache.MutateAs(m.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        out := make([]model.PostView, len(posts))
        for i, p := range posts {
            if p.ID == row.PostID {
                owner = p.OwnerID
                p.LikeCount = shift(p.LikeCount, up)
            }
            out[i] = p
        }
        return out
    })
    // 别人赞了我的帖子：本人统计同步增减
    if owner == me {
        cache.MutateAs(m.cache, cache.ProfileKey(me), func(pv model.ProfileView) model.ProfileView {
            pv.Stats.LikesReceived = shift(pv.Stats.LikesReceived, up)
            return pv
        })
    }
}

// applyComment 只动帖面计数；评论列表本身等面板下次打开再取
func (m *Merger) applyComment(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Comment](e.Row())
    if err != nil {
        logger.Warn("merge: bad comment row", zap.Error(err))
        return
    }
    if row.AuthorID == m.session.UserID() {
        return
    }
    if e.Kind == gateway.EventUpdate {
        return
    }
    up := e.Kind == gateway.EventInsert
    cache.MutateAs(m.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        out := make([]model.PostView, len(posts))
        for i, p := range posts {
            if p.ID == row.PostID {
                p.CommentCount = shift(p.CommentCount, up)
            }
            out[i] = p
        }
        return out
    })
    m.cache.Invalidate(cache.CommentsKey(row.PostID))
}

// applyFriendship 打卡统计没法从关系行增量补，整单重拉
func (m *Merger) applyFriendship(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Friendship](e.Row())
    if err != nil {
        logger.Warn("merge: bad friendship row", zap.Error(err))
        return
    }
    if !row.Involves(m.session.UserID()) {
        return
    }
    m.friends.ForceRefresh()
    m.notifs.ForceRefresh()
}

// applyNote 好友的笔记变化会改其可见统计，触发好友列表重拉
func (m *Merger) applyNote(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Note](e.Row())
    if err != nil {
        logger.Warn("merge: bad note row", zap.Error(err))
        return
    }
    if row.OwnerID == m.session.UserID() {
        return
    }
    if m.friendsHas(row.OwnerID) {
        m.friends.ForceRefresh()
    }
}

func (m *Merger) applyNotification(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Notification](e.Row())
    if err != nil {
        logger.Warn("merge: bad notification row", zap.Error(err))
        return
    }
    if row.RecipientID != m.session.UserID() {
        return
    }
    m.notifs.ForceRefresh()
}

// applyProfile 不做字段级修补：好友缓存整单重拉，其余反范式快照任其陈旧
func (m *Merger) applyProfile(e gateway.Event) {
    row, err := gateway.DecodeRow[model.Profile](e.Row())
    if err != nil {
        logger.Warn("merge: bad profile row", zap.Error(err))
        return
    }
    if m.friendsHas(row.ID) {
        m.friends.ForceRefresh()
    }
}

func (m *Merger) feedHas(postID string) bool {
    posts, _, ok := cache.GetAs[[]model.PostView](m.cache, cache.FeedKey())
    if !ok {
        return false
    }
    for _, p := range posts {
        if p.ID == postID {
            return true
        }
    }
    return false
}

func (m *Merger) friendsHas(userID string) bool {
    friends, _, ok := cache.GetAs[[]model.FriendView](m.cache, cache.FriendsKey(m.session.UserID()))
    if !ok {
        return false
    }
    for _, f := range friends {
        if f.Profile.ID == userID {
            return true
        }
    }
    return false
}

func shift(n int, up bool) int {
    if up {
        return n + 1
    }
    if n > 0 {
        return n - 1
    }
    return 0
}
