package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/config"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
    "github.com/d60-Lab/studycircle/pkg/logger"
)

// FriendService 好友关系：列表（含打卡派生统计）、申请、应答、督促提醒
type FriendService struct {
    store     gateway.Store
    cache     *cache.Store
    refresher *cache.Refresher
    session   *Session
    cfg       *config.Config
    now       func() time.Time
}

func NewFriendService(store gateway.Store, c *cache.Store, r *cache.Refresher, session *Session, cfg *config.Config) *FriendService {
    return &FriendService{store: store, cache: c, refresher: r, session: session, cfg: cfg, now: time.Now}
}

func (s *FriendService) WithClock(now func() time.Time) *FriendService {
    s.now = now
    return s
}

// Friends 好友列表；打卡统计由笔记行派生，窗口 30 秒
func (s *FriendService) Friends(ctx context.Context) ([]model.FriendView, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    key := cache.FriendsKey(userID)
    friends, entry, ok := cache.GetAs[[]model.FriendView](s.cache, key)
    if !ok {
        fetched, err := s.store.ListFriends(ctx, userID)
        if err != nil {
            return nil, fmt.Errorf("list friends: %w", err)
        }
        s.cache.Put(key, fetched)
        return fetched, nil
    }
    if entry.StaleAt(s.now(), s.cfg.Cache.FriendsWindow) {
        s.ForceRefresh()
    }
    return friends, nil
}

// ForceRefresh 无视窗口整体重拉（好友/笔记/资料的实时事件走这里）
func (s *FriendService) ForceRefresh() {
    userID := s.session.UserID()
    if userID == "" {
        return
    }
    key := cache.FriendsKey(userID)
    s.refresher.Trigger(key, func() {
        fetched, err := s.store.ListFriends(context.Background(), userID)
        if err != nil {
            logger.Warn("friends refresh failed", zap.Error(err))
            return
        }
        s.cache.Put(key, fetched)
    })
}

// SendRequest 发起好友申请；重复申请以读前置检查 + 唯一约束双重拦截
func (s *FriendService) SendRequest(ctx context.Context, recipientID string) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    if userID == recipientID {
        return ErrSelfRequest
    }
    existing, err := s.store.GetFriendship(ctx, userID, recipientID)
    if err != nil && !errors.Is(err, gateway.ErrNotFound) {
        return fmt.Errorf("check friendship: %w", err)
    }
    if existing != nil {
        if existing.Status == model.FriendshipAccepted {
            return ErrAlreadyFriends
        }
        return ErrRequestPending
    }
    if _, err := s.store.CreateFriendship(ctx, userID, recipientID); err != nil {
        if errors.Is(err, gateway.ErrDuplicatePair) {
            return ErrRequestPending
        }
        return fmt.Errorf("create friendship: %w", err)
    }
    return nil
}

// Respond 应答申请；通知面板上镜像的状态先行翻转，失败还原
func (s *FriendService) Respond(ctx context.Context, friendshipID string, accept bool) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    target := model.FriendshipRejected
    if accept {
        target = model.FriendshipAccepted
    }

    notifKey := cache.NotificationsKey(userID)
    var snapshot model.NotificationView
    touched := false
    cache.MutateAs(s.cache, notifKey, func(list []model.NotificationView) []model.NotificationView {
        out := make([]model.NotificationView, len(list))
        for i, n := range list {
            if n.Type == model.NotifyFriendRequest && n.RelatedID == friendshipID {
                snapshot = n
                touched = true
                n.RequestStatus = target
            }
            out[i] = n
        }
        return out
    })

    if _, err := s.store.RespondFriendship(ctx, friendshipID, accept); err != nil {
        if touched {
            cache.MutateAs(s.cache, notifKey, func(list []model.NotificationView) []model.NotificationView {
                out := make([]model.NotificationView, len(list))
                for i, n := range list {
                    if n.Type == model.NotifyFriendRequest && n.RelatedID == friendshipID {
                        n = snapshot
                    }
                    out[i] = n
                }
                return out
            })
        }
        return fmt.Errorf("respond friendship: %w", err)
    }
    if accept {
        s.ForceRefresh()
    }
    return nil
}

// SendReminder 督促好友打卡；24 小时冷却，冷却时间先行落到本地视图
func (s *FriendService) SendReminder(ctx context.Context, friendID string) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    key := cache.FriendsKey(userID)
    now := s.now()

    var snapshot model.FriendView
    found := false
    cache.MutateAs(s.cache, key, func(list []model.FriendView) []model.FriendView {
        for _, f := range list {
            if f.Profile.ID == friendID {
                snapshot = f
                found = true
            }
        }
        return list
    })
    if !found {
        return ErrNotCached
    }
    if !snapshot.CanRemind(now, s.cfg.ReminderCooldown) {
        return ErrReminderCooldown
    }

    cache.MutateAs(s.cache, key, func(list []model.FriendView) []model.FriendView {
        out := make([]model.FriendView, len(list))
        for i, f := range list {
            if f.Profile.ID == friendID {
                f.ReminderSentAt = now
            }
            out[i] = f
        }
        return out
    })

    _, err = s.store.CreateNotification(ctx, model.Notification{
        RecipientID: friendID,
        SenderID:    userID,
        Type:        model.NotifyStudyReminder,
    })
    if err != nil {
        cache.MutateAs(s.cache, key, func(list []model.FriendView) []model.FriendView {
            out := make([]model.FriendView, len(list))
            for i, f := range list {
                if f.Profile.ID == friendID {
                    f = snapshot
                }
                out[i] = f
            }
            return out
        })
        return fmt.Errorf("send reminder: %w", err)
    }
    return nil
}
