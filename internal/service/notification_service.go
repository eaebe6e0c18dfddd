package service

import (
    "context"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/config"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
    "github.com/d60-Lab/studycircle/pkg/logger"
)

// NotificationService 通知面板：列表、已读、全部已读、删除
type NotificationService struct {
    store     gateway.Store
    cache     *cache.Store
    refresher *cache.Refresher
    session   *Session
    cfg       *config.Config
    now       func() time.Time
}

func NewNotificationService(store gateway.Store, c *cache.Store, r *cache.Refresher, session *Session, cfg *config.Config) *NotificationService {
    return &NotificationService{store: store, cache: c, refresher: r, session: session, cfg: cfg, now: time.Now}
}

func (s *NotificationService) WithClock(now func() time.Time) *NotificationService {
    s.now = now
    return s
}

// List 通知列表，时间倒序
func (s *NotificationService) List(ctx context.Context) ([]model.NotificationView, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    key := cache.NotificationsKey(userID)
    list, entry, ok := cache.GetAs[[]model.NotificationView](s.cache, key)
    if !ok {
        fetched, err := s.store.ListNotifications(ctx, userID)
        if err != nil {
            return nil, fmt.Errorf("list notifications: %w", err)
        }
        s.cache.Put(key, fetched)
        return fetched, nil
    }
    if entry.StaleAt(s.now(), s.cfg.Cache.FriendsWindow) {
        s.ForceRefresh()
    }
    return list, nil
}

// ForceRefresh 无视窗口整体重拉（实时事件入口）
func (s *NotificationService) ForceRefresh() {
    userID := s.session.UserID()
    if userID == "" {
        return
    }
    key := cache.NotificationsKey(userID)
    s.refresher.Trigger(key, func() {
        fetched, err := s.store.ListNotifications(context.Background(), userID)
        if err != nil {
            logger.Warn("notifications refresh failed", zap.Error(err))
            return
        }
        s.cache.Put(key, fetched)
    })
}

// UnreadCount 未读数（基于本地状态）
func (s *NotificationService) UnreadCount() int {
    userID := s.session.UserID()
    list, _, ok := cache.GetAs[[]model.NotificationView](s.cache, cache.NotificationsKey(userID))
    if !ok {
        return 0
    }
    n := 0
    for _, v := range list {
        if !v.IsRead {
            n++
        }
    }
    return n
}

// MarkRead 单条已读：先改本地，失败还原
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    key := cache.NotificationsKey(userID)
    var snapshot model.NotificationView
    touched := false
    cache.MutateAs(s.cache, key, func(list []model.NotificationView) []model.NotificationView {
        out := make([]model.NotificationView, len(list))
        for i, n := range list {
            if n.ID == id {
                snapshot = n
                touched = true
                n.IsRead = true
            }
            out[i] = n
        }
        return out
    })
    if err := s.store.MarkNotificationRead(ctx, id); err != nil {
        if touched {
            cache.MutateAs(s.cache, key, func(list []model.NotificationView) []model.NotificationView {
                out := make([]model.NotificationView, len(list))
                for i, n := range list {
                    if n.ID == id {
                        n = snapshot
                    }
                    out[i] = n
                }
                return out
            })
        }
        return fmt.Errorf("mark read: %w", err)
    }
    return nil
}

// MarkAllRead 全部已读：整快照还原
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    key := cache.NotificationsKey(userID)
    var snapshot []model.NotificationView
    cache.MutateAs(s.cache, key, func(list []model.NotificationView) []model.NotificationView {
        snapshot = append([]model.NotificationView{}, list...)
        out := make([]model.NotificationView, len(list))
        for i, n := range list {
            n.IsRead = true
            out[i] = n
        }
        return out
    })
    if err := s.store.MarkAllNotificationsRead(ctx, userID); err != nil {
        if snapshot != nil {
            cache.MutateAs(s.cache, key, func([]model.NotificationView) []model.NotificationView {
                return snapshot
            })
        }
        return fmt.Errorf("mark all read: %w", err)
    }
    return nil
}

// Delete 删除通知：服务端确认后移除本地条目
func (s *NotificationService) Delete(ctx context.Context, id string) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    if err := s.store.DeleteNotification(ctx, id); err != nil {
        return fmt.Errorf("delete notification: %w", err)
    }
    cache.MutateAs(s.cache, cache.NotificationsKey(userID), func(list []model.NotificationView) []model.NotificationView {
        out := list[:0:0]
        for _, n := range list {
            if n.ID != id {
                out = append(out, n)
            }
        }
        return out
    })
    return nil
}
