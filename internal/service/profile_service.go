package service

import (
    "context"
    "fmt"
    "io"
    "time"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
)

// ProfileService 个人资料：聚合统计每次拉取现算，本人视图入缓存
// 供点赞/收藏的统计乐观增减
type ProfileService struct {
    store   gateway.Store
    cache   *cache.Store
    blob    gateway.Blob
    session *Session
    now     func() time.Time
}

func NewProfileService(store gateway.Store, c *cache.Store, blob gateway.Blob, session *Session) *ProfileService {
    return &ProfileService{store: store, cache: c, blob: blob, session: session, now: time.Now}
}

// Get 任意用户的资料 + 派生统计
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.ProfileView, error) {
    p, err := s.store.GetProfile(ctx, userID)
    if err != nil {
        return nil, fmt.Errorf("get profile: %w", err)
    }
    stats, err := s.store.GetProfileStats(ctx, userID)
    if err != nil {
        return nil, fmt.Errorf("get profile stats: %w", err)
    }
    return &model.ProfileView{Profile: *p, Stats: *stats}, nil
}

// Me 本人资料；结果落缓存，互动操作引发的统计乐观变更作用在其上
func (s *ProfileService) Me(ctx context.Context) (*model.ProfileView, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    view, err := s.Get(ctx, userID)
    if err != nil {
        return nil, err
    }
    s.cache.Put(cache.ProfileKey(userID), *view)
    return view, nil
}

// CachedMe 本地的本人视图（界面刷新用，可能落后于服务端）
func (s *ProfileService) CachedMe() (model.ProfileView, bool) {
    userID := s.session.UserID()
    view, _, ok := cache.GetAs[model.ProfileView](s.cache, cache.ProfileKey(userID))
    return view, ok
}

// Update 改名/简介/兴趣分类；本地视图先行更新，失败还原
func (s *ProfileService) Update(ctx context.Context, name, bio string, categories []string) (*model.Profile, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    key := cache.ProfileKey(userID)
    var snapshot model.ProfileView
    touched := false
    cache.MutateAs(s.cache, key, func(pv model.ProfileView) model.ProfileView {
        snapshot = pv
        touched = true
        pv.Name = name
        pv.Bio = bio
        if categories != nil {
            pv.Categories = model.StringList(categories)
        }
        return pv
    })
    p, err := s.store.UpdateProfile(ctx, userID, name, bio, model.StringList(categories))
    if err != nil {
        if touched {
            cache.MutateAs(s.cache, key, func(model.ProfileView) model.ProfileView { return snapshot })
        }
        return nil, fmt.Errorf("update profile: %w", err)
    }
    return p, nil
}

// UploadAvatar 上传头像并落到资料；上传完成前不动本地状态
func (s *ProfileService) UploadAvatar(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
    userID, err := s.session.require()
    if err != nil {
        return "", err
    }
    path := fmt.Sprintf("avatars/%s/%d_%s", userID, s.now().UnixMilli(), name)
    url, err := s.blob.Upload(ctx, path, r, contentType)
    if err != nil {
        return "", fmt.Errorf("upload avatar: %w", err)
    }
    if err := s.store.SetAvatar(ctx, userID, url); err != nil {
        return "", fmt.Errorf("set avatar: %w", err)
    }
    cache.MutateAs(s.cache, cache.ProfileKey(userID), func(pv model.ProfileView) model.ProfileView {
        pv.Avatar = url
        return pv
    })
    return url, nil
}

// Interests 本人兴趣分类（动态流过滤用）
func (s *ProfileService) Interests() []string {
    if view, ok := s.CachedMe(); ok {
        return view.Categories
    }
    return nil
}
