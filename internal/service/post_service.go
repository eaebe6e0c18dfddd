package service

import (
    "context"
    "fmt"
    "io"
    "sync"
    "sync/atomic"
    "time"

    "github.com/go-playground/validator/v10"
    "go.uber.org/zap"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/config"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
    "github.com/d60-Lab/studycircle/pkg/logger"
)

// PostService 动态流：列表缓存、发布、编辑、删除、点赞收藏、转发
type PostService struct {
    store     gateway.Store
    cache     *cache.Store
    refresher *cache.Refresher
    blob      gateway.Blob
    session   *Session
    cfg       *config.Config
    validate  *validator.Validate
    locks     *keyedLocks
    now       func() time.Time

    uploading atomic.Bool
    // 确认前被删除的占位帖：发布回包后补删服务端行
    abMu      sync.Mutex
    abandoned map[string]bool
}

func NewPostService(store gateway.Store, c *cache.Store, r *cache.Refresher, blob gateway.Blob, session *Session, cfg *config.Config) *PostService {
    return &PostService{
        store:     store,
        cache:     c,
        refresher: r,
        blob:      blob,
        session:   session,
        cfg:       cfg,
        validate:  validator.New(),
        locks:     newKeyedLocks(),
        now:       time.Now,
        abandoned: make(map[string]bool),
    }
}

// WithClock 注入时钟（测试用）
func (s *PostService) WithClock(now func() time.Time) *PostService {
    s.now = now
    return s
}

// Feed 返回动态列表；过窗条目立即返回并触发一次后台整体刷新
func (s *PostService) Feed(ctx context.Context) ([]model.PostView, error) {
    viewerID := s.session.UserID()
    key := cache.FeedKey()
    posts, entry, ok := cache.GetAs[[]model.PostView](s.cache, key)
    if !ok {
        fetched, err := s.store.ListPosts(ctx, viewerID, 0)
        if err != nil {
            return nil, fmt.Errorf("list posts: %w", err)
        }
        s.cache.Put(key, fetched)
        return fetched, nil
    }
    if entry.StaleAt(s.now(), s.cfg.Cache.PostsWindow) {
        s.refresher.Trigger(key, func() {
            fetched, err := s.store.ListPosts(context.Background(), viewerID, 0)
            if err != nil {
                logger.Warn("feed refresh failed", zap.Error(err))
                return
            }
            s.cache.Put(key, fetched)
        })
    }
    return posts, nil
}

// ImageFile 待上传图片
type ImageFile struct {
    Name        string
    ContentType string
    Data        io.Reader
}

// UploadImages 发布前上传全部图片；全部成功才返回 URL 列表。
// 上传期间 Publish 会被拒绝。
func (s *PostService) UploadImages(ctx context.Context, files []ImageFile) ([]string, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    if len(files) > s.cfg.MaxPostImages {
        return nil, ErrTooManyImages
    }
    if !s.uploading.CompareAndSwap(false, true) {
        return nil, ErrUploadInProgress
    }
    defer s.uploading.Store(false)

    urls := make([]string, 0, len(files))
    for i, f := range files {
        path := fmt.Sprintf("posts/%s/%d_%s_%s", userID, s.now().UnixMilli(), NewTempID(), f.Name)
        url, err := s.blob.Upload(ctx, path, f.Data, f.ContentType)
        if err != nil {
            return nil, fmt.Errorf("upload image %d: %w", i, err)
        }
        urls = append(urls, url)
    }
    return urls, nil
}

// PublishInput 发布参数；Images 为已上传完成的 URL
type PublishInput struct {
    Content string   `validate:"required,max=2000"`
    Images  []string `validate:"max=3"`
    Tags    []string
}

// Publish 发布动态：先以占位 ID 插入本地流，回包后换成服务端 ID。
// 若确认前该占位帖已被删除，回包后补删服务端行并返回 nil 视图。
func (s *PostService) Publish(ctx context.Context, in PublishInput) (*model.PostView, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    if s.uploading.Load() {
        return nil, ErrUploadInProgress
    }
    if err := s.validate.Struct(in); err != nil {
        return nil, fmt.Errorf("publish input: %w", err)
    }
    tags := in.Tags
    if len(tags) == 0 {
        tags = []string{model.DefaultTag}
    }

    author := model.AuthorSnapshot{}
    if p, err := s.store.GetProfile(ctx, userID); err == nil {
        author = p.Snapshot()
    }

    tempID := NewTempID()
    now := s.now()
    optimistic := model.PostView{
        Post: model.Post{
            ID:           tempID,
            OwnerID:      userID,
            Content:      in.Content,
            Images:       model.StringList(in.Images),
            Tags:         model.StringList(tags),
            CreatedAt:    now,
            LastEditedAt: now,
        },
        Author: author,
    }
    cache.MutateAs(s.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        return append([]model.PostView{optimistic}, posts...)
    })

    confirmed, err := s.store.CreatePost(ctx, optimistic.Post)
    if err != nil {
        s.removeFromFeed(tempID)
        return nil, fmt.Errorf("create post: %w", err)
    }

    if s.takeAbandoned(tempID) {
        if derr := s.store.DeletePost(ctx, confirmed.ID); derr != nil {
            logger.Warn("delete abandoned post", zap.String("id", confirmed.ID), zap.Error(derr))
        }
        s.removeFromFeed(tempID)
        s.removeFromFeed(confirmed.ID)
        return nil, nil
    }

    // 占位换正式 ID；若实时事件已插入正式行，只丢弃占位
    cache.MutateAs(s.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        out := make([]model.PostView, 0, len(posts))
        seen := false
        for _, p := range posts {
            if p.ID == confirmed.ID {
                seen = true
            }
        }
        for _, p := range posts {
            switch {
            case p.ID == tempID && seen:
                // drop
            case p.ID == tempID:
                out = append(out, *confirmed)
            default:
                out = append(out, p)
            }
        }
        return out
    })
    return confirmed, nil
}

// Edit 编辑动态：仅内容/图片/标签可改
func (s *PostService) Edit(ctx context.Context, postID, content string, images, tags []string) error {
    if _, err := s.session.require(); err != nil {
        return err
    }
    if len(images) > s.cfg.MaxPostImages {
        return ErrTooManyImages
    }
    snapshot, ok := s.findInFeed(postID)
    if ok {
        s.replaceInFeed(postID, func(p model.PostView) model.PostView {
            p.Content = content
            p.Images = model.StringList(images)
            if len(tags) > 0 {
                p.Tags = model.StringList(tags)
            }
            p.LastEditedAt = s.now()
            return p
        })
    }
    confirmed, err := s.store.UpdatePost(ctx, postID, content, model.StringList(images), model.StringList(tags))
    if err != nil {
        if ok {
            s.replaceInFeed(postID, func(model.PostView) model.PostView { return snapshot })
        }
        return fmt.Errorf("update post: %w", err)
    }
    s.replaceInFeed(postID, func(model.PostView) model.PostView { return *confirmed })
    return nil
}

// Delete 删除动态：服务端确认后才移除本地条目；占位帖标记放弃
func (s *PostService) Delete(ctx context.Context, postID string) error {
    if _, err := s.session.require(); err != nil {
        return err
    }
    if IsTempID(postID) {
        s.markAbandoned(postID)
        s.removeFromFeed(postID)
        return nil
    }
    if err := s.store.DeletePost(ctx, postID); err != nil {
        return fmt.Errorf("delete post: %w", err)
    }
    s.removeFromFeed(postID)
    s.cache.Invalidate(cache.CommentsKey(postID))
    return nil
}

// ToggleLike 点赞/取消；以当前展示状态取反，远端为按状态置位的幂等写
func (s *PostService) ToggleLike(ctx context.Context, postID string) error {
    return s.toggle(ctx, postID, model.ReactionLike)
}

// ToggleBookmark 收藏/取消
func (s *PostService) ToggleBookmark(ctx context.Context, postID string) error {
    return s.toggle(ctx, postID, model.ReactionBookmark)
}

func (s *PostService) toggle(ctx context.Context, postID string, kind model.ReactionKind) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    unlock := s.locks.Acquire(postID)
    defer unlock()

    cur, ok := s.findInFeed(postID)
    if !ok {
        fetched, err := s.store.GetPost(ctx, userID, postID)
        if err != nil {
            return fmt.Errorf("load post: %w", err)
        }
        cur = *fetched
    }

    var target bool
    next := cur
    switch kind {
    case model.ReactionLike:
        target = !cur.IsLiked
        next.IsLiked = target
        next.LikeCount = deltaCount(cur.LikeCount, target)
    case model.ReactionBookmark:
        target = !cur.IsBookmarked
        next.IsBookmarked = target
    }
    s.replaceInFeed(postID, func(model.PostView) model.PostView { return next })

    // 赞/藏自己的帖子时，个人统计做第二笔可回滚的乐观变更
    ownStats, ownApplied := s.applyOwnStatsDelta(userID, cur, kind, target)

    if err := s.store.SetReaction(ctx, postID, userID, kind, target); err != nil {
        s.replaceInFeed(postID, func(model.PostView) model.PostView { return cur })
        if ownApplied {
            cache.MutateAs(s.cache, cache.ProfileKey(userID), func(model.ProfileView) model.ProfileView { return ownStats })
        }
        return fmt.Errorf("set %s: %w", kind, err)
    }
    return nil
}

// applyOwnStatsDelta 返回变更前的资料快照与是否实际生效
func (s *PostService) applyOwnStatsDelta(userID string, post model.PostView, kind model.ReactionKind, on bool) (model.ProfileView, bool) {
    var snapshot model.ProfileView
    applied := false
    cache.MutateAs(s.cache, cache.ProfileKey(userID), func(pv model.ProfileView) model.ProfileView {
        snapshot = pv
        switch kind {
        case model.ReactionLike:
            if post.OwnerID != userID {
                return pv
            }
            pv.Stats.LikesReceived = deltaCount(pv.Stats.LikesReceived, on)
        case model.ReactionBookmark:
            pv.Stats.Bookmarks = deltaCount(pv.Stats.Bookmarks, on)
        }
        applied = true
        return pv
    })
    return snapshot, applied
}

// Share 转发：向作者生成 SHARE 通知，无本地流变化
func (s *PostService) Share(ctx context.Context, postID string) error {
    userID, err := s.session.require()
    if err != nil {
        return err
    }
    post, ok := s.findInFeed(postID)
    if !ok {
        fetched, err := s.store.GetPost(ctx, userID, postID)
        if err != nil {
            return fmt.Errorf("load post: %w", err)
        }
        post = *fetched
    }
    if post.OwnerID == userID {
        return nil
    }
    _, err = s.store.CreateNotification(ctx, model.Notification{
        RecipientID:   post.OwnerID,
        SenderID:      userID,
        Type:          model.NotifyShare,
        TargetContent: post.Content,
        RelatedID:     postID,
    })
    if err != nil {
        return fmt.Errorf("share post: %w", err)
    }
    return nil
}

// Interactions 单帖互动明细，按需现查不入缓存
type Interactions struct {
    Likers      []model.Profile
    Bookmarkers []model.Profile
    Comments    []model.CommentView
}

func (s *PostService) Interactions(ctx context.Context, postID string) (*Interactions, error) {
    likers, err := s.store.ListReactors(ctx, postID, model.ReactionLike)
    if err != nil {
        return nil, err
    }
    bookmarkers, err := s.store.ListReactors(ctx, postID, model.ReactionBookmark)
    if err != nil {
        return nil, err
    }
    comments, err := s.store.ListComments(ctx, postID)
    if err != nil {
        return nil, err
    }
    return &Interactions{Likers: likers, Bookmarkers: bookmarkers, Comments: comments}, nil
}

// ---- feed helpers ----

func (s *PostService) findInFeed(postID string) (model.PostView, bool) {
    posts, _, ok := cache.GetAs[[]model.PostView](s.cache, cache.FeedKey())
    if !ok {
        return model.PostView{}, false
    }
    for _, p := range posts {
        if p.ID == postID {
            return p, true
        }
    }
    return model.PostView{}, false
}

func (s *PostService) replaceInFeed(postID string, fn func(model.PostView) model.PostView) {
    cache.MutateAs(s.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        out := make([]model.PostView, len(posts))
        for i, p := range posts {
            if p.ID == postID {
                out[i] = fn(p)
            } else {
                out[i] = p
            }
        }
        return out
    })
}

func (s *PostService) removeFromFeed(postID string) {
    cache.MutateAs(s.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        out := posts[:0:0]
        for _, p := range posts {
            if p.ID != postID {
                out = append(out, p)
            }
        }
        return out
    })
}

func (s *PostService) markAbandoned(tempID string) {
    s.abMu.Lock()
    s.abandoned[tempID] = true
    s.abMu.Unlock()
}

func (s *PostService) takeAbandoned(tempID string) bool {
    s.abMu.Lock()
    defer s.abMu.Unlock()
    if s.abandoned[tempID] {
        delete(s.abandoned, tempID)
        return true
    }
    return false
}

func deltaCount(n int, up bool) int {
    if up {
        return n + 1
    }
    if n > 0 {
        return n - 1
    }
    return 0
}
