package service

import (
    "context"
    "fmt"
    "time"

    "github.com/go-playground/validator/v10"
    "go.uber.org/zap"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/config"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
    "github.com/d60-Lab/studycircle/pkg/logger"
)

// CommentService 帖内评论：追加式列表 + 帖面计数联动
type CommentService struct {
    store     gateway.Store
    cache     *cache.Store
    refresher *cache.Refresher
    session   *Session
    cfg       *config.Config
    validate  *validator.Validate
    now       func() time.Time
}

func NewCommentService(store gateway.Store, c *cache.Store, r *cache.Refresher, session *Session, cfg *config.Config) *CommentService {
    return &CommentService{
        store:     store,
        cache:     c,
        refresher: r,
        session:   session,
        cfg:       cfg,
        validate:  validator.New(),
        now:       time.Now,
    }
}

func (s *CommentService) WithClock(now func() time.Time) *CommentService {
    s.now = now
    return s
}

// List 单帖评论，创建时间升序；窗口 5 分钟，过窗后台整体刷新
func (s *CommentService) List(ctx context.Context, postID string) ([]model.CommentView, error) {
    key := cache.CommentsKey(postID)
    comments, entry, ok := cache.GetAs[[]model.CommentView](s.cache, key)
    if !ok {
        fetched, err := s.store.ListComments(ctx, postID)
        if err != nil {
            return nil, fmt.Errorf("list comments: %w", err)
        }
        s.cache.Put(key, fetched)
        return fetched, nil
    }
    if entry.StaleAt(s.now(), s.cfg.Cache.CommentsWindow) {
        s.refresher.Trigger(key, func() {
            fetched, err := s.store.ListComments(context.Background(), postID)
            if err != nil {
                logger.Warn("comments refresh failed", zap.String("post", postID), zap.Error(err))
                return
            }
            s.cache.Put(key, fetched)
        })
    }
    return comments, nil
}

type commentInput struct {
    Content string `validate:"required,max=1000"`
}

// Create 发表评论：占位评论追加 + 帖面计数 +1，失败按快照一并还原
func (s *CommentService) Create(ctx context.Context, postID, content string) (*model.CommentView, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    if err := s.validate.Struct(commentInput{Content: content}); err != nil {
        return nil, fmt.Errorf("comment input: %w", err)
    }

    author := model.AuthorSnapshot{}
    if p, err := s.store.GetProfile(ctx, userID); err == nil {
        author = p.Snapshot()
    }

    tempID := NewTempID()
    optimistic := model.CommentView{
        Comment: model.Comment{
            ID:        tempID,
            PostID:    postID,
            AuthorID:  userID,
            Content:   content,
            CreatedAt: s.now(),
        },
        Author: author,
    }

    commentsKey := cache.CommentsKey(postID)
    cache.MutateAs(s.cache, commentsKey, func(list []model.CommentView) []model.CommentView {
        return append(append([]model.CommentView{}, list...), optimistic)
    })

    var postSnapshot model.PostView
    postTouched := false
    cache.MutateAs(s.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
        out := make([]model.PostView, len(posts))
        for i, p := range posts {
            if p.ID == postID {
                postSnapshot = p
                postTouched = true
                p.CommentCount++
            }
            out[i] = p
        }
        return out
    })

    confirmed, err := s.store.CreateComment(ctx, optimistic.Comment)
    if err != nil {
        cache.MutateAs(s.cache, commentsKey, func(list []model.CommentView) []model.CommentView {
            out := list[:0:0]
            for _, c := range list {
                if c.ID != tempID {
                    out = append(out, c)
                }
            }
            return out
        })
        if postTouched {
            cache.MutateAs(s.cache, cache.FeedKey(), func(posts []model.PostView) []model.PostView {
                out := make([]model.PostView, len(posts))
                for i, p := range posts {
                    if p.ID == postID {
                        p = postSnapshot
                    }
                    out[i] = p
                }
                return out
            })
        }
        return nil, fmt.Errorf("create comment: %w", err)
    }

    // 占位换正式 ID；重复以正式 ID 去重
    cache.MutateAs(s.cache, commentsKey, func(list []model.CommentView) []model.CommentView {
        out := list[:0:0]
        seen := false
        for _, c := range list {
            if c.ID == confirmed.ID {
                seen = true
            }
        }
        for _, c := range list {
            switch {
            case c.ID == tempID && seen:
            case c.ID == tempID:
                out = append(out, *confirmed)
            default:
                out = append(out, c)
            }
        }
        return out
    })
    return confirmed, nil
}

// Count 帖面评论数现查（列表页聚合用）
func (s *CommentService) Count(ctx context.Context, postID string) (int, error) {
    return s.store.CountComments(ctx, postID)
}
