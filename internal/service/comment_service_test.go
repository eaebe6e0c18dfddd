package service

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/model"
)

func TestCommentCreateSwapsTempID(t *testing.T) {
    env := newTestEnv(t, "alice")
    ctx := context.Background()
    env.addUser("bob", "bob")
    post := env.seedPost("bob", "话题")

    _, err := env.posts.Feed(ctx)
    require.NoError(t, err)
    _, err = env.comments.List(ctx, post.ID)
    require.NoError(t, err)

    view, err := env.comments.Create(ctx, post.ID, "沙发")
    require.NoError(t, err)
    require.False(t, IsTempID(view.ID))

    list, _, _ := cache.GetAs[[]model.CommentView](env.cache, cache.CommentsKey(post.ID))
    require.Len(t, list, 1)
    assert.Equal(t, view.ID, list[0].ID)
    assert.Equal(t, "user-alice", list[0].Author.Name)

    feed, _, _ := cache.GetAs[[]model.PostView](env.cache, cache.FeedKey())
    assert.Equal(t, 1, feed[0].CommentCount)
}

func TestCommentCountConsistencyUnderConcurrency(t *testing.T) {
    env := newTestEnv(t, "alice")
    ctx := context.Background()
    env.addUser("bob", "bob")
    post := env.seedPost("bob", "热帖")

    _, err := env.posts.Feed(ctx)
    require.NoError(t, err)
    _, err = env.comments.List(ctx, post.ID)
    require.NoError(t, err)

    var wg sync.WaitGroup
    for i := 0; i < 3; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, err := env.comments.Create(ctx, post.ID, fmt.Sprintf("评论 %d", i))
            assert.NoError(t, err)
        }(i)
    }
    wg.Wait()

    feed, _, _ := cache.GetAs[[]model.PostView](env.cache, cache.FeedKey())
    require.Equal(t, 3, feed[0].CommentCount)

    list, _, _ := cache.GetAs[[]model.CommentView](env.cache, cache.CommentsKey(post.ID))
    require.Len(t, list, 3)
    seen := map[string]bool{}
    for _, c := range list {
        require.False(t, IsTempID(c.ID))
        require.False(t, seen[c.ID], "no duplicated comment entries")
        seen[c.ID] = true
    }

    n, err := env.comments.Count(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, 3, n)
}

func TestCommentRollbackRestoresListAndCount(t *testing.T) {
    env := newTestEnv(t, "alice")
    ctx := context.Background()
    env.addUser("bob", "bob")
    post := env.seedPost("bob", "失败场景")

    _, err := env.posts.Feed(ctx)
    require.NoError(t, err)
    _, err = env.comments.List(ctx, post.ID)
    require.NoError(t, err)

    env.store.failCreateComment = errors.New("down")
    _, err = env.comments.Create(ctx, post.ID, "不会留下")
    require.Error(t, err)

    list, _, _ := cache.GetAs[[]model.CommentView](env.cache, cache.CommentsKey(post.ID))
    require.Empty(t, list)
    feed, _, _ := cache.GetAs[[]model.PostView](env.cache, cache.FeedKey())
    require.Equal(t, 0, feed[0].CommentCount)
}

func TestCommentCreationNotifiesPostOwner(t *testing.T) {
    env := newTestEnv(t, "alice")
    ctx := context.Background()
    env.addUser("bob", "bob")
    post := env.seedPost("bob", "等通知")

    _, err := env.comments.Create(ctx, post.ID, "评论来了")
    require.NoError(t, err)

    views, err := env.store.Store.ListNotifications(ctx, "bob")
    require.NoError(t, err)
    require.Len(t, views, 1)
    assert.Equal(t, model.NotifyComment, views[0].Type)
    assert.Equal(t, "alice", views[0].SenderID)
    assert.Equal(t, post.ID, views[0].RelatedID)
}
