package gateway

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/studycircle/internal/model"
)

func setupFeed(t *testing.T) *RedisFeed {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return NewRedisFeed(rdb)
}

func TestRedisFeedPublishSubscribe(t *testing.T) {
    feed := setupFeed(t)
    ctx := context.Background()

    sub, err := feed.Subscribe(ctx, TablePosts)
    require.NoError(t, err)
    defer sub.Close()

    post := model.Post{ID: "p1", OwnerID: "a", Content: "hi"}
    raw, err := json.Marshal(post)
    require.NoError(t, err)
    require.NoError(t, feed.Publish(ctx, Event{Table: TablePosts, Kind: EventInsert, New: raw}))

    select {
    case e := <-sub.Events():
        assert.Equal(t, TablePosts, e.Table)
        assert.Equal(t, EventInsert, e.Kind)
        got, err := DecodeRow[model.Post](e.Row())
        require.NoError(t, err)
        assert.Equal(t, "p1", got.ID)
    case <-time.After(2 * time.Second):
        t.Fatal("no event delivered")
    }
}

func TestRedisFeedChannelsAreIsolated(t *testing.T) {
    feed := setupFeed(t)
    ctx := context.Background()

    posts, err := feed.Subscribe(ctx, TablePosts)
    require.NoError(t, err)
    defer posts.Close()
    comments, err := feed.Subscribe(ctx, TableComments)
    require.NoError(t, err)
    defer comments.Close()

    require.NoError(t, feed.Publish(ctx, Event{Table: TableComments, Kind: EventInsert, New: json.RawMessage(`{"id":"c1"}`)}))

    select {
    case e := <-comments.Events():
        assert.Equal(t, TableComments, e.Table)
    case <-time.After(2 * time.Second):
        t.Fatal("comment event not delivered")
    }
    select {
    case e := <-posts.Events():
        t.Fatalf("unexpected event on posts channel: %+v", e)
    case <-time.After(100 * time.Millisecond):
    }
}

func TestRedisFeedCloseDrainsChannel(t *testing.T) {
    feed := setupFeed(t)
    sub, err := feed.Subscribe(context.Background(), TableNotes)
    require.NoError(t, err)
    require.NoError(t, sub.Close())

    // 关闭后事件通道最终关闭，range 消费方可以退出
    select {
    case _, ok := <-sub.Events():
        assert.False(t, ok)
    case <-time.After(2 * time.Second):
        t.Fatal("events channel not closed")
    }
}
