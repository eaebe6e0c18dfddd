package service

import (
    "context"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/stretchr/testify/require"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"

    "github.com/d60-Lab/studycircle/internal/cache"
    "github.com/d60-Lab/studycircle/internal/config"
    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
)

type fakeClock struct {
    mu sync.Mutex
    t  time.Time
}

func newFakeClock() *fakeClock {
    return &fakeClock{t: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    c.t = c.t.Add(d)
    c.mu.Unlock()
}

// hookStore 包一层网关：可注入失败、阻塞与调用计数
type hookStore struct {
    gateway.Store

    mu            sync.Mutex
    listPostCalls int

    failCreatePost    error
    failSetReaction   error
    failCreateComment error
    failMarkRead      error
    failMarkAllRead   error
    failCreateNotif   error
    failUpdateProfile error
    failRespond       error

    blockCreatePost chan struct{} // 非 nil 时 CreatePost 等待放行
    onSearch        func(query string)
}

func (h *hookStore) ListPosts(ctx context.Context, viewerID string, limit int) ([]model.PostView, error) {
    h.mu.Lock()
    h.listPostCalls++
    h.mu.Unlock()
    return h.Store.ListPosts(ctx, viewerID, limit)
}

func (h *hookStore) listPostsCount() int {
    h.mu.Lock()
    defer h.mu.Unlock()
    return h.listPostCalls
}

func (h *hookStore) CreatePost(ctx context.Context, post model.Post) (*model.PostView, error) {
    if h.blockCreatePost != nil {
        <-h.blockCreatePost
    }
    if h.failCreatePost != nil {
        return nil, h.failCreatePost
    }
    return h.Store.CreatePost(ctx, post)
}

func (h *hookStore) SetReaction(ctx context.Context, postID, userID string, kind model.ReactionKind, on bool) error {
    if h.failSetReaction != nil {
        return h.failSetReaction
    }
    return h.Store.SetReaction(ctx, postID, userID, kind, on)
}

func (h *hookStore) CreateComment(ctx context.Context, c model.Comment) (*model.CommentView, error) {
    if h.failCreateComment != nil {
        return nil, h.failCreateComment
    }
    return h.Store.CreateComment(ctx, c)
}

func (h *hookStore) MarkNotificationRead(ctx context.Context, id string) error {
    if h.failMarkRead != nil {
        return h.failMarkRead
    }
    return h.Store.MarkNotificationRead(ctx, id)
}

func (h *hookStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
    if h.failMarkAllRead != nil {
        return h.failMarkAllRead
    }
    return h.Store.MarkAllNotificationsRead(ctx, recipientID)
}

func (h *hookStore) CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error) {
    if h.failCreateNotif != nil {
        return nil, h.failCreateNotif
    }
    return h.Store.CreateNotification(ctx, n)
}

func (h *hookStore) UpdateProfile(ctx context.Context, id, name, bio string, categories model.StringList) (*model.Profile, error) {
    if h.failUpdateProfile != nil {
        return nil, h.failUpdateProfile
    }
    return h.Store.UpdateProfile(ctx, id, name, bio, categories)
}

func (h *hookStore) RespondFriendship(ctx context.Context, friendshipID string, accept bool) (*model.Friendship, error) {
    if h.failRespond != nil {
        return nil, h.failRespond
    }
    return h.Store.RespondFriendship(ctx, friendshipID, accept)
}

func (h *hookStore) SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error) {
    if h.onSearch != nil {
        h.onSearch(query)
    }
    return h.Store.SearchProfiles(ctx, query, limit)
}

type testEnv struct {
    t     *testing.T
    db    *gorm.DB
    store *hookStore
    cache *cache.Store
    clock *fakeClock

    session  *Session
    posts    *PostService
    comments *CommentService
    friends  *FriendService
    notifs   *NotificationService
    notes    *NoteService
    profiles *ProfileService
    blob     *gateway.MemBlob
}

func newTestEnv(t *testing.T, userID string) *testEnv {
    t.Helper()
    dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), uuid.NewString()[:8])
    db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
    require.NoError(t, err)
    sqlDB, err := db.DB()
    require.NoError(t, err)
    // 单连接串行化，规避内存库并发写锁
    sqlDB.SetMaxOpenConns(1)
    require.NoError(t, gateway.Migrate(db))

    clock := newFakeClock()
    store := &hookStore{Store: gateway.NewGormStore(db, nil).WithClock(clock.Now)}
    c := cache.NewStore().WithClock(clock.Now)
    refresher := cache.NewRefresher(1000)
    cfg := config.Default()
    session := NewSession(userID)
    blob := gateway.NewMemBlob()

    env := &testEnv{
        t:        t,
        db:       db,
        store:    store,
        cache:    c,
        clock:    clock,
        session:  session,
        blob:     blob,
        posts:    NewPostService(store, c, refresher, blob, session, cfg).WithClock(clock.Now),
        comments: NewCommentService(store, c, refresher, session, cfg).WithClock(clock.Now),
        friends:  NewFriendService(store, c, refresher, session, cfg).WithClock(clock.Now),
        notifs:   NewNotificationService(store, c, refresher, session, cfg).WithClock(clock.Now),
        notes:    NewNoteService(store, session),
        profiles: NewProfileService(store, c, blob, session),
    }
    if userID != "" {
        env.addUser(userID, "user-"+userID)
    }
    return env
}

func (e *testEnv) addUser(id, name string) {
    e.t.Helper()
    p := model.Profile{
        ID:        id,
        UID:       fmt.Sprintf("%08d", len(id)*1000000+int(id[len(id)-1])),
        Name:      name,
        CreatedAt: e.clock.Now(),
        UpdatedAt: e.clock.Now(),
    }
    require.NoError(e.t, e.db.Create(&p).Error)
}

func (e *testEnv) seedPost(ownerID, content string, tags ...string) *model.PostView {
    e.t.Helper()
    view, err := e.store.Store.CreatePost(context.Background(), model.Post{
        OwnerID: ownerID,
        Content: content,
        Tags:    model.StringList(tags),
    })
    require.NoError(e.t, err)
    return view
}
