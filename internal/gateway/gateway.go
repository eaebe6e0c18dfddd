package gateway

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "time"

    "github.com/d60-Lab/studycircle/internal/model"
)

// 远端数据网关边界：行存储、变更推送、身份、对象存储。
// 生产环境由托管后端提供；本仓库自带 gorm+redis 的本地实现供测试与联调。

var (
    ErrNotFound      = errors.New("gateway: row not found")
    ErrDuplicatePair = errors.New("gateway: friendship pair already exists")
)

// 推送事件涉及的表名
const (
    TablePosts         = "posts"
    TableComments      = "comments"
    TableReactions     = "reactions"
    TableFriendships   = "friendships"
    TableNotifications = "notifications"
    TableNotes         = "notes"
    TableProfiles      = "profiles"
)

// Tables 订阅合并层关心的全部表
var Tables = []string{
    TablePosts, TableComments, TableReactions, TableFriendships,
    TableNotifications, TableNotes, TableProfiles,
}

// EventKind 行级变更类型
type EventKind string

const (
    EventInsert EventKind = "insert"
    EventUpdate EventKind = "update"
    EventDelete EventKind = "delete"
)

// Event 行级变更通知；New/Old 为行的 JSON 快照
type Event struct {
    Table string          `json:"table"`
    Kind  EventKind       `json:"kind"`
    New   json.RawMessage `json:"new,omitempty"`
    Old   json.RawMessage `json:"old,omitempty"`
}

// Row 解出事件中的行快照；delete 取 Old，其余取 New
func (e Event) Row() json.RawMessage {
    if e.Kind == EventDelete {
        return e.Old
    }
    return e.New
}

// DecodeRow 将行快照解到具体模型
func DecodeRow[T any](raw json.RawMessage) (T, error) {
    var v T
    if len(raw) == 0 {
        return v, ErrNotFound
    }
    err := json.Unmarshal(raw, &v)
    return v, err
}

// Subscription 单表订阅句柄；Close 后 Events 通道关闭
type Subscription interface {
    Events() <-chan Event
    Close() error
}

// Feed 行级变更推送
type Feed interface {
    Subscribe(ctx context.Context, table string) (Subscription, error)
}

// Publisher 本地网关写入后向 Feed 投递事件
type Publisher interface {
    Publish(ctx context.Context, e Event) error
}

// Auth 会话令牌与用户身份互换
type Auth interface {
    Issue(userID string, ttl time.Duration) (string, error)
    UserID(token string) (string, error)
}

// Blob 对象存储：上传后返回公网可取 URL
type Blob interface {
    Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
}

// Store 行存储。CreatePost/CreateComment 由服务端派发 ID 并返回完整视图，
// 供客户端回填乐观占位。
type Store interface {
    // posts
    ListPosts(ctx context.Context, viewerID string, limit int) ([]model.PostView, error)
    GetPost(ctx context.Context, viewerID, postID string) (*model.PostView, error)
    CreatePost(ctx context.Context, post model.Post) (*model.PostView, error)
    UpdatePost(ctx context.Context, postID, content string, images, tags model.StringList) (*model.PostView, error)
    DeletePost(ctx context.Context, postID string) error
    // reactions（幂等置位，而非增量翻转）
    SetReaction(ctx context.Context, postID, userID string, kind model.ReactionKind, on bool) error
    ListReactors(ctx context.Context, postID string, kind model.ReactionKind) ([]model.Profile, error)
    // comments
    ListComments(ctx context.Context, postID string) ([]model.CommentView, error)
    CreateComment(ctx context.Context, c model.Comment) (*model.CommentView, error)
    CountComments(ctx context.Context, postID string) (int, error)
    // friendships
    GetFriendship(ctx context.Context, a, b string) (*model.Friendship, error)
    CreateFriendship(ctx context.Context, initiatorID, recipientID string) (*model.Friendship, error)
    RespondFriendship(ctx context.Context, friendshipID string, accept bool) (*model.Friendship, error)
    ListFriends(ctx context.Context, userID string) ([]model.FriendView, error)
    SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error)
    // notifications
    ListNotifications(ctx context.Context, recipientID string) ([]model.NotificationView, error)
    CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error)
    MarkNotificationRead(ctx context.Context, id string) error
    MarkAllNotificationsRead(ctx context.Context, recipientID string) error
    DeleteNotification(ctx context.Context, id string) error
    // notes
    ListNotesByMonth(ctx context.Context, ownerID, month string) ([]model.Note, error)
    ListNotesByDate(ctx context.Context, ownerID, date string) ([]model.Note, error)
    CreateNote(ctx context.Context, n model.Note) (*model.Note, error)
    UpdateNote(ctx context.Context, n model.Note) (*model.Note, error)
    DeleteNote(ctx context.Context, id string) error
    // profiles
    GetProfile(ctx context.Context, id string) (*model.Profile, error)
    GetProfileStats(ctx context.Context, id string) (*model.ProfileStats, error)
    UpdateProfile(ctx context.Context, id, name, bio string, categories model.StringList) (*model.Profile, error)
    SetAvatar(ctx context.Context, id, url string) error
}
