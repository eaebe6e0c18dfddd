package gateway

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/studycircle/internal/model"
    "github.com/d60-Lab/studycircle/pkg/logger"
)

// GormStore 托管后端的本地替身：gorm 行存储 + 写后事件投递。
// 测试与基准用 sqlite :memory:，联调可切 postgres。
type GormStore struct {
    db  *gorm.DB
    pub Publisher
    now func() time.Time
}

func NewGormStore(db *gorm.DB, pub Publisher) *GormStore {
    return &GormStore{db: db, pub: pub, now: time.Now}
}

// WithClock 注入时钟（测试用）
func (s *GormStore) WithClock(now func() time.Time) *GormStore {
    s.now = now
    return s
}

// Migrate 建表
func Migrate(db *gorm.DB) error {
    return db.AutoMigrate(
        &model.Profile{}, &model.Post{}, &model.Comment{}, &model.Reaction{},
        &model.Friendship{}, &model.Notification{}, &model.Note{},
    )
}

func (s *GormStore) publish(ctx context.Context, table string, kind EventKind, row any) {
    if s.pub == nil {
        return
    }
    raw, err := json.Marshal(row)
    if err != nil {
        logger.Warn("gateway: marshal event row", zap.String("table", table), zap.Error(err))
        return
    }
    e := Event{Table: table, Kind: kind}
    if kind == EventDelete {
        e.Old = raw
    } else {
        e.New = raw
    }
    if err := s.pub.Publish(ctx, e); err != nil {
        logger.Warn("gateway: publish event", zap.String("table", table), zap.Error(err))
    }
}

// ---- posts ----

func (s *GormStore) ListPosts(ctx context.Context, viewerID string, limit int) ([]model.PostView, error) {
    if limit <= 0 {
        limit = 50
    }
    var posts []model.Post
    if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&posts).Error; err != nil {
        return nil, err
    }
    return s.assemblePosts(ctx, viewerID, posts)
}

func (s *GormStore) GetPost(ctx context.Context, viewerID, postID string) (*model.PostView, error) {
    var post model.Post
    if err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    views, err := s.assemblePosts(ctx, viewerID, []model.Post{post})
    if err != nil {
        return nil, err
    }
    return &views[0], nil
}

// assemblePosts 批量拼装视图：作者快照、聚合计数、当前用户互动标记
func (s *GormStore) assemblePosts(ctx context.Context, viewerID string, posts []model.Post) ([]model.PostView, error) {
    if len(posts) == 0 {
        return []model.PostView{}, nil
    }
    ids := make([]string, len(posts))
    owners := make([]string, len(posts))
    for i, p := range posts {
        ids[i] = p.ID
        owners[i] = p.OwnerID
    }

    var profiles []model.Profile
    if err := s.db.WithContext(ctx).Where("id IN ?", owners).Find(&profiles).Error; err != nil {
        return nil, err
    }
    authors := make(map[string]model.AuthorSnapshot, len(profiles))
    for _, p := range profiles {
        authors[p.ID] = p.Snapshot()
    }

    type countRow struct {
        PostID string
        Kind   string
        N      int
    }
    var reactionCounts []countRow
    if err := s.db.WithContext(ctx).Model(&model.Reaction{}).
        Select("post_id", "kind", "COUNT(*) AS n").
        Where("post_id IN ?", ids).
        Group("post_id").Group("kind").
        Scan(&reactionCounts).Error; err != nil {
        return nil, err
    }
    likeBy := map[string]int{}
    for _, r := range reactionCounts {
        if r.Kind == string(model.ReactionLike) {
            likeBy[r.PostID] = r.N
        }
    }

    var commentCounts []countRow
    if err := s.db.WithContext(ctx).Model(&model.Comment{}).
        Select("post_id", "COUNT(*) AS n").
        Where("post_id IN ?", ids).
        Group("post_id").
        Scan(&commentCounts).Error; err != nil {
        return nil, err
    }
    commentBy := map[string]int{}
    for _, r := range commentCounts {
        commentBy[r.PostID] = r.N
    }

    liked, bookmarked := map[string]bool{}, map[string]bool{}
    if viewerID != "" {
        var mine []model.Reaction
        if err := s.db.WithContext(ctx).
            Where("post_id IN ? AND user_id = ?", ids, viewerID).
            Find(&mine).Error; err != nil {
            return nil, err
        }
        for _, r := range mine {
            switch r.Kind {
            case model.ReactionLike:
                liked[r.PostID] = true
            case model.ReactionBookmark:
                bookmarked[r.PostID] = true
            }
        }
    }

    views := make([]model.PostView, len(posts))
    for i, p := range posts {
        views[i] = model.PostView{
            Post:         p,
            Author:       authors[p.OwnerID],
            LikeCount:    likeBy[p.ID],
            CommentCount: commentBy[p.ID],
            IsLiked:      liked[p.ID],
            IsBookmarked: bookmarked[p.ID],
        }
    }
    return views, nil
}

func (s *GormStore) CreatePost(ctx context.Context, post model.Post) (*model.PostView, error) {
    post.ID = uuid.New().String()
    now := s.now()
    post.CreatedAt = now
    post.LastEditedAt = now
    if len(post.Tags) == 0 {
        post.Tags = model.StringList{model.DefaultTag}
    }
    if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TablePosts, EventInsert, post)
    return s.GetPost(ctx, post.OwnerID, post.ID)
}

func (s *GormStore) UpdatePost(ctx context.Context, postID, content string, images, tags model.StringList) (*model.PostView, error) {
    var post model.Post
    if err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    post.Content = content
    post.Images = images
    if len(tags) > 0 {
        post.Tags = tags
    }
    post.LastEditedAt = s.now()
    if err := s.db.WithContext(ctx).Save(&post).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TablePosts, EventUpdate, post)
    return s.GetPost(ctx, post.OwnerID, post.ID)
}

func (s *GormStore) DeletePost(ctx context.Context, postID string) error {
    var post model.Post
    if err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return ErrNotFound
        }
        return err
    }
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := tx.Where("post_id = ?", postID).Delete(&model.Reaction{}).Error; err != nil {
            return err
        }
        if err := tx.Where("post_id = ?", postID).Delete(&model.Comment{}).Error; err != nil {
            return err
        }
        return tx.Delete(&model.Post{}, "id = ?", postID).Error
    })
    if err != nil {
        return err
    }
    s.publish(ctx, TablePosts, EventDelete, post)
    return nil
}

// ---- reactions ----

func (s *GormStore) SetReaction(ctx context.Context, postID, userID string, kind model.ReactionKind, on bool) error {
    if !on {
        res := s.db.WithContext(ctx).
            Where("post_id = ? AND user_id = ? AND kind = ?", postID, userID, kind).
            Delete(&model.Reaction{})
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected > 0 {
            s.publish(ctx, TableReactions, EventDelete, model.Reaction{PostID: postID, UserID: userID, Kind: kind})
        }
        return nil
    }
    r := model.Reaction{
        ID: uuid.New().String(), PostID: postID, UserID: userID, Kind: kind, CreatedAt: s.now(),
    }
    // 幂等：重复置位不报错也不重复计数
    res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&r)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return nil
    }
    s.publish(ctx, TableReactions, EventInsert, r)
    s.notifyReaction(ctx, postID, userID, kind)
    return nil
}

func (s *GormStore) notifyReaction(ctx context.Context, postID, userID string, kind model.ReactionKind) {
    var post model.Post
    if err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
        return
    }
    if post.OwnerID == userID {
        return
    }
    typ := model.NotifyLike
    if kind == model.ReactionBookmark {
        typ = model.NotifyBookmark
    }
    _, _ = s.CreateNotification(ctx, model.Notification{
        RecipientID:   post.OwnerID,
        SenderID:      userID,
        Type:          typ,
        TargetContent: snippet(post.Content),
        RelatedID:     postID,
    })
}

func (s *GormStore) ListReactors(ctx context.Context, postID string, kind model.ReactionKind) ([]model.Profile, error) {
    var profiles []model.Profile
    err := s.db.WithContext(ctx).
        Table("reactions").
        Select("profiles.*").
        Joins("JOIN profiles ON profiles.id = reactions.user_id").
        Where("reactions.post_id = ? AND reactions.kind = ?", postID, kind).
        Order("reactions.created_at DESC").
        Scan(&profiles).Error
    return profiles, err
}

// ---- comments ----

func (s *GormStore) ListComments(ctx context.Context, postID string) ([]model.CommentView, error) {
    var comments []model.Comment
    if err := s.db.WithContext(ctx).
        Where("post_id = ?", postID).
        Order("created_at ASC").
        Find(&comments).Error; err != nil {
        return nil, err
    }
    views := make([]model.CommentView, len(comments))
    for i, c := range comments {
        views[i] = model.CommentView{Comment: c}
        if p, err := s.GetProfile(ctx, c.AuthorID); err == nil {
            views[i].Author = p.Snapshot()
        }
    }
    return views, nil
}

func (s *GormStore) CreateComment(ctx context.Context, c model.Comment) (*model.CommentView, error) {
    c.ID = uuid.New().String()
    c.CreatedAt = s.now()
    if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TableComments, EventInsert, c)

    view := model.CommentView{Comment: c}
    if p, err := s.GetProfile(ctx, c.AuthorID); err == nil {
        view.Author = p.Snapshot()
    }
    var post model.Post
    if err := s.db.WithContext(ctx).First(&post, "id = ?", c.PostID).Error; err == nil && post.OwnerID != c.AuthorID {
        _, _ = s.CreateNotification(ctx, model.Notification{
            RecipientID:   post.OwnerID,
            SenderID:      c.AuthorID,
            Type:          model.NotifyComment,
            Content:       snippet(c.Content),
            TargetContent: snippet(post.Content),
            RelatedID:     c.PostID,
        })
    }
    return &view, nil
}

func (s *GormStore) CountComments(ctx context.Context, postID string) (int, error) {
    var n int64
    err := s.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&n).Error
    return int(n), err
}

// ---- friendships ----

func (s *GormStore) GetFriendship(ctx context.Context, a, b string) (*model.Friendship, error) {
    low, high := model.PairOf(a, b)
    var f model.Friendship
    err := s.db.WithContext(ctx).
        Where("pair_low = ? AND pair_high = ?", low, high).
        First(&f).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &f, nil
}

func (s *GormStore) CreateFriendship(ctx context.Context, initiatorID, recipientID string) (*model.Friendship, error) {
    low, high := model.PairOf(initiatorID, recipientID)
    now := s.now()
    f := model.Friendship{
        ID:          uuid.New().String(),
        InitiatorID: initiatorID,
        RecipientID: recipientID,
        PairLow:     low,
        PairHigh:    high,
        Status:      model.FriendshipPending,
        CreatedAt:   now,
        UpdatedAt:   now,
    }
    // 无序对唯一索引兜底，并发重复提交只会落一行
    res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&f)
    if res.Error != nil {
        return nil, res.Error
    }
    if res.RowsAffected == 0 {
        return nil, ErrDuplicatePair
    }
    s.publish(ctx, TableFriendships, EventInsert, f)
    _, _ = s.CreateNotification(ctx, model.Notification{
        RecipientID: recipientID,
        SenderID:    initiatorID,
        Type:        model.NotifyFriendRequest,
        RelatedID:   f.ID,
    })
    return &f, nil
}

func (s *GormStore) RespondFriendship(ctx context.Context, friendshipID string, accept bool) (*model.Friendship, error) {
    var f model.Friendship
    if err := s.db.WithContext(ctx).First(&f, "id = ?", friendshipID).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    f.Status = model.FriendshipRejected
    if accept {
        f.Status = model.FriendshipAccepted
    }
    f.UpdatedAt = s.now()
    if err := s.db.WithContext(ctx).Save(&f).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TableFriendships, EventUpdate, f)
    if accept {
        _, _ = s.CreateNotification(ctx, model.Notification{
            RecipientID: f.InitiatorID,
            SenderID:    f.RecipientID,
            Type:        model.NotifyFriendAccept,
            RelatedID:   f.ID,
        })
    }
    return &f, nil
}

func (s *GormStore) ListFriends(ctx context.Context, userID string) ([]model.FriendView, error) {
    var rels []model.Friendship
    if err := s.db.WithContext(ctx).
        Where("(initiator_id = ? OR recipient_id = ?) AND status = ?", userID, userID, model.FriendshipAccepted).
        Find(&rels).Error; err != nil {
        return nil, err
    }
    if len(rels) == 0 {
        return []model.FriendView{}, nil
    }
    counterparts := make([]string, len(rels))
    byCounterpart := make(map[string]string, len(rels))
    for i, f := range rels {
        id := f.CounterpartOf(userID)
        counterparts[i] = id
        byCounterpart[id] = f.ID
    }
    var profiles []model.Profile
    if err := s.db.WithContext(ctx).Where("id IN ?", counterparts).Find(&profiles).Error; err != nil {
        return nil, err
    }

    today := s.now().Format(model.DateLayout)
    month := today[:7]
    type dayRow struct {
        OwnerID string
        Date    string
    }
    var days []dayRow
    if err := s.db.WithContext(ctx).Model(&model.Note{}).
        Distinct("owner_id", "date").
        Where("owner_id IN ? AND date LIKE ?", counterparts, month+"%").
        Scan(&days).Error; err != nil {
        return nil, err
    }
    studyDays := map[string]int{}
    checked := map[string]bool{}
    for _, d := range days {
        studyDays[d.OwnerID]++
        if d.Date == today {
            checked[d.OwnerID] = true
        }
    }

    type remindRow struct {
        RecipientID string
        Latest      time.Time
    }
    var reminders []remindRow
    if err := s.db.WithContext(ctx).Model(&model.Notification{}).
        Select("recipient_id", "MAX(created_at) AS latest").
        Where("sender_id = ? AND recipient_id IN ? AND type = ?", userID, counterparts, model.NotifyStudyReminder).
        Group("recipient_id").
        Scan(&reminders).Error; err != nil {
        return nil, err
    }
    lastRemind := map[string]time.Time{}
    for _, r := range reminders {
        lastRemind[r.RecipientID] = r.Latest
    }

    views := make([]model.FriendView, 0, len(profiles))
    for _, p := range profiles {
        views = append(views, model.FriendView{
            Profile:        p,
            FriendshipID:   byCounterpart[p.ID],
            StudyDaysMonth: studyDays[p.ID],
            CheckedToday:   checked[p.ID],
            ReminderSentAt: lastRemind[p.ID],
        })
    }
    return views, nil
}

func (s *GormStore) SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error) {
    if limit <= 0 {
        limit = 20
    }
    var profiles []model.Profile
    err := s.db.WithContext(ctx).
        Where("uid = ? OR name LIKE ?", query, "%"+query+"%").
        Limit(limit).
        Find(&profiles).Error
    return profiles, err
}

// ---- notifications ----

func (s *GormStore) ListNotifications(ctx context.Context, recipientID string) ([]model.NotificationView, error) {
    var rows []model.Notification
    if err := s.db.WithContext(ctx).
        Where("recipient_id = ?", recipientID).
        Order("created_at DESC").
        Find(&rows).Error; err != nil {
        return nil, err
    }
    views := make([]model.NotificationView, len(rows))
    for i, n := range rows {
        views[i] = model.NotificationView{Notification: n}
        if p, err := s.GetProfile(ctx, n.SenderID); err == nil {
            views[i].Sender = p.Snapshot()
        }
        // FRIEND_REQUEST 读取时镜像申请行状态
        if n.Type == model.NotifyFriendRequest && n.RelatedID != "" {
            var f model.Friendship
            if err := s.db.WithContext(ctx).First(&f, "id = ?", n.RelatedID).Error; err == nil {
                views[i].RequestStatus = f.Status
            }
        }
    }
    return views, nil
}

func (s *GormStore) CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error) {
    n.ID = uuid.New().String()
    n.CreatedAt = s.now()
    if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TableNotifications, EventInsert, n)
    return &n, nil
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, id string) error {
    res := s.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("is_read", true)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrNotFound
    }
    var n model.Notification
    if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err == nil {
        s.publish(ctx, TableNotifications, EventUpdate, n)
    }
    return nil
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
    return s.db.WithContext(ctx).Model(&model.Notification{}).
        Where("recipient_id = ? AND is_read = ?", recipientID, false).
        Update("is_read", true).Error
}

func (s *GormStore) DeleteNotification(ctx context.Context, id string) error {
    var n model.Notification
    if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return ErrNotFound
        }
        return err
    }
    if err := s.db.WithContext(ctx).Delete(&model.Notification{}, "id = ?", id).Error; err != nil {
        return err
    }
    s.publish(ctx, TableNotifications, EventDelete, n)
    return nil
}

// ---- notes ----

func (s *GormStore) ListNotesByMonth(ctx context.Context, ownerID, month string) ([]model.Note, error) {
    var notes []model.Note
    err := s.db.WithContext(ctx).
        Where("owner_id = ? AND date LIKE ?", ownerID, month+"%").
        Order("date ASC").
        Find(&notes).Error
    return notes, err
}

func (s *GormStore) ListNotesByDate(ctx context.Context, ownerID, date string) ([]model.Note, error) {
    var notes []model.Note
    err := s.db.WithContext(ctx).
        Where("owner_id = ? AND date = ?", ownerID, date).
        Order("created_at ASC").
        Find(&notes).Error
    return notes, err
}

func (s *GormStore) CreateNote(ctx context.Context, n model.Note) (*model.Note, error) {
    n.ID = uuid.New().String()
    now := s.now()
    n.CreatedAt = now
    n.LastEditedAt = now
    if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TableNotes, EventInsert, n)
    return &n, nil
}

func (s *GormStore) UpdateNote(ctx context.Context, n model.Note) (*model.Note, error) {
    var cur model.Note
    if err := s.db.WithContext(ctx).First(&cur, "id = ?", n.ID).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    cur.Title = n.Title
    cur.Content = n.Content
    cur.Category = n.Category
    cur.Date = n.Date
    cur.LastEditedAt = s.now()
    if err := s.db.WithContext(ctx).Save(&cur).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TableNotes, EventUpdate, cur)
    return &cur, nil
}

func (s *GormStore) DeleteNote(ctx context.Context, id string) error {
    var n model.Note
    if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return ErrNotFound
        }
        return err
    }
    if err := s.db.WithContext(ctx).Delete(&model.Note{}, "id = ?", id).Error; err != nil {
        return err
    }
    s.publish(ctx, TableNotes, EventDelete, n)
    return nil
}

// ---- profiles ----

func (s *GormStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
    var p model.Profile
    err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// GetProfileStats 全部统计均为拉取时重算；学习天数以笔记行的去重日历日为准
func (s *GormStore) GetProfileStats(ctx context.Context, id string) (*model.ProfileStats, error) {
    stats := &model.ProfileStats{}

    var dates []string
    if err := s.db.WithContext(ctx).Model(&model.Note{}).
        Distinct("date").Where("owner_id = ?", id).
        Pluck("date", &dates).Error; err != nil {
        return nil, err
    }
    stats.StudyDays = len(dates)

    var n int64
    if err := s.db.WithContext(ctx).Model(&model.Note{}).Where("owner_id = ?", id).Count(&n).Error; err != nil {
        return nil, err
    }
    stats.Notes = int(n)

    if err := s.db.WithContext(ctx).Model(&model.Reaction{}).
        Joins("JOIN posts ON posts.id = reactions.post_id").
        Where("posts.owner_id = ? AND reactions.kind = ?", id, model.ReactionLike).
        Count(&n).Error; err != nil {
        return nil, err
    }
    stats.LikesReceived = int(n)

    if err := s.db.WithContext(ctx).Model(&model.Friendship{}).
        Where("(initiator_id = ? OR recipient_id = ?) AND status = ?", id, id, model.FriendshipAccepted).
        Count(&n).Error; err != nil {
        return nil, err
    }
    stats.Friends = int(n)

    if err := s.db.WithContext(ctx).Model(&model.Reaction{}).
        Where("user_id = ? AND kind = ?", id, model.ReactionBookmark).
        Count(&n).Error; err != nil {
        return nil, err
    }
    stats.Bookmarks = int(n)

    return stats, nil
}

func (s *GormStore) UpdateProfile(ctx context.Context, id, name, bio string, categories model.StringList) (*model.Profile, error) {
    p, err := s.GetProfile(ctx, id)
    if err != nil {
        return nil, err
    }
    p.Name = name
    p.Bio = bio
    if categories != nil {
        p.Categories = categories
    }
    p.UpdatedAt = s.now()
    if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
        return nil, err
    }
    s.publish(ctx, TableProfiles, EventUpdate, *p)
    return p, nil
}

func (s *GormStore) SetAvatar(ctx context.Context, id, url string) error {
    res := s.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).
        Updates(map[string]any{"avatar": url, "updated_at": s.now()})
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrNotFound
    }
    if p, err := s.GetProfile(ctx, id); err == nil {
        s.publish(ctx, TableProfiles, EventUpdate, *p)
    }
    return nil
}

func snippet(s string) string {
    r := []rune(s)
    if len(r) <= 40 {
        return s
    }
    return fmt.Sprintf("%s…", string(r[:40]))
}
