package model

import "time"

// NotificationType 通知类型
type NotificationType string

const (
    NotifyLike          NotificationType = "LIKE"
    NotifyComment       NotificationType = "COMMENT"
    NotifyBookmark      NotificationType = "BOOKMARK"
    NotifyShare         NotificationType = "SHARE"
    NotifyStudyReminder NotificationType = "STUDY_REMINDER"
    NotifyFriendRequest NotificationType = "FRIEND_REQUEST"
    NotifyFriendAccept  NotificationType = "FRIEND_ACCEPT"
)

// Notification 通知行；由其他写操作在服务端侧生
type Notification struct {
    ID            string           `gorm:"primaryKey;type:varchar(36)"`
    RecipientID   string           `gorm:"type:varchar(36);index:idx_notification_recipient;not null"`
    SenderID      string           `gorm:"type:varchar(36);not null"`
    Type          NotificationType `gorm:"type:varchar(24);not null"`
    Content       string           `gorm:"type:text"`
    TargetContent string           `gorm:"type:text"` // 被赞/被评内容摘要
    RelatedID     string           `gorm:"type:varchar(36)"`  // 帖子或好友申请 ID
    IsRead        bool             `gorm:"index"`
    CreatedAt     time.Time        `gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationView 带发送者快照的通知；FRIEND_REQUEST 额外镜像申请状态
type NotificationView struct {
    Notification
    Sender        AuthorSnapshot
    RequestStatus FriendshipStatus // 仅 FRIEND_REQUEST 有值
}
