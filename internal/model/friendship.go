package model

import "time"

// FriendshipStatus 好友申请状态
type FriendshipStatus string

const (
    FriendshipPending  FriendshipStatus = "pending"
    FriendshipAccepted FriendshipStatus = "accepted"
    FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship 有向申请行；无序对 (PairLow, PairHigh) 唯一，杜绝重复申请
type Friendship struct {
    ID          string           `gorm:"primaryKey;type:varchar(36)"`
    InitiatorID string           `gorm:"type:varchar(36);index:idx_friendship_initiator;not null"`
    RecipientID string           `gorm:"type:varchar(36);index:idx_friendship_recipient;not null"`
    PairLow     string           `gorm:"type:varchar(36);index:idx_friendship_pair,unique;not null"`
    PairHigh    string           `gorm:"type:varchar(36);index:idx_friendship_pair,unique;not null"`
    Status      FriendshipStatus `gorm:"type:varchar(16);index;not null"`
    CreatedAt   time.Time
    UpdatedAt   time.Time
}

func (Friendship) TableName() string { return "friendships" }

// PairOf 规范化无序对（字典序小者在前）
func PairOf(a, b string) (low, high string) {
    if a < b {
        return a, b
    }
    return b, a
}

// Involves 判断用户是否为关系一方
func (f Friendship) Involves(userID string) bool {
    return f.InitiatorID == userID || f.RecipientID == userID
}

// CounterpartOf 返回关系中另一方的用户 ID
func (f Friendship) CounterpartOf(userID string) string {
    if f.InitiatorID == userID {
        return f.RecipientID
    }
    return f.InitiatorID
}

// FriendView 好友视图：对方资料 + 本月打卡派生统计
type FriendView struct {
    Profile        Profile
    FriendshipID   string
    StudyDaysMonth int  // 本月去重学习天数
    CheckedToday   bool // 今天是否已打卡
    ReminderSentAt time.Time
}

// CanRemind 是否超出提醒冷却期
func (v FriendView) CanRemind(now time.Time, cooldown time.Duration) bool {
    return v.ReminderSentAt.IsZero() || now.Sub(v.ReminderSentAt) >= cooldown
}
