package model

import "time"

// Profile 用户资料行；UID 为对外展示的短数字号，不可变
type Profile struct {
    ID         string     `gorm:"primaryKey;type:varchar(36)"`
    UID        string     `gorm:"type:varchar(12);uniqueIndex;not null"`
    Name       string     `gorm:"type:varchar(64)"`
    Bio        string     `gorm:"type:varchar(255)"`
    Avatar     string     `gorm:"type:varchar(255)"`
    Categories StringList `gorm:"type:text"` // 最多 3 个，选择端约束
    CreatedAt  time.Time
    UpdatedAt  time.Time
}

func (Profile) TableName() string { return "profiles" }

// Snapshot 资料的作者快照形式
func (p Profile) Snapshot() AuthorSnapshot {
    return AuthorSnapshot{Name: p.Name, Avatar: p.Avatar}
}

// ProfileStats 资料页聚合统计；每次拉取重新计数，不做反范式存储
type ProfileStats struct {
    StudyDays     int // 去重日历日
    Notes         int
    LikesReceived int
    Friends       int
    Bookmarks     int
}

// ProfileView 资料 + 派生统计
type ProfileView struct {
    Profile
    Stats ProfileStats
}
