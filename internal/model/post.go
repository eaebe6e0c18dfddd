package model

import "time"

// DefaultTag 发布未选标签时的兜底标签
const DefaultTag = "成长"

// Post 动态行（计数与作者快照由网关读取时聚合，不落在行上）
type Post struct {
    ID           string     `gorm:"primaryKey;type:varchar(36)"`
    OwnerID      string     `gorm:"type:varchar(36);index:idx_post_owner;not null"`
    Content      string     `gorm:"type:text"`
    Images       StringList `gorm:"type:text"` // 0~3 张图片 URL，有序
    Tags         StringList `gorm:"type:text"` // 至少一个
    CreatedAt    time.Time  `gorm:"index"`
    LastEditedAt time.Time
}

func (Post) TableName() string { return "posts" }

// AuthorSnapshot 读取时反范式化的作者信息，不随资料修改回填
type AuthorSnapshot struct {
    Name   string
    Avatar string
}

// PostView 客户端缓存与界面使用的完整动态表示
type PostView struct {
    Post
    Author       AuthorSnapshot
    LikeCount    int
    CommentCount int
    IsLiked      bool // 当前用户是否已点赞
    IsBookmarked bool
}
