package model

import "time"

// Comment 评论行；帖内只增不改，按创建时间升序
type Comment struct {
    ID        string    `gorm:"primaryKey;type:varchar(36)"`
    PostID    string    `gorm:"type:varchar(36);index:idx_comment_post;not null"`
    AuthorID  string    `gorm:"type:varchar(36);not null"`
    Content   string    `gorm:"type:text"`
    CreatedAt time.Time `gorm:"index:idx_comment_post_time"`
}

func (Comment) TableName() string { return "comments" }

// CommentView 带作者快照的评论表示
type CommentView struct {
    Comment
    Author AuthorSnapshot
}
