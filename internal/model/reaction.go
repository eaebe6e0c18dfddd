package model

import "time"

// ReactionKind 互动类型
type ReactionKind string

const (
    ReactionLike     ReactionKind = "like"
    ReactionBookmark ReactionKind = "bookmark"
)

// Reaction 点赞/收藏行，(post, user, kind) 唯一
type Reaction struct {
    ID     string       `gorm:"primaryKey;type:varchar(36)"`
    PostID string       `gorm:"type:varchar(36);index:idx_reaction_post;index:idx_reaction_tuple,unique;not null"`
    UserID string       `gorm:"type:varchar(36);index:idx_reaction_tuple,unique;not null"`
    Kind   ReactionKind `gorm:"type:varchar(16);index:idx_reaction_tuple,unique;not null"`
    // idx_reaction_tuple = (post_id, user_id, kind)，置反幂等
    CreatedAt time.Time
}

func (Reaction) TableName() string { return "reactions" }
