package model

import "time"

// DateLayout 笔记归属日的纯日历格式，禁止经时区换算
const DateLayout = "2006-01-02"

// Note 学习笔记行；Date 为归属日历日，与创建时刻无关
type Note struct {
    ID           string    `gorm:"primaryKey;type:varchar(36)"`
    OwnerID      string    `gorm:"type:varchar(36);index:idx_note_owner;not null"`
    Title        string    `gorm:"type:varchar(255)"`
    Content      string    `gorm:"type:text"`
    Category     string    `gorm:"type:varchar(64)"`
    Date         string    `gorm:"type:varchar(10);index:idx_note_owner_date;not null"` // YYYY-MM-DD
    CreatedAt    time.Time
    LastEditedAt time.Time
}

func (Note) TableName() string { return "notes" }
