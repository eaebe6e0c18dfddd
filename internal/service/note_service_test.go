package service

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNoteMonthAndStudyDays(t *testing.T) {
    env := newTestEnv(t, "u1")
    ctx := context.Background()

    for _, in := range []NoteInput{
        {Title: "晨读", Date: "2025-06-01"},
        {Title: "晚课", Date: "2025-06-01"}, // 同日第二篇，不重复计天
        {Title: "刷题", Date: "2025-06-03"},
        {Title: "上月", Date: "2025-05-31"},
    } {
        _, err := env.notes.Create(ctx, in)
        require.NoError(t, err)
    }

    notes, err := env.notes.Month(ctx, "2025-06")
    require.NoError(t, err)
    assert.Len(t, notes, 3)

    days, err := env.notes.StudyDays(ctx, "2025-06")
    require.NoError(t, err)
    assert.Len(t, days, 2)
    assert.True(t, days["2025-06-01"])
    assert.True(t, days["2025-06-03"])

    byDay, err := env.notes.Day(ctx, "2025-06-01")
    require.NoError(t, err)
    assert.Len(t, byDay, 2)
}

func TestNoteInputValidation(t *testing.T) {
    env := newTestEnv(t, "u1")
    ctx := context.Background()

    _, err := env.notes.Create(ctx, NoteInput{Title: "", Date: "2025-06-01"})
    assert.Error(t, err)

    // 日期必须是纯日历串
    _, err = env.notes.Create(ctx, NoteInput{Title: "x", Date: "2025/06/01"})
    assert.Error(t, err)
    _, err = env.notes.Create(ctx, NoteInput{Title: "x", Date: "2025-06-01T10:00:00Z"})
    assert.Error(t, err)
}

func TestNoteUpdateAndDelete(t *testing.T) {
    env := newTestEnv(t, "u1")
    ctx := context.Background()

    n, err := env.notes.Create(ctx, NoteInput{Title: "旧题", Content: "c", Date: "2025-06-02"})
    require.NoError(t, err)

    updated, err := env.notes.Update(ctx, n.ID, NoteInput{Title: "新题", Content: "c2", Date: "2025-06-05"})
    require.NoError(t, err)
    assert.Equal(t, "新题", updated.Title)
    assert.Equal(t, "2025-06-05", updated.Date)

    // 归属日改了，天数集合跟着走
    days, err := env.notes.StudyDays(ctx, "2025-06")
    require.NoError(t, err)
    assert.False(t, days["2025-06-02"])
    assert.True(t, days["2025-06-05"])

    require.NoError(t, env.notes.Delete(ctx, n.ID))
    notes, err := env.notes.Month(ctx, "2025-06")
    require.NoError(t, err)
    assert.Empty(t, notes)
}
