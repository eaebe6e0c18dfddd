package service

import (
    "context"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/studycircle/internal/model"
)

func TestMeCachesViewWithStats(t *testing.T) {
    env := newTestEnv(t, "u1")
    ctx := context.Background()

    _, err := env.notes.Create(ctx, NoteInput{Title: "打卡", Date: "2025-06-14"})
    require.NoError(t, err)
    _, err = env.notes.Create(ctx, NoteInput{Title: "打卡", Date: "2025-06-15"})
    require.NoError(t, err)

    view, err := env.profiles.Me(ctx)
    require.NoError(t, err)
    assert.Equal(t, 2, view.Stats.StudyDays)
    assert.Equal(t, 2, view.Stats.Notes)

    cached, ok := env.profiles.CachedMe()
    require.True(t, ok)
    assert.Equal(t, view.Stats, cached.Stats)
}

func TestProfileUpdateRollback(t *testing.T) {
    env := newTestEnv(t, "u1")
    ctx := context.Background()

    _, err := env.profiles.Me(ctx)
    require.NoError(t, err)

    env.store.failUpdateProfile = errRemoteDown
    _, err = env.profiles.Update(ctx, "改名失败", "bio", []string{"考研"})
    require.Error(t, err)

    cached, ok := env.profiles.CachedMe()
    require.True(t, ok)
    // 失败后本地视图还原
    assert.Equal(t, "user-u1", cached.Name)
    assert.Empty(t, cached.Categories)

    env.store.failUpdateProfile = nil
    _, err = env.profiles.Update(ctx, "新名字", "新简介", []string{"考研", "英语"})
    require.NoError(t, err)
    cached, _ = env.profiles.CachedMe()
    assert.Equal(t, "新名字", cached.Name)
    assert.Equal(t, model.StringList{"考研", "英语"}, cached.Categories)
    assert.Equal(t, []string{"考研", "英语"}, env.profiles.Interests())
}

func TestUploadAvatarSetsProfile(t *testing.T) {
    env := newTestEnv(t, "u1")
    ctx := context.Background()
    _, err := env.profiles.Me(ctx)
    require.NoError(t, err)

    url, err := env.profiles.UploadAvatar(ctx, "me.png", strings.NewReader("png-bytes"), "image/png")
    require.NoError(t, err)
    require.NotEmpty(t, url)

    cached, _ := env.profiles.CachedMe()
    assert.Equal(t, url, cached.Avatar)

    p, err := env.store.GetProfile(ctx, "u1")
    require.NoError(t, err)
    assert.Equal(t, url, p.Avatar)

    data, ok := env.blob.Get(strings.TrimPrefix(url, "mem://"))
    require.True(t, ok)
    assert.Equal(t, "png-bytes", string(data))
}

func TestGetOtherUserStats(t *testing.T) {
    env := newTestEnv(t, "u1")
    env.addUser("u2", "对方")
    ctx := context.Background()

    post := env.seedPost("u2", "对方的帖子")
    require.NoError(t, env.store.SetReaction(ctx, post.ID, "u1", model.ReactionLike, true))

    view, err := env.profiles.Get(ctx, "u2")
    require.NoError(t, err)
    assert.Equal(t, "对方", view.Name)
    assert.Equal(t, 1, view.Stats.LikesReceived)
}
