package projection

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/d60-Lab/studycircle/internal/model"
)

func post(id string, tags ...string) model.PostView {
    return model.PostView{Post: model.Post{ID: id, Tags: model.StringList(tags)}}
}

func TestFeedByInterests(t *testing.T) {
    posts := []model.PostView{
        post("a", "考研", "英语"),
        post("b", "成长"),
        post("c", "英语"),
    }

    // 兴趣为空等于不过滤
    assert.Len(t, FeedByInterests(posts, nil), 3)

    got := FeedByInterests(posts, []string{"英语"})
    assert.Len(t, got, 2)
    assert.Equal(t, "a", got[0].ID)
    assert.Equal(t, "c", got[1].ID)

    assert.Empty(t, FeedByInterests(posts, []string{"编程"}))
    // 原切片不被改动
    assert.Len(t, posts, 3)
}

func friend(name string, studyDays int, checked bool) model.FriendView {
    return model.FriendView{
        Profile:        model.Profile{ID: "id-" + name, Name: name},
        StudyDaysMonth: studyDays,
        CheckedToday:   checked,
    }
}

func TestFriendsByName(t *testing.T) {
    friends := []model.FriendView{
        friend("Alice", 0, false),
        friend("小明", 0, false),
        friend("alina", 0, false),
    }

    assert.Len(t, FriendsByName(friends, ""), 3)
    assert.Len(t, FriendsByName(friends, "  "), 3)

    got := FriendsByName(friends, "ALI")
    assert.Len(t, got, 2)

    got = FriendsByName(friends, "小明")
    assert.Len(t, got, 1)
    assert.Equal(t, "小明", got[0].Profile.Name)
}

func TestFriendsByCheckInOrdering(t *testing.T) {
    friends := []model.FriendView{
        friend("a", 10, false),
        friend("b", 2, true),
        friend("c", 20, false),
        friend("d", 8, true),
    }

    got := FriendsByCheckIn(friends)
    names := make([]string, len(got))
    for i, f := range got {
        names[i] = f.Profile.Name
    }
    // 已打卡在前，组内按本月天数降序
    assert.Equal(t, []string{"d", "b", "c", "a"}, names)
    // 输入不被原地重排
    assert.Equal(t, "a", friends[0].Profile.Name)
}

func TestCandidatesAnnotatesRelations(t *testing.T) {
    profiles := []model.Profile{
        {ID: "me", Name: "自己"},
        {ID: "u1", Name: "甲"},
        {ID: "u2", Name: "乙"},
        {ID: "u3", Name: "丙"},
    }
    existing := []model.Friendship{
        {InitiatorID: "me", RecipientID: "u1", Status: model.FriendshipAccepted},
        {InitiatorID: "u2", RecipientID: "me", Status: model.FriendshipPending},
        {InitiatorID: "u3", RecipientID: "u1", Status: model.FriendshipAccepted}, // 与本人无关
    }

    got := Candidates(profiles, "me", existing)
    assert.Len(t, got, 3)
    byID := map[string]model.FriendshipStatus{}
    for _, c := range got {
        byID[c.Profile.ID] = c.Relation
    }
    assert.Equal(t, model.FriendshipAccepted, byID["u1"])
    assert.Equal(t, model.FriendshipPending, byID["u2"])
    assert.Equal(t, model.FriendshipStatus(""), byID["u3"])

    rest := NonFriends(got)
    assert.Len(t, rest, 2)
    for _, c := range rest {
        assert.NotEqual(t, model.FriendshipAccepted, c.Relation)
    }
}
