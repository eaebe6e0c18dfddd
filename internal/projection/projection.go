package projection

import (
    "strings"

    "github.com/d60-Lab/studycircle/internal/model"
)

// 只读投影：对缓存集合做无副作用的过滤/排序/标注，绝不回写缓存。

// FeedByInterests 只留带有任一兴趣标签的动态；兴趣为空不过滤
func FeedByInterests(posts []model.PostView, interests []string) []model.PostView {
    if len(interests) == 0 {
        return posts
    }
    want := make(map[string]bool, len(interests))
    for _, t := range interests {
        want[t] = true
    }
    out := make([]model.PostView, 0, len(posts))
    for _, p := range posts {
        for _, tag := range p.Tags {
            if want[tag] {
                out = append(out, p)
                break
            }
        }
    }
    return out
}

// FriendsByName 名字子串检索（不区分大小写）
func FriendsByName(friends []model.FriendView, query string) []model.FriendView {
    q := strings.ToLower(strings.TrimSpace(query))
    if q == "" {
        return friends
    }
    out := make([]model.FriendView, 0, len(friends))
    for _, f := range friends {
        if strings.Contains(strings.ToLower(f.Profile.Name), q) {
            out = append(out, f)
        }
    }
    return out
}

// FriendsByCheckIn 今天已打卡的排前面，其余按本月学习天数降序
func FriendsByCheckIn(friends []model.FriendView) []model.FriendView {
    out := append([]model.FriendView{}, friends...)
    // 插入排序，列表规模小
    for i := 1; i < len(out); i++ {
        for j := i; j > 0 && less(out[j], out[j-1]); j-- {
            out[j], out[j-1] = out[j-1], out[j]
        }
    }
    return out
}

func less(a, b model.FriendView) bool {
    if a.CheckedToday != b.CheckedToday {
        return a.CheckedToday
    }
    return a.StudyDaysMonth > b.StudyDaysMonth
}

// Candidate 搜索结果条目：候选资料 + 与当前用户的关系状态（空串表示无关系）
type Candidate struct {
    Profile  model.Profile
    Relation model.FriendshipStatus
}

// Candidates 过滤掉自己，并按既有关系标注搜索结果
func Candidates(profiles []model.Profile, me string, existing []model.Friendship) []Candidate {
    relation := make(map[string]model.FriendshipStatus, len(existing))
    for _, f := range existing {
        if f.Involves(me) {
            relation[f.CounterpartOf(me)] = f.Status
        }
    }
    out := make([]Candidate, 0, len(profiles))
    for _, p := range profiles {
        if p.ID == me {
            continue
        }
        out = append(out, Candidate{Profile: p, Relation: relation[p.ID]})
    }
    return out
}

// NonFriends 只留尚未成为好友的候选
func NonFriends(candidates []Candidate) []Candidate {
    out := make([]Candidate, 0, len(candidates))
    for _, c := range candidates {
        if c.Relation != model.FriendshipAccepted {
            out = append(out, c)
        }
    }
    return out
}
