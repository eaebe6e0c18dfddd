package service

import (
    "errors"
    "strings"
    "sync"

    "github.com/oklog/ulid/v2"
)

// 乐观变更引擎：所有用户写操作先改本地缓存、再发远端调用，
// 失败时按快照整体还原。写失败一律以 error 上抛，由界面层决定提示方式。

var (
    ErrNoSession        = errors.New("service: no active session")
    ErrUploadInProgress = errors.New("service: image upload still in progress")
    ErrTooManyImages    = errors.New("service: at most 3 images per post")
    ErrSelfRequest      = errors.New("service: cannot send friend request to self")
    ErrRequestPending   = errors.New("service: friend request already pending")
    ErrAlreadyFriends   = errors.New("service: already friends")
    ErrReminderCooldown = errors.New("service: reminder still cooling down")
    ErrNotCached        = errors.New("service: entity not in local state")
)

// TempIDPrefix 客户端占位 ID 前缀；与服务端 uuid 可明确区分
const TempIDPrefix = "tmp_"

// NewTempID 生成乐观占位 ID
func NewTempID() string {
    return TempIDPrefix + ulid.Make().String()
}

// IsTempID 判断是否为未确认的占位 ID
func IsTempID(id string) bool {
    return strings.HasPrefix(id, TempIDPrefix)
}

// Session 当前登录身份；UserID 为空表示未登录
type Session struct {
    mu     sync.Mutex
    userID string
}

func NewSession(userID string) *Session {
    return &Session{userID: userID}
}

func (s *Session) SetUserID(id string) {
    s.mu.Lock()
    s.userID = id
    s.mu.Unlock()
}

func (s *Session) UserID() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.userID
}

// require 取当前用户 ID，未登录返回 ErrNoSession
func (s *Session) require() (string, error) {
    if id := s.UserID(); id != "" {
        return id, nil
    }
    return "", ErrNoSession
}

// keyedLocks 按实体 ID 串行化写操作，防止快速连点丢更新
type keyedLocks struct {
    mu    sync.Mutex
    locks map[string]*entityLock
}

type entityLock struct {
    mu   sync.Mutex
    refs int
}

func newKeyedLocks() *keyedLocks {
    return &keyedLocks{locks: make(map[string]*entityLock)}
}

// Acquire 锁住指定 ID，返回解锁函数
func (k *keyedLocks) Acquire(id string) func() {
    k.mu.Lock()
    l, ok := k.locks[id]
    if !ok {
        l = &entityLock{}
        k.locks[id] = l
    }
    l.refs++
    k.mu.Unlock()

    l.mu.Lock()
    return func() {
        l.mu.Unlock()
        k.mu.Lock()
        l.refs--
        if l.refs == 0 {
            delete(k.locks, id)
        }
        k.mu.Unlock()
    }
}
