package gateway

import (
    "context"
    "io"
    "sync"
)

// MemBlob 内存对象存储（测试用），URL 形如 mem://<path>
type MemBlob struct {
    mu      sync.Mutex
    objects map[string][]byte
}

func NewMemBlob() *MemBlob {
    return &MemBlob{objects: make(map[string][]byte)}
}

func (b *MemBlob) Upload(_ context.Context, path string, r io.Reader, _ string) (string, error) {
    data, err := io.ReadAll(r)
    if err != nil {
        return "", err
    }
    b.mu.Lock()
    b.objects[path] = data
    b.mu.Unlock()
    return "mem://" + path, nil
}

// Get 取回对象内容（断言用）
func (b *MemBlob) Get(path string) ([]byte, bool) {
    b.mu.Lock()
    defer b.mu.Unlock()
    data, ok := b.objects[path]
    return data, ok
}
