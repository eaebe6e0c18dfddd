package gateway

import (
    "context"
    "fmt"
    "io"
    "strings"

    "github.com/aliyun/aliyun-oss-go-sdk/oss"

    "github.com/d60-Lab/studycircle/internal/config"
)

// OSSBlob 阿里云 OSS 对象存储实现
type OSSBlob struct {
    bucket  *oss.Bucket
    baseURL string
}

func NewOSSBlob(cfg config.OSSConfig) (*OSSBlob, error) {
    endpoint := cfg.Endpoint
    if endpoint == "" {
        endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", cfg.Region)
    }
    client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
    if err != nil {
        return nil, fmt.Errorf("oss client: %w", err)
    }
    bucket, err := client.Bucket(cfg.Bucket)
    if err != nil {
        return nil, fmt.Errorf("oss bucket %s: %w", cfg.Bucket, err)
    }
    host := strings.TrimPrefix(endpoint, "https://")
    return &OSSBlob{
        bucket:  bucket,
        baseURL: fmt.Sprintf("https://%s.%s", cfg.Bucket, host),
    }, nil
}

func (b *OSSBlob) Upload(_ context.Context, path string, r io.Reader, contentType string) (string, error) {
    opts := []oss.Option{}
    if contentType != "" {
        opts = append(opts, oss.ContentType(contentType))
    }
    if err := b.bucket.PutObject(path, r, opts...); err != nil {
        return "", fmt.Errorf("oss upload %s: %w", path, err)
    }
    return b.baseURL + "/" + path, nil
}
