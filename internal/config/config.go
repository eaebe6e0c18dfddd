package config

import (
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config 客户端同步层运行配置
type Config struct {
    LogLevel  string `mapstructure:"log_level"`
    SentryDSN string `mapstructure:"sentry_dsn"`

    // 本地网关（测试/联调用）
    DBDriver string `mapstructure:"db_driver"` // sqlite | postgres
    DBDSN    string `mapstructure:"db_dsn"`
    RedisAddr string `mapstructure:"redis_addr"`

    // 会话令牌签名密钥
    SessionSecret string `mapstructure:"session_secret"`

    OSS OSSConfig `mapstructure:"oss"`

    Cache CacheConfig `mapstructure:"cache"`

    // 提醒冷却时长
    ReminderCooldown time.Duration `mapstructure:"reminder_cooldown"`
    // 单帖图片上限
    MaxPostImages int `mapstructure:"max_post_images"`
}

// OSSConfig 阿里云 OSS 上传配置
type OSSConfig struct {
    Endpoint  string `mapstructure:"endpoint"`
    Region    string `mapstructure:"region"`
    Bucket    string `mapstructure:"bucket"`
    AccessKey string `mapstructure:"access_key"`
    SecretKey string `mapstructure:"secret_key"`
}

// CacheConfig 新鲜度窗口与后台刷新限速
type CacheConfig struct {
    PostsWindow    time.Duration `mapstructure:"posts_window"`
    FriendsWindow  time.Duration `mapstructure:"friends_window"`
    CommentsWindow time.Duration `mapstructure:"comments_window"`
    // 每秒允许触发的后台刷新次数
    RefreshPerSecond float64 `mapstructure:"refresh_per_second"`
}

// Load 读取配置文件（可缺省）并套用环境变量覆盖，前缀 STUDYCIRCLE_
func Load(path string) (*Config, error) {
    v := viper.New()
    v.SetDefault("log_level", "info")
    v.SetDefault("db_driver", "sqlite")
    v.SetDefault("db_dsn", "file::memory:?cache=shared")
    v.SetDefault("redis_addr", "localhost:6379")
    v.SetDefault("session_secret", "dev-secret")
    v.SetDefault("cache.posts_window", 30*time.Second)
    v.SetDefault("cache.friends_window", 30*time.Second)
    v.SetDefault("cache.comments_window", 5*time.Minute)
    v.SetDefault("cache.refresh_per_second", 8.0)
    v.SetDefault("reminder_cooldown", 24*time.Hour)
    v.SetDefault("max_post_images", 3)

    v.SetEnvPrefix("STUDYCIRCLE")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    if path != "" {
        v.SetConfigFile(path)
        if err := v.ReadInConfig(); err != nil {
            return nil, err
        }
    }

    var cfg Config
    if err := v.Unmarshal(&cfg); err != nil {
        return nil, err
    }
    return &cfg, nil
}

// Default 返回全默认配置（测试常用）
func Default() *Config {
    cfg, _ := Load("")
    return cfg
}
