package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/config"
)

// Client Redis 客户端封装
// 当前用于签到验证码快速校验与接口限流；连接失败时上层降级运行
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 签到会话密钥缓存 ──
// 首次签到高峰集中在开启后几十秒内，密钥缓存让验证码比对不落库。
// 数据库中的 secret 始终是权威数据，缓存未命中时回源。

const sessionSecretPrefix = "session:secret:"

// CacheSessionSecret 缓存会话密钥，TTL 与签到窗口一致
func (c *Client) CacheSessionSecret(ctx context.Context, sessionID, secret string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, sessionSecretPrefix+sessionID, secret, ttl).Err()
}

// GetSessionSecret 读取缓存的会话密钥；未命中返回空串
func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	val, err := c.rdb.Get(ctx, sessionSecretPrefix+sessionID).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// DropSessionSecret 会话关闭时清除缓存
func (c *Client) DropSessionSecret(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, sessionSecretPrefix+sessionID).Err()
}

// ── 限流 ──

// CheckRateLimit 固定窗口限流：窗口内第 limit+1 次请求被拒绝
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		// 新窗口，设置过期时间
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
