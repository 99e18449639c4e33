// Package cache реализует redis-хранилище сессионных флагов.
//
// Флаги subscriber/is_trial — презентационный кеш для слоя рендеринга.
// Они перезаписываются middleware на каждом аутентифицированном
// запросе и никогда не участвуют в решениях о доступе: уровень всегда
// вычисляется заново tier-резолвером.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorhub-kr/entitlement-engine/internal/config"
)

// SessionFlags — флаги, которые читает слой рендеринга.
type SessionFlags struct {
	Tier       string `json:"tier"`
	Subscriber bool   `json:"subscriber"`
	IsTrial    bool   `json:"is_trial"`
}

// flagsTTL страхует от осиротевших ключей после логаута без Invalidate.
const flagsTTL = 24 * time.Hour

// Cache инкапсулирует клиент redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

func flagsKey(sessionToken string) string {
	return "sessionflags:" + sessionToken
}

// SetSessionFlags перезаписывает флаги сессии.
func (c *Cache) SetSessionFlags(ctx context.Context, sessionToken string, flags SessionFlags) error {
	const op = "cache.SetSessionFlags"
	jsonData, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, flagsKey(sessionToken), jsonData, flagsTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSessionFlags возвращает флаги сессии, если они есть.
func (c *Cache) GetSessionFlags(ctx context.Context, sessionToken string) (SessionFlags, bool, error) {
	const op = "cache.GetSessionFlags"
	var flags SessionFlags
	val, err := c.Db.Get(ctx, flagsKey(sessionToken)).Result()
	if err == redis.Nil {
		return flags, false, nil
	}
	if err != nil {
		return flags, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(val), &flags); err != nil {
		return flags, false, fmt.Errorf("%s: %w", op, err)
	}
	return flags, true, nil
}

// DropSessionFlags удаляет флаги сессии (логаут, протухший токен).
func (c *Cache) DropSessionFlags(ctx context.Context, sessionToken string) error {
	const op = "cache.DropSessionFlags"
	if err := c.Db.Del(ctx, flagsKey(sessionToken)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
