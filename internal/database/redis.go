package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/config"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const roleKeyPrefix = "aquatrack:role:"

// Redis representa la conexión a Redis
type Redis struct {
	*redis.Client
}

// ConnectRedis establece la conexión a Redis
func ConnectRedis(cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	// Verificar conexión
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}

	return &Redis{client}, nil
}

// NewRedis envuelve un cliente existente
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client}
}

// Close cierra la conexión a Redis
func (r *Redis) Close() error {
	return r.Client.Close()
}

// HealthCheck verifica la salud de Redis
func (r *Redis) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.Ping(ctx).Err()
}

// RoleCache guarda el rol resuelto de cada usuario con un TTL corto
type RoleCache struct {
	redis  *Redis
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRoleCache crea una nueva caché de roles
func NewRoleCache(r *Redis, ttl time.Duration, logger *logrus.Logger) *RoleCache {
	return &RoleCache{
		redis:  r,
		ttl:    ttl,
		logger: logger,
	}
}

// Get retorna el rol en caché; ok es false si no hay entrada
func (c *RoleCache) Get(ctx context.Context, userID uuid.UUID) (models.Role, bool, error) {
	value, err := c.redis.Client.Get(ctx, roleKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.RoleNone, false, nil
		}
		return models.RoleNone, false, fmt.Errorf("error reading cached role: %w", err)
	}
	return models.Role(value), true, nil
}

// Set guarda el rol del usuario
func (c *RoleCache) Set(ctx context.Context, userID uuid.UUID, role models.Role) error {
	if err := c.redis.Client.Set(ctx, roleKey(userID), string(role), c.ttl).Err(); err != nil {
		return fmt.Errorf("error caching role: %w", err)
	}
	return nil
}

// Invalidate elimina el rol en caché tras un cambio de rol o un borrado
func (c *RoleCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.redis.Client.Del(ctx, roleKey(userID)).Err(); err != nil {
		return fmt.Errorf("error invalidating cached role: %w", err)
	}

	c.logger.WithField("user_id", userID).Debug("Cached role invalidated")
	return nil
}

func roleKey(userID uuid.UUID) string {
	return roleKeyPrefix + userID.String()
}
