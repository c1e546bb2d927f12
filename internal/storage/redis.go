package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/commercegate/heartland-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	paymentKeyPrefix = "payment:"
	methodKeyPrefix  = "payment_method:"
)

// RedisStore persists Payments and PaymentMethods as JSON values in Redis.
// It implements domain.PaymentStore and domain.PaymentMethodStore.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

// SavePayment writes the payment as a JSON value, minting an ID on first
// save.
func (s *RedisStore) SavePayment(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return s.set(ctx, paymentKeyPrefix+p.ID, p)
}

// GetPayment loads a payment by ID.
func (s *RedisStore) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	if err := s.get(ctx, paymentKeyPrefix+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePaymentMethod writes the method as a JSON value, minting an ID on
// first save.
func (s *RedisStore) SavePaymentMethod(ctx context.Context, m *domain.PaymentMethod) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return s.set(ctx, methodKeyPrefix+m.ID, m)
}

// GetPaymentMethod loads a method by ID.
func (s *RedisStore) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	if err := s.get(ctx, methodKeyPrefix+id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeletePaymentMethod removes a stored method.
func (s *RedisStore) DeletePaymentMethod(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, methodKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *RedisStore) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to Redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, out interface{}) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s from Redis: %w", key, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}
