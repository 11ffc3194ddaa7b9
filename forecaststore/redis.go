package forecaststore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	forecaster "github.com/neurolytix/go-forecaster"
)

const keyPrefix = "forecast"

// RedisStore keeps each forecast as a JSON string plus a per-dataset set of methods
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis. A zero ttl keeps forecasts until replaced.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed, %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func forecastKey(datasetID string, method forecaster.Method) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, datasetID, method)
}

func methodsKey(datasetID string) string {
	return fmt.Sprintf("%s:%s:methods", keyPrefix, datasetID)
}

func encode(fc *forecaster.Forecast) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("unable to encode forecast, %w", err)
	}
	return data, nil
}

func decode(data []byte) (*forecaster.Forecast, error) {
	var fc forecaster.Forecast
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("unable to decode forecast, %w", err)
	}
	return &fc, nil
}

func (s *RedisStore) Save(ctx context.Context, datasetID string, fc *forecaster.Forecast) error {
	if err := checkSave(datasetID, fc); err != nil {
		return err
	}
	data, err := encode(fc)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, forecastKey(datasetID, fc.Method), data, s.ttl)
	pipe.SAdd(ctx, methodsKey(datasetID), fc.Method.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store failed, %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, datasetID string, method forecaster.Method) (*forecaster.Forecast, error) {
	data, err := s.client.Get(ctx, forecastKey(datasetID, method)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%s forecast of %q, %w", method, datasetID, ErrForecastNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed, %w", err)
	}
	return decode(data)
}

// List skips methods whose forecast has expired
func (s *RedisStore) List(ctx context.Context, datasetID string) ([]forecaster.Method, error) {
	names, err := s.client.SMembers(ctx, methodsKey(datasetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS failed, %w", err)
	}
	methods := parseMethods(names)
	live := methods[:0]
	for _, m := range methods {
		n, err := s.client.Exists(ctx, forecastKey(datasetID, m)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis EXISTS failed, %w", err)
		}
		if n > 0 {
			live = append(live, m)
		}
	}
	return live, nil
}
