// Package keyValue is a TTL key/value cache: a plain map in self-contained
// mode, redis otherwise.
package keyValue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type localValue struct {
	value   string
	expires time.Time
}

type KV struct {
	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	selfContained bool
	ctx           context.Context

	mutex   sync.RWMutex
	hashmap map[string]localValue
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, selfContained bool) *KV {
	kv := &KV{
		sugar:         sugar,
		redisClient:   redisClient,
		selfContained: selfContained,
		ctx:           context.Background(),
		hashmap:       make(map[string]localValue),
	}

	if selfContained {
		go kv.sweepExpiredKeys()
	}

	return kv
}

func (kv *KV) sweepExpiredKeys() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		kv.mutex.Lock()
		for key, v := range kv.hashmap {
			if v.expires.Before(time.Now()) {
				delete(kv.hashmap, key)
			}
		}
		kv.mutex.Unlock()
	}
}

// Get returns the empty string for a missing or expired key, never an error
// for absence.
func (kv *KV) Get(key string) (string, error) {
	if kv.selfContained {
		kv.mutex.RLock()
		defer kv.mutex.RUnlock()

		v := kv.hashmap[key]
		if !v.expires.IsZero() && v.expires.Before(time.Now()) {
			return "", nil
		}
		return v.value, nil
	}

	value, err := kv.redisClient.Get(kv.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func (kv *KV) GetDel(key string) (string, error) {
	if kv.selfContained {
		kv.mutex.Lock()
		defer kv.mutex.Unlock()

		value := kv.hashmap[key].value
		delete(kv.hashmap, key)

		return value, nil
	}

	value, err := kv.redisClient.GetDel(kv.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func (kv *KV) Set(key string, value string, expires time.Duration) error {
	if kv.selfContained {
		kv.mutex.Lock()
		defer kv.mutex.Unlock()

		kv.hashmap[key] = localValue{value, time.Now().Add(expires)}
		return nil
	}

	_, err := kv.redisClient.Set(kv.ctx, key, value, expires).Result()
	return err
}
