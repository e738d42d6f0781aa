package redisstorage

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	defaultKeyPrefix = "swap:"

	inFlightKey  = "inflight:"
	pausedKey    = "paused"
	resolversKey = "resolvers"
	coinPriceKey = "coin_price"
)

// RedisStorage keeps the security state shared by every replica of the service
type RedisStorage struct {
	client RedisClient
	prefix string
}

// NewRedisStorage connects to redis and checks the connection
func NewRedisStorage(cfg Config) (*RedisStorage, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis address is empty")
	}
	var client RedisClient
	if cfg.IsClusterMode {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addrs[0],
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	res, err := client.Ping(context.Background()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to redis server")
	}
	log.Debugf("redis health check done, result: %v", res)
	return NewRedisStorageWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client RedisClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStorage{client: client, prefix: prefix}
}

// Close closes the client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// MarkInFlight sets the in flight mark of key for ttl. It reports false when the mark is already set
func (s *RedisStorage) MarkInFlight(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+inFlightKey+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "MarkInFlight redis SetNX error")
	}
	return ok, nil
}

// ClearInFlight removes the in flight mark of key
func (s *RedisStorage) ClearInFlight(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+inFlightKey+key).Err(); err != nil {
		return errors.Wrap(err, "ClearInFlight redis Del error")
	}
	return nil
}

// SetPaused stores the emergency pause flag
func (s *RedisStorage) SetPaused(ctx context.Context, paused bool) error {
	value := "0"
	if paused {
		value = "1"
	}
	if err := s.client.Set(ctx, s.prefix+pausedKey, value, 0).Err(); err != nil {
		return errors.Wrap(err, "SetPaused redis Set error")
	}
	return nil
}

// IsPaused reads the emergency pause flag. A missing flag means not paused
func (s *RedisStorage) IsPaused(ctx context.Context) (bool, error) {
	value, err := s.client.Get(ctx, s.prefix+pausedKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "IsPaused redis Get error")
	}
	return value == "1", nil
}

// AddResolver adds resolver to the whitelist
func (s *RedisStorage) AddResolver(ctx context.Context, resolver common.Address) error {
	if err := s.client.SAdd(ctx, s.prefix+resolversKey, resolver.Hex()).Err(); err != nil {
		return errors.Wrap(err, "AddResolver redis SAdd error")
	}
	return nil
}

// RemoveResolver removes resolver from the whitelist
func (s *RedisStorage) RemoveResolver(ctx context.Context, resolver common.Address) error {
	if err := s.client.SRem(ctx, s.prefix+resolversKey, resolver.Hex()).Err(); err != nil {
		return errors.Wrap(err, "RemoveResolver redis SRem error")
	}
	return nil
}

// Resolvers lists the whitelist sorted by address
func (s *RedisStorage) Resolvers(ctx context.Context) ([]common.Address, error) {
	members, err := s.client.SMembers(ctx, s.prefix+resolversKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "Resolvers redis SMembers error")
	}
	out := make([]common.Address, 0, len(members))
	for _, m := range members {
		if !common.IsHexAddress(m) {
			log.Warnf("ignoring malformed resolver %q in redis", m)
			continue
		}
		out = append(out, common.HexToAddress(m))
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out, nil
}

// SetCoinPrices stores the USD price of the native coin of each chain
func (s *RedisStorage) SetCoinPrices(ctx context.Context, prices map[uint64]decimal.Decimal) error {
	if len(prices) == 0 {
		return nil
	}
	values := make([]interface{}, 0, 2*len(prices)) //nolint:gomnd
	for chainID, price := range prices {
		values = append(values, strconv.FormatUint(chainID, 10), price.String())
	}
	if err := s.client.HSet(ctx, s.prefix+coinPriceKey, values...).Err(); err != nil {
		return errors.Wrap(err, "SetCoinPrices redis HSet error")
	}
	return nil
}

// GetCoinPrices reads every stored price, skipping malformed entries
func (s *RedisStorage) GetCoinPrices(ctx context.Context) (map[uint64]decimal.Decimal, error) {
	entries, err := s.client.HGetAll(ctx, s.prefix+coinPriceKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "GetCoinPrices redis HGetAll error")
	}
	prices := make(map[uint64]decimal.Decimal, len(entries))
	for field, value := range entries {
		chainID, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			log.Warnf("ignoring malformed coin price chain %q in redis", field)
			continue
		}
		price, err := decimal.NewFromString(value)
		if err != nil {
			log.Warnf("ignoring malformed coin price %q of chain %d in redis", value, chainID)
			continue
		}
		prices[chainID] = price
	}
	return prices, nil
}
