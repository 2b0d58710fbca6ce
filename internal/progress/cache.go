package progress

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/pot-code/coursesync/internal/infrastructure/uuid"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix    = "progress:"
	versionKeySuffix  = ":version"
	versionTokenBytes = 16
)

// cacheEntry lookup stored together with the version it was fetched under
type cacheEntry struct {
	Version string `json:"version"`
	Lookup  Lookup `json:"lookup"`
}

// KVCache stores lookups as JSON in the key-value store.
//
// every failure degrades to a cache miss, the repository stays the source of truth
type KVCache struct {
	kv       driver.KeyValueDB
	ttl      time.Duration
	versions uuid.Generator
	logger   *zap.Logger
}

var _ Cache = &KVCache{}

// NewKVCache create a KVCache, ttl <= 0 disables expiration
func NewKVCache(kv driver.KeyValueDB, ttl time.Duration, logger *zap.Logger) *KVCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVCache{
		kv:       kv,
		ttl:      ttl,
		versions: uuid.NewNanoIDGenerator(versionTokenBytes),
		logger:   logger,
	}
}

func cacheKey(userID, courseID string) string {
	return cacheKeyPrefix + userID + ":" + courseID
}

func versionKey(userID, courseID string) string {
	return cacheKey(userID, courseID) + versionKeySuffix
}

// Version an entry that was never invalidated has the empty version
func (kc *KVCache) Version(userID, courseID string) (string, bool) {
	key := versionKey(userID, courseID)
	v, err := kc.kv.Get(key)
	switch {
	case err == driver.ErrKeyNotFound:
		return "", true
	case err != nil:
		kc.logger.Warn("Failed to read progress cache version", zap.String("kv.key", key), zap.Error(err))
		return "", false
	}
	return v, true
}

func (kc *KVCache) Get(userID, courseID string) (Lookup, bool) {
	key := cacheKey(userID, courseID)
	raw, err := kc.kv.Get(key)
	if err != nil {
		if err != driver.ErrKeyNotFound {
			kc.logger.Warn("Failed to read progress cache", zap.String("kv.key", key), zap.Error(err))
		}
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Lookup == nil {
		kc.logger.Warn("Dropping malformed progress cache entry", zap.String("kv.key", key), zap.Error(err))
		kc.drop(key)
		return nil, false
	}
	current, ok := kc.Version(userID, courseID)
	if !ok || current != entry.Version {
		return nil, false
	}
	return entry.Lookup, true
}

func (kc *KVCache) Set(userID, courseID, version string, lookup Lookup) {
	key := cacheKey(userID, courseID)
	raw, err := json.Marshal(cacheEntry{Version: version, Lookup: lookup})
	if err != nil {
		kc.logger.Warn("Failed to encode progress lookup", zap.String("kv.key", key), zap.Error(err))
		return
	}
	if err := kc.kv.SetEX(key, string(raw), kc.ttl); err != nil {
		kc.logger.Warn("Failed to write progress cache", zap.String("kv.key", key), zap.Error(err))
	}
}

// Invalidate move to a new version before dropping the entry, the version key never expires
func (kc *KVCache) Invalidate(userID, courseID string) {
	vkey := versionKey(userID, courseID)
	if err := kc.kv.SetEX(vkey, kc.nextVersion(), 0); err != nil {
		kc.logger.Warn("Failed to bump progress cache version", zap.String("kv.key", vkey), zap.Error(err))
	}
	kc.drop(cacheKey(userID, courseID))
}

func (kc *KVCache) nextVersion() string {
	v, err := kc.versions.Generate()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return v
}

func (kc *KVCache) drop(key string) {
	if err := kc.kv.Del(key); err != nil {
		kc.logger.Warn("Failed to invalidate progress cache", zap.String("kv.key", key), zap.Error(err))
	}
}

// NopCache never hits
type NopCache struct{}

func (NopCache) Get(string, string) (Lookup, bool)     { return nil, false }
func (NopCache) Version(string, string) (string, bool) { return "", true }
func (NopCache) Set(string, string, string, Lookup)    {}
func (NopCache) Invalidate(string, string)             {}
