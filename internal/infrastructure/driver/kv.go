package driver

import (
	"errors"
	"time"
)

// ErrKeyNotFound returned by Get when the key does not exist
var ErrKeyNotFound = errors.New("key not found")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	SetEX(key string, value string, expiration time.Duration) error
	Get(key string) (string, error)
	Exists(key string) (bool, error)
	Del(keys ...string) error
	Ping() error
}
