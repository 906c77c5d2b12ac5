package config

import (
	"errors"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

var _ Defaults = (*CacheConfig)(nil)
var _ Validator = (*CacheConfig)(nil)

type CacheMode string

const (
	CacheModeMemory CacheMode = "memory"
	CacheModeRedis  CacheMode = "redis"
	CacheModeNone   CacheMode = "none"
)

type CacheConfig struct {
	Mode    CacheMode   `mapstructure:"mode"`
	Options interface{} `mapstructure:"options"`
}

func (c CacheConfig) Defaults() map[string]any {
	return map[string]any{
		"mode":    "memory",
		"options": MemoryConfig{},
	}
}

func (c CacheConfig) Validate() error {
	switch c.Mode {
	case CacheModeRedis:
	case CacheModeMemory:
	case CacheModeNone:
	case CacheMode(""):
	default:
		return errors.New("core.db.cache.mode must be one of: memory, redis, none")
	}

	return nil
}

type MemoryConfig struct {
}

func cacheConfigHook(cm *ManagerDefault) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		// Operates on the options field within the CacheConfig.
		if f.Kind() != reflect.Map || t != reflect.TypeOf(&CacheConfig{}) {
			return data, nil
		}

		var cacheConfig CacheConfig
		if err := mapstructure.Decode(data, &cacheConfig); err != nil {
			return nil, err
		}

		switch cacheConfig.Mode {
		case CacheModeRedis:
			if cm.Config() != nil && cm.Config().Core.ClusterEnabled() {
				cacheConfig.Options = cm.Config().Core.Clustered.Redis
				return &cacheConfig, nil
			}

			var redisOptions RedisConfig
			if opts, ok := cacheConfig.Options.(map[string]interface{}); ok && opts != nil {
				if err := mapstructure.Decode(opts, &redisOptions); err != nil {
					return nil, err
				}
				cacheConfig.Options = &redisOptions
			}
		case CacheModeMemory:
			cacheConfig.Options = MemoryConfig{}
		default:
			cacheConfig.Options = nil
			cacheConfig.Mode = CacheModeNone
		}

		return &cacheConfig, nil
	}
}
