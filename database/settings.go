package database

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"motorent/config"
)

// Cache is the optional Redis client used for the site settings read-through
// cache. When nil (no REDIS_ADDR configured, or the ping failed at startup)
// every read falls through to the database.
var Cache *redis.Client

const settingsCacheKey = "motorent:site_settings"
const settingsCacheTTL = 5 * time.Minute

// InitCache connects to Redis if an address is configured. A connection
// failure is not fatal: the app degrades to uncached settings reads.
func InitCache() {
	if config.AppConfig.RedisAddr == "" {
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, settings cache disabled: %v", err)
		return
	}

	Cache = client
	log.Println("Redis connection successful.")
}

// GetSiteSettings returns the global settings row, served from the cache
// when possible.
func GetSiteSettings(ctx context.Context) (*SiteSettings, error) {
	if Cache != nil {
		raw, err := Cache.Get(ctx, settingsCacheKey).Bytes()
		if err == nil {
			var cached SiteSettings
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			log.Printf("Settings cache read error: %v", err)
		}
	}

	var settings SiteSettings
	if err := DB.First(&settings, SettingsID).Error; err != nil {
		return nil, err
	}

	if Cache != nil {
		if raw, err := json.Marshal(&settings); err == nil {
			if err := Cache.Set(ctx, settingsCacheKey, raw, settingsCacheTTL).Err(); err != nil {
				log.Printf("Settings cache write error: %v", err)
			}
		}
	}

	return &settings, nil
}

// InvalidateSettingsCache drops the cached settings entry. Called after the
// admin upserts the settings row.
func InvalidateSettingsCache(ctx context.Context) {
	if Cache == nil {
		return
	}
	if err := Cache.Del(ctx, settingsCacheKey).Err(); err != nil {
		log.Printf("Settings cache invalidation error: %v", err)
	}
}
