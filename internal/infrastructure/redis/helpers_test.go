package redis

import (
	"time"

	config "github.com/avatarctic/email-verification-service/configs"
)

func testRedisConfig(host, port string) *config.RedisConfig {
	return &config.RedisConfig{
		Host:        host,
		Port:        port,
		PoolSize:    2,
		DialTimeout: time.Second,
		ReadTimeout: time.Second,
	}
}
