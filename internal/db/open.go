package db

import (
	"github.com/jmehdipour/wctp-gateway/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func sqlOpts(c config.DatabaseConfig) SQLOpts {
	return SQLOpts{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	}
}

// OpenStore connects the relational store described by cfg.Database.
func OpenStore(cfg config.Config) (*sqlx.DB, error) {
	return NewSQLConnection(cfg.Database.Driver, cfg.Database.DSN, sqlOpts(cfg.Database))
}

// OpenAudit connects the ClickHouse audit store.
func OpenAudit(cfg config.Config) (*sqlx.DB, error) {
	return NewClickHouseConnection(cfg.ClickHouse.DSN, sqlOpts(cfg.ClickHouse))
}

func OpenRedis(cfg config.Config) (*redis.Client, error) {
	return NewRedisClient(RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
}
