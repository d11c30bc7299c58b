package db

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient_DisabledWithoutAddr(t *testing.T) {
	rdb, err := NewRedisClient(RedisOpts{})
	if err != nil {
		t.Fatalf("NewRedisClient() error: %v", err)
	}
	if rdb != nil {
		t.Fatalf("expected nil client when addr is empty")
	}
}

func TestNewRedisClient_Pings(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(RedisOpts{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisClient() error: %v", err)
	}
	defer rdb.Close()
}

func TestNewRedisClient_UnreachableFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisClient(RedisOpts{Addr: addr}); err == nil {
		t.Fatalf("expected ping error for closed server")
	}
}
