//go:build integration

// Package containers starts the Postgres, Redis and Kafka backends that the
// integration suites run against. Each backend is started at most once per
// test binary and shared between suites; Ryuk reaps them on exit.
package containers

import (
	"sync"
	"testing"
)

type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
	kafka    *KafkaContainer
}

var shared = &Manager{}

func GetManager() *Manager { return shared }

// lazy starts the fixture on first use under the manager lock.
func lazy[T any](m *Manager, slot **T, start func(*testing.T) *T, t *testing.T) *T {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if *slot == nil {
		*slot = start(t)
	}
	return *slot
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return lazy(m, &m.postgres, NewPostgresContainer, t)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return lazy(m, &m.redis, NewRedisContainer, t)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return lazy(m, &m.kafka, NewKafkaContainer, t)
}
