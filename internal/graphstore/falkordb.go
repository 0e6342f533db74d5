// Package graphstore is the knowledge-graph client: FalkorDB (a
// Redis-protocol graph database) queried with Cypher via GRAPH.QUERY,
// holding the Entity/Relationship/Mention schema read by entity search
// and 1-hop traversal.
package graphstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FalkorDBStore wraps a Redis client pointed at a FalkorDB instance.
type FalkorDBStore struct {
	client    *redis.Client
	graphName string
	mu        sync.RWMutex
	connected bool
}

// Config configures a FalkorDBStore.
type Config struct {
	Host         string
	Port         int
	Password     string
	GraphName    string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible local defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		GraphName:    "islamic_kg",
		PoolSize:     8,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// New creates a FalkorDBStore. Call Connect before issuing queries.
func New(cfg Config) *FalkorDBStore {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &FalkorDBStore{client: client, graphName: cfg.GraphName}
}

// Connect pings the server and ensures the named graph exists (FalkorDB
// lazily creates a graph on first write).
func (s *FalkorDBStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("graphstore: connect: %w", err)
	}
	// Ignore the error: the graph may already exist, in which case this is
	// a harmless no-op write.
	_ = s.client.Do(ctx, "GRAPH.QUERY", s.graphName, "CREATE (n:_init) DELETE n RETURN 1").Err()

	s.connected = true
	return nil
}

// Close releases the underlying Redis connection pool.
func (s *FalkorDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return s.client.Close()
}

// IsConnected reports whether Connect has succeeded.
func (s *FalkorDBStore) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Ping checks reachability without relying on the cached connected flag,
// used directly by the health endpoint.
func (s *FalkorDBStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// query runs a Cypher statement and returns FalkorDB's raw result rows
// (the data section of its [header, data, stats] reply shape).
func (s *FalkorDBStore) query(ctx context.Context, cypher string) ([]interface{}, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("graphstore: not connected")
	}
	result, err := s.client.Do(ctx, "GRAPH.QUERY", s.graphName, cypher).Result()
	if err != nil {
		return nil, fmt.Errorf("graphstore: query failed: %w", err)
	}
	top, ok := result.([]interface{})
	if !ok || len(top) < 2 {
		return nil, nil
	}
	rows, ok := top[1].([]interface{})
	if !ok {
		return nil, nil
	}
	return rows, nil
}

// sanitizeString escapes characters that would otherwise let a query
// parameter break out of its Cypher string literal.
func sanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}
