package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type memCache struct {
	mu          sync.Mutex
	vals        map[uint64]bool
	invalidated []uint64
	// beforeFill 在回填之前执行一次，用于构造读写交错
	beforeFill func()
}

func newMemCache() *memCache {
	return &memCache{vals: map[uint64]bool{}}
}

func (c *memCache) Get(_ context.Context, userID uint64) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[userID]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, userID uint64, verified bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[userID] = verified
	return nil
}

func (c *memCache) Fill(_ context.Context, userID uint64, verified bool) error {
	c.mu.Lock()
	hook := c.beforeFill
	c.beforeFill = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vals[userID]; !ok {
		c.vals[userID] = verified
	}
	return nil
}

func (c *memCache) value(userID uint64) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[userID]
	return v, ok
}

func (c *memCache) Invalidate(_ context.Context, userID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vals, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[uint64]string
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[uint64]string{}}
}

func (m *memTokens) Save(_ context.Context, userID uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = token
	return nil
}

func (m *memTokens) Delete(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

func (m *memTokens) get(userID uint64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[userID]
	return tok, ok
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}
