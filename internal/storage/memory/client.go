// Package memory — in-memory реализация SessionStore для запуска в -dev без
// Redis. Сессии живут до перезапуска процесса.
package memory

import (
	"context"
	"sync"
	"time"
)

const sessionTTL = 30 * 24 * time.Hour

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu       sync.RWMutex
	sessions map[string]item
}

func New() *Client {
	return &Client{sessions: make(map[string]item)}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetSession(ctx context.Context, sessionID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sessionID] = item{val: userID, exp: time.Now().Add(sessionTTL)}
	return nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.sessions[sessionID]
	if !ok {
		return "", nil
	}
	if time.Now().After(v.exp) {
		delete(c.sessions, sessionID)
		return "", nil
	}
	v.exp = time.Now().Add(sessionTTL)
	c.sessions[sessionID] = v
	return v.val, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}
