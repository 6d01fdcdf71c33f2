package vna

import (
	"context"
	"strings"
	"sync"
)

// scriptedClient is an in-memory scpi.Client for strategy and session tests.
// Replies are computed per command by the reply function; every command is
// recorded in arrival order.
type scriptedClient struct {
	mu    sync.Mutex
	sent  []string
	reply func(cmd string) (string, error)
}

func (c *scriptedClient) Send(_ context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, cmd)
	return nil
}

func (c *scriptedClient) Query(_ context.Context, cmd string) (string, error) {
	c.mu.Lock()
	c.sent = append(c.sent, cmd)
	reply := c.reply
	c.mu.Unlock()

	if reply == nil {
		return "", nil
	}
	return reply(cmd)
}

func (c *scriptedClient) Close() error {
	return nil
}

func (c *scriptedClient) commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *scriptedClient) countPrefix(prefix string) int {
	var count int
	for _, cmd := range c.commands() {
		if strings.HasPrefix(cmd, prefix) {
			count++
		}
	}
	return count
}
