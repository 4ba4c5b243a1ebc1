package plugin

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/zerosync-co/opencode-provider/pkg/host"
)

// Context is what the host hands a plugin at init time. Resources acquired
// during init are pushed onto its release stack.
type Context struct {
	Registry host.Registry
	Logger   *slog.Logger

	mu       sync.Mutex
	releases []release
}

type release struct {
	name string
	fn   func() error
}

// Defer pushes fn onto the release stack.
func (c *Context) Defer(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases = append(c.releases, release{name: name, fn: fn})
}

// Release runs the stack in reverse order and empties it. A failing or
// panicking release is logged and the rest still run.
func (c *Context) Release() {
	c.mu.Lock()
	releases := c.releases
	c.releases = nil
	c.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		r := releases[i]
		if err := runRelease(r); err != nil {
			c.logger().Warn("release failed", "resource", r.name, "error", err)
		}
	}
}

func runRelease(r release) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.fn()
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
