// Package session tracks the currently loaded video session.
package session

import (
	"sync"

	"github.com/creaselab/overlay/pkg/core"
)

// Context holds the current video session state. It is read from the
// dispatcher path and written when a video loads or ends, so access is
// RWMutex-guarded.
type Context struct {
	mu      sync.RWMutex
	session *core.VideoSession
	loop    core.LoopRange
}

// NewContext creates a Context with no video loaded.
func NewContext() *Context {
	return &Context{
		session: &core.VideoSession{Title: "No video loaded"},
	}
}

// Get returns the current video session.
func (c *Context) Get() *core.VideoSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Set replaces the current video session and clears any loop range.
func (c *Context) Set(s *core.VideoSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.loop = core.LoopRange{}
}

// Loaded reports whether a real video is loaded.
func (c *Context) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && c.session.SourceURI != ""
}

// Loop returns the active scrub loop range.
func (c *Context) Loop() core.LoopRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loop
}

// SetLoop sets the scrub loop range.
func (c *Context) SetLoop(l core.LoopRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = l
}

// ClearLoop removes the scrub loop range.
func (c *Context) ClearLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = core.LoopRange{}
}
