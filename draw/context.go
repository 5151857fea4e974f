// Package draw holds the host-owned drawing context that scripts write into.
//
// A Context is an immediate-mode pending draw list. Host operations append
// commands while a frame's entry point is running; the host flushes the list
// once per frame and hands the commands to a renderer.
package draw

import (
	"image/color"
	"sync"
)

// RectSize is the edge length of every rectangle issued through Rect.
const RectSize float32 = 4

// Plum is the fill color of every rectangle issued through Rect.
var Plum = color.RGBA{R: 221, G: 160, B: 221, A: 255}

// Kind identifies the primitive a Command draws.
type Kind string

const (
	// KindRect is an axis-aligned filled rectangle centred on (X, Y).
	KindRect Kind = "rect"
)

// Command is a single recorded drawing instruction.
type Command struct {
	Kind  Kind       `json:"kind"`
	X     float32    `json:"x"`
	Y     float32    `json:"y"`
	W     float32    `json:"w"`
	H     float32    `json:"h"`
	Color color.RGBA `json:"color"`
}

// Context is the shared drawing surface handle.
// It is safe for concurrent use, although the bridge only writes to it from
// the goroutine running a frame.
type Context struct {
	mu       sync.Mutex
	commands []Command
}

// NewContext returns an empty drawing context.
func NewContext() *Context {
	return &Context{}
}

// Rect appends a fixed-size plum rectangle centred on (x, y).
func (c *Context) Rect(x, y float32) {
	c.Append(Command{
		Kind:  KindRect,
		X:     x,
		Y:     y,
		W:     RectSize,
		H:     RectSize,
		Color: Plum,
	})
}

// Append records an arbitrary command.
func (c *Context) Append(cmd Command) {
	c.mu.Lock()
	c.commands = append(c.commands, cmd)
	c.mu.Unlock()
}

// Len returns the number of pending commands.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

// Pending returns a copy of the pending commands without clearing them.
func (c *Context) Pending() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Flush returns the pending commands and clears the list.
func (c *Context) Flush() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.commands
	c.commands = nil
	return out
}

// Reset drops all pending commands.
func (c *Context) Reset() {
	c.mu.Lock()
	c.commands = nil
	c.mu.Unlock()
}
