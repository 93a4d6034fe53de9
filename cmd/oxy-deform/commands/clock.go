package commands

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
)

// waveClock accumulates deformation time and holds the user-adjustable wave.
type waveClock struct {
	mu     sync.Mutex
	params deform.Params
	paused bool
}

func newWaveClock(radius, velocity float32) *waveClock {
	return &waveClock{params: deform.Params{Radius: radius, Velocity: velocity}}
}

// advance moves time forward by dt seconds unless paused.
func (c *waveClock) advance(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.params.Time += dt
	}
}

func (c *waveClock) togglePause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
}

// adjust nudges radius and velocity. Radius never drops below zero.
func (c *waveClock) adjust(radius, velocity float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.Radius = max(c.params.Radius+radius, 0)
	c.params.Velocity += velocity
}

func (c *waveClock) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.Time = 0
}

// snapshot returns a copy of the current params.
func (c *waveClock) snapshot() *deform.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.params
	return &p
}

func (c *waveClock) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := ""
	if c.paused {
		state = " [paused]"
	}
	return fmt.Sprintf("radius %.2f  velocity %.2f  t %.1fs%s", c.params.Radius, c.params.Velocity, c.params.Time, state)
}
