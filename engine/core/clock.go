package core

import "time"

// Clock measures time since Start in seconds. Tick additionally tracks the
// interval between two consecutive calls, which drives per-frame updates.
type Clock struct {
	startTime time.Time
	lastTick  time.Time
	elapsed   float64
	delta     float64
	running   bool
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = time.Since(c.startTime).Seconds()
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.lastTick = c.startTime
	c.elapsed = 0
	c.delta = 0
	c.running = true
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

// Tick updates the clock and returns the seconds since the previous Tick.
func (c *Clock) Tick() float64 {
	if !c.running {
		return 0
	}
	now := time.Now()
	c.delta = now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	c.elapsed = now.Sub(c.startTime).Seconds()
	return c.delta
}

// Elapsed returns the total seconds since Start as of the last Update or Tick.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Delta returns the seconds between the last two Ticks.
func (c *Clock) Delta() float64 {
	return c.delta
}
