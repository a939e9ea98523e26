package motion

// Controller owns the two stage axes. X and Y are independent, symmetric
// instances of the same axis machine; the controller only routes commands
// and fans the tick out.
type Controller struct {
	x, y *Axis
}

func NewController(x, y *Axis) *Controller {
	return &Controller{x: x, y: y}
}

// Axis returns the axis for "x" or "y", nil otherwise.
func (c *Controller) Axis(name string) *Axis {
	switch name {
	case c.x.Name():
		return c.x
	case c.y.Name():
		return c.y
	}
	return nil
}

func (c *Controller) X() *Axis { return c.x }
func (c *Controller) Y() *Axis { return c.y }

// Tick advances both axes by one bounded slice of work.
func (c *Controller) Tick() {
	c.x.Tick()
	c.y.Tick()
}

// Stop abandons any in-progress move on both axes.
func (c *Controller) Stop() {
	c.x.Stop()
	c.y.Stop()
}

// SetEnabled powers both drivers.
func (c *Controller) SetEnabled(on bool) {
	c.x.drv.SetEnabled(on)
	c.y.drv.SetEnabled(on)
}

// Busy reports whether either axis still has pulses to emit.
func (c *Controller) Busy() bool {
	return c.x.State() == Stepping || c.y.State() == Stepping
}
