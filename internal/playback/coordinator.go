package playback

import "sync"

// Playable is anything the coordinator can silence.
type Playable interface {
	Pause()
}

// Coordinator enforces that at most one registered voice is audible.
type Coordinator struct {
	mu     sync.Mutex
	voices map[string]Playable
	active string
}

func NewCoordinator() *Coordinator {
	return &Coordinator{voices: map[string]Playable{}}
}

// Register adds p under id. The returned func deregisters it and clears the active reference if it pointed at id.
func (c *Coordinator) Register(id string, p Playable) func() {
	c.mu.Lock()
	c.voices[id] = p
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.voices[id] == p {
			delete(c.voices, id)
		}
		if c.active == id {
			c.active = ""
		}
	}
}

// Started marks id as the active voice and pauses the previous one, synchronously.
func (c *Coordinator) Started(id string) {
	c.mu.Lock()
	prev := c.active
	var toPause Playable
	if prev != "" && prev != id {
		toPause = c.voices[prev]
	}
	c.active = id
	c.mu.Unlock()

	if toPause != nil {
		toPause.Pause()
	}
}

// Stopped clears the active reference when it points at id.
func (c *Coordinator) Stopped(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == id {
		c.active = ""
	}
}

// Active returns the id of the audible voice, or "".
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
