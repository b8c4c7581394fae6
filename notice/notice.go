/*
Package notice provides transient user-facing notices with auto-expiry.

PURPOSE:
  Every recoverable failure in the system degrades to a visible,
  dismissible notice: bad OTP, insufficient balance, invalid scan,
  recommendation fallback. The Center holds the active notices and
  expires transient ones after a fixed delay, the way the reference
  behaviour cleared its notification after three seconds.

Persistent notices (camera access denied) never auto-clear; they stay
until explicitly dismissed.
*/
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notice struct {
	ID         string
	Kind       Kind
	Message    string
	Persistent bool
	CreatedAt  time.Time
}

// Center holds active notices for one session.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	notices map[string]Notice
	timers  map[string]*time.Timer
}

// NewCenter creates a Center whose transient notices expire after ttl.
func NewCenter(ttl time.Duration) *Center {
	return &Center{
		ttl:     ttl,
		notices: make(map[string]Notice),
		timers:  make(map[string]*time.Timer),
	}
}

// Publish adds a transient notice that auto-clears after the Center TTL.
func (c *Center) Publish(kind Kind, message string) Notice {
	return c.add(kind, message, false)
}

// PublishPersistent adds a notice that stays until dismissed.
func (c *Center) PublishPersistent(kind Kind, message string) Notice {
	return c.add(kind, message, true)
}

func (c *Center) add(kind Kind, message string, persistent bool) Notice {
	n := Notice{
		ID:         uuid.NewString(),
		Kind:       kind,
		Message:    message,
		Persistent: persistent,
		CreatedAt:  time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices[n.ID] = n
	if !persistent {
		c.timers[n.ID] = time.AfterFunc(c.ttl, func() { c.Dismiss(n.ID) })
	}
	return n
}

// Dismiss removes a notice by ID. Safe to call for already-expired IDs.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	delete(c.notices, id)
}

// Active returns the current notices, oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notice, 0, len(c.notices))
	for _, n := range c.notices {
		out = append(out, n)
	}
	// Small n; insertion sort keeps it dependency-free.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Clear drops every notice and stops all pending timers. Used on sign-out.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.notices = make(map[string]Notice)
}
