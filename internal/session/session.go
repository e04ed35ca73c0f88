// Package session carries the authenticated principal, either per request
// through a context or process-wide through a Holder.
package session

import (
	"context"
	"sync"

	"github.com/example/resumehub/internal/models"
)

// Principal is the authenticated account acting on a request.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   string
	Avatar string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// FromUser builds a principal from a stored profile.
func FromUser(u *models.User) Principal {
	return Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Avatar: u.Avatar}
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// Holder keeps the current principal for long-lived processes such as the
// migration command, and notifies subscribers when it changes.
type Holder struct {
	mu      sync.RWMutex
	current *Principal
	subs    map[int]chan *Principal
	nextID  int
}

// NewHolder returns an empty holder.
func NewHolder() *Holder {
	return &Holder{subs: make(map[int]chan *Principal)}
}

// Current returns the signed-in principal, or nil.
func (h *Holder) Current() *Principal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil
	}
	p := *h.current
	return &p
}

// Set replaces the current principal and notifies subscribers.
func (h *Holder) Set(p Principal) {
	h.publish(&p)
}

// Clear signs the principal out and notifies subscribers with nil.
func (h *Holder) Clear() {
	h.publish(nil)
}

func (h *Holder) publish(p *Principal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = p
	for _, ch := range h.subs {
		// keep only the newest value for slow subscribers
		select {
		case <-ch:
		default:
		}
		ch <- copyPrincipal(p)
	}
}

// Subscribe returns a channel receiving the current value immediately and every
// change after it, plus a cancel func that must be called to release it.
func (h *Holder) Subscribe() (<-chan *Principal, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan *Principal, 1)
	ch <- copyPrincipal(h.current)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func copyPrincipal(p *Principal) *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
