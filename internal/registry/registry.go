// Package registry tracks the speakers seen in a log, keyed by name and
// external id, together with their role and display color.
package registry

import (
	"errors"
	"fmt"

	"storypaint/internal/logitem"
)

var ErrNotFound = errors.New("character not found")

var DefaultPalette = []string{"#cb4d68", "#f99252", "#f48cb6", "#9278b9", "#3e80cc", "#84a59d", "#5b5e71"}

// Registry is not safe for concurrent use; it belongs to a single engine.
type Registry struct {
	palette []string
	stack   []string
	chars   map[string]*logitem.CharItem
	order   []string
}

func New(palette []string) *Registry {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Registry{
		palette: append([]string(nil), palette...),
		chars:   make(map[string]*logitem.CharItem),
	}
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) Get(name string, id logitem.ExternalID) (logitem.CharItem, bool) {
	c, ok := r.chars[logitem.PackKey(name, id)]
	if !ok {
		return logitem.CharItem{}, false
	}
	return *c, true
}

// Register records the speaker of item the first time its identity is seen
// and returns the stored entry. Existing entries are never overwritten.
func (r *Registry) Register(item logitem.LogItem) logitem.CharItem {
	return r.add(logitem.CharItem{
		Name:       item.Nickname,
		ExternalID: item.ExternalID,
		Role:       item.Role,
		Color:      item.Color,
	}, item.IsDice)
}

func (r *Registry) Merge(chars []logitem.CharItem) {
	for _, c := range chars {
		r.add(c, c.Role == logitem.RoleDice)
	}
}

func (r *Registry) add(c logitem.CharItem, isDice bool) logitem.CharItem {
	key := c.Key()
	if existing, ok := r.chars[key]; ok {
		return *existing
	}
	if !c.Role.IsValid() {
		c.Role = logitem.InferRole(c.Name, isDice)
	}
	if c.Color == "" {
		c.Color = r.nextColor()
	}
	r.chars[key] = &c
	r.order = append(r.order, key)
	return c
}

func (r *Registry) nextColor() string {
	if len(r.stack) == 0 {
		r.stack = append(r.stack, r.palette...)
	}
	if len(r.stack) == 0 {
		return ""
	}
	color := r.stack[0]
	r.stack = r.stack[1:]
	return color
}

func (r *Registry) SetRole(key string, role logitem.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %q", role)
	}
	c, ok := r.chars[key]
	if !ok {
		return fmt.Errorf("set role %s: %w", key, ErrNotFound)
	}
	c.Role = role
	return nil
}

func (r *Registry) SetColor(key, color string) error {
	c, ok := r.chars[key]
	if !ok {
		return fmt.Errorf("set color %s: %w", key, ErrNotFound)
	}
	c.Color = color
	return nil
}

func (r *Registry) Remove(key string) error {
	if _, ok := r.chars[key]; !ok {
		return fmt.Errorf("remove %s: %w", key, ErrNotFound)
	}
	delete(r.chars, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Prune removes every entry whose name is not used by any structured item
// and returns the removed entries.
func (r *Registry) Prune(items []logitem.LogItem) []logitem.CharItem {
	used := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.IsRaw {
			continue
		}
		used[item.Nickname] = struct{}{}
	}

	var removed []logitem.CharItem
	kept := r.order[:0]
	for _, key := range r.order {
		c := r.chars[key]
		if _, ok := used[c.Name]; ok {
			kept = append(kept, key)
			continue
		}
		removed = append(removed, *c)
		delete(r.chars, key)
	}
	r.order = kept
	return removed
}

// List returns the entries in registration order.
func (r *Registry) List() []logitem.CharItem {
	out := make([]logitem.CharItem, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.chars[key])
	}
	return out
}

// Decorate fills the item's role and color from its registry entry when the
// item does not carry its own.
func (r *Registry) Decorate(item *logitem.LogItem) {
	if item.IsRaw {
		return
	}
	c, ok := r.chars[item.Key()]
	if !ok {
		return
	}
	if item.Role == "" {
		item.Role = c.Role
	}
	if item.Color == "" {
		item.Color = c.Color
	}
}
