package importer

import (
	"strconv"
	"strings"
	"time"

	"storypaint/internal/logitem"
)

const syntheticIDBase = 1001

var timeLayouts = []string{
	"2006/1/2 15:4:5",
	"2006-1-2 15:4:5",
	"2006-1-2T15:4:5",
	"1/2/2006, 3:4:5 PM",
	"2006/1/2",
	"2006-1-2",
	time.RFC3339,
}

// ParseContext carries the state an importer may consult while parsing:
// the size of the registry at the time the context was created, the
// location timestamps are read in, and the memo of synthetic ids handed out
// to speakers that appear without one.
type ParseContext struct {
	RegistrySize int
	Location     *time.Location

	synthetic map[string]logitem.ExternalID
}

func NewParseContext(registrySize int, loc *time.Location) *ParseContext {
	return &ParseContext{
		RegistrySize: registrySize,
		Location:     loc,
		synthetic:    make(map[string]logitem.ExternalID),
	}
}

// SyntheticID returns a stable made-up external id for name. Ids start at
// 1001 past the registry size and grow with every new name seen through this
// context.
func (c *ParseContext) SyntheticID(name string) logitem.ExternalID {
	if c.synthetic == nil {
		c.synthetic = make(map[string]logitem.ExternalID)
	}
	if id, ok := c.synthetic[name]; ok {
		return id
	}
	id := logitem.ExternalID(strconv.Itoa(syntheticIDBase + c.RegistrySize + len(c.synthetic)))
	c.synthetic[name] = id
	return id
}

func (c *ParseContext) location() *time.Location {
	if c == nil || c.Location == nil {
		return time.Local
	}
	return c.Location
}

// ParseTime returns the unix time for raw, or zero and the raw text itself
// when none of the known layouts matches.
func (c *ParseContext) ParseTime(raw string) (int64, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, c.location()); err == nil {
			return t.Unix(), ""
		}
	}
	return 0, raw
}
