// Package exporter renders log items back to text: the canonical editable
// form with its byte index, and plain chat-style transcripts.
package exporter

import (
	"strconv"
	"strings"
	"time"

	"storypaint/internal/logitem"
)

const headerTimeLayout = "2006/01/02 15:04:05"

type Result struct {
	Text  string
	Index []logitem.IndexInfo
}

// Canonical writes the editable format read back by the canonical importer.
type Canonical struct {
	// Location formats item times. Nil means time.Local.
	Location *time.Location
	// DiceTag appends " #id" to headers of dice items that carry an id.
	DiceTag bool
}

// Export renders items starting at byte offset. Every index entry is
// relative to the start of the full document, so a slice rendered for a
// splice can be passed the offset it will land at.
func (c Canonical) Export(items []logitem.LogItem, offset int) Result {
	var b strings.Builder
	index := make([]logitem.IndexInfo, 0, len(items))
	pos := offset
	for _, item := range items {
		start := pos
		if !item.IsRaw {
			header := c.Header(item)
			b.WriteString(header)
			pos += len(header)
		}
		content := pos
		b.WriteString(item.Message)
		pos += len(item.Message)
		index = append(index, logitem.IndexInfo{Start: start, Content: content, End: pos})
	}
	return Result{Text: b.String(), Index: index}
}

// Header returns the header line of item including its newline.
func (c Canonical) Header(item logitem.LogItem) string {
	var b strings.Builder
	b.WriteString(item.Nickname)
	// An empty id is still written as "()" so the item reads back without a
	// synthetic id.
	b.WriteString("(")
	b.WriteString(string(item.ExternalID))
	b.WriteString(")")
	b.WriteString(" ")
	b.WriteString(c.timestamp(item))
	if c.DiceTag && item.IsDice && item.ID != 0 {
		b.WriteString(" #")
		b.WriteString(strconv.FormatUint(item.ID, 10))
	}
	b.WriteString("\n")
	return b.String()
}

func (c Canonical) timestamp(item logitem.LogItem) string {
	if item.TimeText != "" {
		return item.TimeText
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(item.Time, 0).In(loc).Format(headerTimeLayout)
}

// Export renders items with the default canonical settings.
func Export(items []logitem.LogItem, offset int) Result {
	return Canonical{}.Export(items, offset)
}
