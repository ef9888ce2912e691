package importer

import (
	"regexp"
	"strconv"

	"storypaint/internal/logitem"
)

// Header line of the editable format:
//
//	name[(id)|<id>] [YYYY/MM/DD ]HH:MM:SS[ #n]
//
// The name may not contain "(" or "<", so a name that itself carries
// brackets is split at the first one. The separator before the timestamp is
// restricted to spaces and tabs to keep headers on a single line. An empty
// "()" keeps the id empty; only a header with no brackets at all gets a
// synthetic id.
var reCanonical = regexp.MustCompile(`(?m)^([^(<\n]+)(\(([^(\n]*)\)|<[^(\n]+>)?[ \t]+(\d{4}/\d{1,2}/\d{1,2} )?(\d{1,2}:\d{1,2}:\d{2})( #(\d+))?$`)

const (
	canonName  = 1
	canonID    = 2
	canonDate  = 4
	canonClock = 5
	canonTag   = 7
)

func parseCanonical(pc *ParseContext, text string) *Result {
	items, startText := scanHeaders(reCanonical, text, func(m []int, body string) (logitem.LogItem, bool) {
		name := group(text, m, canonName)
		id := logitem.ExternalID("")
		if raw := group(text, m, canonID); len(raw) >= 2 {
			id = logitem.ExternalID(raw[1 : len(raw)-1])
		} else {
			id = pc.SyntheticID(name)
		}
		unix, timeText := pc.ParseTime(group(text, m, canonDate) + group(text, m, canonClock))
		item := logitem.LogItem{
			Nickname:   name,
			ExternalID: id,
			Time:       unix,
			TimeText:   timeText,
			Message:    body,
		}
		if tag := group(text, m, canonTag); tag != "" {
			item.ID, _ = strconv.ParseUint(tag, 10, 64)
		}
		return item, true
	})
	return newResult(KindCanonical, items, startText)
}
