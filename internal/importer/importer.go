// Package importer turns log text in one of several chat-export grammars
// into log items. Each grammar is a closed variant with a cheap sniff and a
// parse function; a Pipeline tries them in a fixed order.
package importer

import (
	"regexp"
	"strings"

	"storypaint/internal/logitem"
)

type Importer struct {
	Kind  Kind
	Check func(text string) bool
	Parse func(pc *ParseContext, text string) *Result
}

var importers = [...]Importer{
	KindJSON:      {Kind: KindJSON, Check: checkJSON, Parse: parseJSON},
	KindCanonical: {Kind: KindCanonical, Check: reCanonical.MatchString, Parse: parseCanonical},
	KindPlatform:  {Kind: KindPlatform, Check: rePlatform.MatchString, Parse: parsePlatform},
	KindRendered:  {Kind: KindRendered, Check: reRendered.MatchString, Parse: parseRendered},
	KindBracket:   {Kind: KindBracket, Check: reBracket.MatchString, Parse: parseBracket},
	KindFoundry:   {Kind: KindFoundry, Check: reFoundryLine.MatchString, Parse: parseFoundry},
}

func Lookup(k Kind) (Importer, bool) {
	if k < 0 || int(k) >= len(importers) {
		return Importer{}, false
	}
	return importers[k], true
}

// Result is what one importer derived from a piece of text.
type Result struct {
	Kind      Kind
	Items     []logitem.LogItem
	Chars     []logitem.CharItem
	StartText string
}

// Canonical reports whether the text was read as the editable format the
// exporter writes.
func (r *Result) Canonical() bool {
	return r != nil && r.Kind == KindCanonical
}

func newResult(kind Kind, items []logitem.LogItem, startText string) *Result {
	res := &Result{Kind: kind, Items: items, StartText: startText}
	seen := make(map[string]struct{})
	for _, item := range items {
		if item.IsRaw {
			continue
		}
		key := item.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		role := item.Role
		if !role.IsValid() {
			role = logitem.InferRole(item.Nickname, item.IsDice)
		}
		res.Chars = append(res.Chars, logitem.CharItem{
			Name:       item.Nickname,
			ExternalID: item.ExternalID,
			Role:       role,
			Color:      item.Color,
		})
	}
	return res
}

// scanHeaders hands every header match of re to build together with the
// body that follows it up to the next header. The body has the newline that
// ends the header line removed. Text before the first header is returned
// separately.
func scanHeaders(re *regexp.Regexp, text string, build func(m []int, body string) (logitem.LogItem, bool)) ([]logitem.LogItem, string) {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}
	items := make([]logitem.LogItem, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimPrefix(text[m[1]:end], "\n")
		if item, ok := build(m, body); ok {
			items = append(items, item)
		}
	}
	return items, text[:matches[0][0]]
}

func group(text string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return text[m[2*n]:m[2*n+1]]
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF. Header
// grammars are line anchored and expect LF only.
func NormalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
