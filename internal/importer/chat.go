package importer

import (
	"regexp"
	"strings"

	"storypaint/internal/logitem"
)

// Chat client "export messages" format:
//
//	2022-05-10 11:28:25 Alice(12345)
//	body...
var rePlatform = regexp.MustCompile(`(?m)^(\d{4}-\d{2}-\d{2} \d{1,2}:\d{1,2}:\d{1,2})[ \t]+(.+?)(\([^)\n]+\)|<[^>\n]+>)$`)

func parsePlatform(pc *ParseContext, text string) *Result {
	items, startText := scanHeaders(rePlatform, text, func(m []int, body string) (logitem.LogItem, bool) {
		unix, timeText := pc.ParseTime(group(text, m, 1))
		raw := group(text, m, 3)
		return logitem.LogItem{
			Nickname:   group(text, m, 2),
			ExternalID: logitem.ExternalID("QQ:" + raw[1:len(raw)-1]),
			Time:       unix,
			TimeText:   timeText,
			Message:    ensureTrailingNewline(body),
		}, true
	})
	return newResult(KindPlatform, items, startText)
}

// Bot-rendered transcript lines, one utterance per header with the first
// line of the body inline:
//
//	2022/05/10 11:28:25<Alice(12345)>:body
var reRendered = regexp.MustCompile(`(?m)^((\d{4}/\d{2}/\d{2}\s)?\d{2}:\d{2}:\d{2})?<(.+?)(\([^)\n]+\))?>:(.*)$`)

func parseRendered(pc *ParseContext, text string) *Result {
	items, startText := scanHeaders(reRendered, text, func(m []int, body string) (logitem.LogItem, bool) {
		name := group(text, m, 3)
		id := pc.SyntheticID(name)
		if raw := group(text, m, 4); raw != "" {
			id = logitem.ExternalID("QQ:" + raw[1:len(raw)-1])
		}
		unix, timeText := pc.ParseTime(group(text, m, 1))
		return logitem.LogItem{
			Nickname:   name,
			ExternalID: id,
			Time:       unix,
			TimeText:   timeText,
			Message:    ensureTrailingNewline(group(text, m, 5) + "\n" + body),
		}, true
	})
	return newResult(KindRendered, items, startText)
}

// Dice bot log lines with a tenth-of-a-second timestamp:
//
//	<2022-05-10 11:28:25.3>  [Alice]:  body
var reBracket = regexp.MustCompile(`(?m)^<(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d)>[ \t]+\[?([^\]\n]+)\]?:[ \t]+([^\n]+)$`)

func parseBracket(pc *ParseContext, text string) *Result {
	items, startText := scanHeaders(reBracket, text, func(m []int, body string) (logitem.LogItem, bool) {
		name := group(text, m, 2)
		unix, timeText := pc.ParseTime(group(text, m, 1))
		return logitem.LogItem{
			Nickname:   name,
			ExternalID: pc.SyntheticID(name),
			Time:       unix,
			TimeText:   timeText,
			Message:    group(text, m, 3) + "\n" + body + "\n",
		}, true
	})
	return newResult(KindBracket, items, startText)
}

// Foundry VTT chat export: blocks separated by a dashed rule.
//
//	[5/10/2022, 11:28:25 AM] Alice
//	body...
//	---------------------------
var (
	reFoundryLine  = regexp.MustCompile(`(?m)^\[(\d+/\d+/\d+, \d+:\d+:\d+ [AP]M)\] (.+)$`)
	reFoundryBlock = regexp.MustCompile(`(?s)^\[(\d+/\d+/\d+, \d+:\d+:\d+ [AP]M)\] ([^\n]+)(?:\n(.*))?$`)
)

const foundrySeparator = "---------------------------"

// parseFoundry keeps every byte it cannot place: text before the first
// block header is the start text, and a block that does not open with a
// header is appended to the previous item.
func parseFoundry(pc *ParseContext, text string) *Result {
	loc := reFoundryLine.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	startText := text[:loc[0]]

	var items []logitem.LogItem
	for _, block := range strings.Split(text[loc[0]:], foundrySeparator) {
		trimmed := strings.TrimLeft(block, " \t\n")
		m := reFoundryBlock.FindStringSubmatch(trimmed)
		if m == nil {
			if rest := strings.TrimSpace(block); rest != "" && len(items) > 0 {
				items[len(items)-1].Message += rest + "\n\n"
			}
			continue
		}
		unix, timeText := pc.ParseTime(m[1])
		message := "\n"
		if body := strings.TrimSpace(m[3]); body != "" {
			message = body + "\n\n"
		}
		items = append(items, logitem.LogItem{
			Nickname:   m[2],
			ExternalID: pc.SyntheticID(m[2]),
			Time:       unix,
			TimeText:   timeText,
			Message:    message,
		})
	}
	if len(items) == 0 {
		return nil
	}
	return newResult(KindFoundry, items, startText)
}
