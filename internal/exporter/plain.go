package exporter

import (
	"regexp"
	"strings"
	"time"

	"storypaint/internal/logitem"
)

type Style int

const (
	// StyleQQ writes "name(id) time" above each message.
	StyleQQ Style = iota
	// StyleIRC writes "time<name(id)>:message" on one line.
	StyleIRC
)

func ParseStyle(name string) (Style, bool) {
	switch strings.ToLower(name) {
	case "qq":
		return StyleQQ, true
	case "irc":
		return StyleIRC, true
	}
	return 0, false
}

type PlainOptions struct {
	Location     *time.Location
	UserIDHide   bool
	YearHide     bool
	TimeHide     bool
	CommandHide  bool
	ImageHide    bool
	OffTopicHide bool
}

// Plain renders a read-only transcript. Raw items and messages that the
// filters empty out are left out.
func Plain(items []logitem.LogItem, style Style, opts PlainOptions) string {
	var b strings.Builder
	for _, item := range items {
		if item.IsRaw {
			continue
		}
		msg := FilterMessage(item, opts)
		if msg == "" {
			continue
		}
		user := ""
		if !opts.UserIDHide && item.ExternalID != "" {
			user = "(" + string(item.ExternalID) + ")"
		}
		stamp := plainTime(item, opts)

		switch style {
		case StyleIRC:
			b.WriteString(stamp + "<" + item.Nickname + user + ">:" + msg + "\n\n")
		default:
			b.WriteString(item.Nickname + user)
			if stamp != "" {
				b.WriteString(" " + stamp)
			}
			b.WriteString("\n" + msg + "\n\n")
		}
	}
	return b.String()
}

func plainTime(item logitem.LogItem, opts PlainOptions) string {
	if opts.TimeHide {
		return ""
	}
	if item.TimeText != "" {
		return item.TimeText
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	layout := headerTimeLayout
	if opts.YearHide {
		layout = "15:04:05"
	}
	return time.Unix(item.Time, 0).In(loc).Format(layout)
}

var (
	reImageCode   = regexp.MustCompile(`\[CQ:(image|face),[^\]]*\]|\[mirai:image:[^\]]*\]|\[image:[^\]]*\]`)
	reOffTopic    = regexp.MustCompile(`(?m)^\S*[(（].+$\n?`)
	reCommand     = regexp.MustCompile(`^[.。/]`)
	reCQCode      = regexp.MustCompile(`\[CQ:([^,\]]+)[^\]]*\]`)
	reMiraiCode   = regexp.MustCompile(`\[mirai:([^:\]]+)[^\]]*\]`)
	reLineBreakBR = regexp.MustCompile(`<br\s*/?>`)
)

// FilterMessage applies the transcript filters selected in opts to the
// item's message and trims it.
func FilterMessage(item logitem.LogItem, opts PlainOptions) string {
	msg := reLineBreakBR.ReplaceAllString(item.Message, "\n")
	if opts.ImageHide {
		msg = reImageCode.ReplaceAllString(msg, "")
	}
	if opts.OffTopicHide && !item.IsDice {
		msg = reOffTopic.ReplaceAllString(msg, "")
	}
	if opts.CommandHide && reCommand.MatchString(msg) {
		return ""
	}
	if item.IsDice {
		msg = strings.NewReplacer("<", "", ">", "").Replace(msg)
	}
	msg = stripCodes(reCQCode, msg)
	msg = stripCodes(reMiraiCode, msg)
	return strings.TrimSpace(msg)
}

// stripCodes removes platform control codes other than images.
func stripCodes(re *regexp.Regexp, msg string) string {
	return re.ReplaceAllStringFunc(msg, func(code string) string {
		m := re.FindStringSubmatch(code)
		if len(m) > 1 && m[1] == "image" {
			return code
		}
		return ""
	})
}
