// Package annotate turns the structured command payload a dice bot attaches
// to a log item into the small markup dice and hit point widgets read:
//
//	<dice>:(label,maxFace,oldValue,newValue),...
//	<hitpoint>:(name,maxNow,oldValue,newValue)
package annotate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"storypaint/internal/logitem"
)

const (
	tipMaxHP      = "# Note: adjust the max hit points (second field) below by hand\n"
	tipD20Bonuses = "# Note: D&D checks may roll D20 plus bonuses, adjust the max face by hand\n"
)

var reDiceFaces = regexp.MustCompile(`[dD](\d+)`)

// Annotate returns the markup for item. The boolean is false when the item
// has no command payload or the rule and command are not recognised; the
// payload is then returned unchanged.
func Annotate(item logitem.LogItem) (string, bool) {
	if len(item.CommandInfo) == 0 {
		return "", false
	}
	ci := gjson.ParseBytes(item.CommandInfo)
	pc := ci.Get("pcName").String()
	entries := ci.Get("items").Array()

	switch rule, cmd := ci.Get("rule").String(), ci.Get("cmd").String(); {
	case rule == "coc7" && cmd == "ra":
		var out []string
		for _, i := range entries {
			out = append(out, tuple(pc+"'s "+i.Get("expr2").String(), diceFaces(i.Get("expr1").String(), 100), value(i.Get("attrVal")), value(i.Get("checkVal"))))
		}
		return "<dice>:" + strings.Join(out, ","), true

	case rule == "coc7" && cmd == "sc":
		var out []string
		for _, i := range entries {
			expr := i.Get("exprs.0").String()
			out = append(out, tuple(pc+"'s "+expr, diceFaces(expr, 100), value(i.Get("sanOld")), value(i.Get("checkVal"))))
		}
		return "<dice>:" + strings.Join(out, ","), true

	case (rule == "coc7" || rule == "dnd5e") && cmd == "st":
		var out []string
		for _, i := range entries {
			if i.Get("attr").String() != "hp" {
				continue
			}
			oldVal, newVal := i.Get("valOld"), i.Get("valNew")
			maxNow := oldVal
			if newVal.Float() > oldVal.Float() {
				maxNow = newVal
			}
			out = append(out, "<hitpoint>:"+tuple(pc, value(maxNow), value(oldVal), value(newVal)))
		}
		if len(out) == 0 {
			break
		}
		return tipMaxHP + strings.Join(out, "\n"), true

	case rule == "dnd5e" && cmd == "rc":
		if len(entries) == 0 {
			break
		}
		var out []string
		for _, i := range entries {
			out = append(out, tuple(pc+"'s "+i.Get("reason").String()+" check", diceFaces(i.Get("expr").String(), 20), "NA", value(i.Get("result"))))
		}
		return tipD20Bonuses + "<dice>:" + strings.Join(out, ","), true

	case cmd == "roll":
		var out []string
		for _, i := range entries {
			expr := i.Get("expr").String()
			out = append(out, tuple(pc+"'s "+expr, diceFaces(expr, 100), "NA", value(i.Get("result"))))
		}
		return "<dice>:" + strings.Join(out, ","), true
	}

	return string(item.CommandInfo), false
}

func diceFaces(expr string, fallback int) string {
	if m := reDiceFaces.FindStringSubmatch(expr); m != nil {
		return m[1]
	}
	return strconv.Itoa(fallback)
}

func value(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return "NA"
	}
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

func tuple(fields ...string) string {
	return "(" + strings.Join(fields, ",") + ")"
}
