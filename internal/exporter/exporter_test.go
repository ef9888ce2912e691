package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storypaint/internal/importer"
	"storypaint/internal/logitem"
)

func sampleItems() []logitem.LogItem {
	return []logitem.LogItem{
		logitem.Raw("preface\n"),
		{Nickname: "Alice", ExternalID: "111", Time: 1652182105, Message: "Hello world\n"},
		{Nickname: "Bob", ExternalID: "222", TimeText: "11:28:30", Message: "Hi!\n"},
		{Nickname: "Seal", ExternalID: "1", Time: 1652182110, Message: "<dice> 1d100=42", IsDice: true, ID: 9},
	}
}

func TestCanonicalExport(t *testing.T) {
	res := Canonical{Location: time.UTC}.Export(sampleItems(), 0)
	want := "preface\n" +
		"Alice(111) 2022/05/10 11:28:25\nHello world\n" +
		"Bob(222) 11:28:30\nHi!\n" +
		"Seal(1) 2022/05/10 11:28:30\n<dice> 1d100=42"
	assert.Equal(t, want, res.Text)

	require.Len(t, res.Index, 4)
	assert.Equal(t, logitem.IndexInfo{Start: 0, Content: 0, End: 8}, res.Index[0])
	assert.Equal(t, logitem.IndexInfo{Start: 8, Content: 39, End: 51}, res.Index[1])
	assert.Equal(t, "Hello world\n", res.Text[res.Index[1].Content:res.Index[1].End])
}

func TestIndexCoverage(t *testing.T) {
	for _, offset := range []int{0, 17} {
		res := Canonical{Location: time.UTC}.Export(sampleItems(), offset)
		pos := offset
		for i, ii := range res.Index {
			assert.Equal(t, pos, ii.Start, "entry %d start", i)
			assert.LessOrEqual(t, ii.Start, ii.Content)
			assert.LessOrEqual(t, ii.Content, ii.End)
			pos = ii.End
		}
		assert.Equal(t, offset+len(res.Text), pos)
	}
}

func TestHeaderOptions(t *testing.T) {
	item := logitem.LogItem{Nickname: "Seal", Time: 1652182110, IsDice: true, ID: 9}
	assert.Equal(t, "Seal() 2022/05/10 11:28:30\n", Canonical{Location: time.UTC}.Header(item))
	item.ExternalID = "1"
	assert.Equal(t, "Seal(1) 2022/05/10 11:28:30 #9\n", Canonical{Location: time.UTC, DiceTag: true}.Header(item))
	item.IsDice = false
	assert.Equal(t, "Seal(1) 2022/05/10 11:28:30\n", Canonical{Location: time.UTC, DiceTag: true}.Header(item))
}

func TestRoundTrip(t *testing.T) {
	texts := []string{
		"Alice(111) 2022/05/10 11:28:25\nHello world\nBob(222) 2022/05/10 11:28:30\nHi!\n",
		"notes before the log\n\nAlice(111) 2022/05/10 11:28:25\n\nmulti\nline\n\nBob(222) 11:28:30\nHi!",
		"GM 2022/05/10 11:28:25\n(no id)\nobWatcher 2022/05/10 11:28:26\n",
		"Alice<abc> 2022/05/10 11:28:25\n",
		"Narrator() 2022/05/10 11:28:25\nno id at all\n",
	}
	p := importer.NewPipeline()
	ex := Canonical{Location: time.UTC}
	for _, text := range texts {
		first, ok := p.Parse(importer.NewParseContext(0, time.UTC), text, true)
		require.True(t, ok, text)
		require.True(t, first.Canonical())

		out := ex.Export(first.Items, 0)
		second, ok := p.Parse(importer.NewParseContext(0, time.UTC), out.Text, true)
		require.True(t, ok)
		require.Len(t, second.Items, len(first.Items))
		for i := range first.Items {
			a, b := first.Items[i], second.Items[i]
			assert.Equal(t, a.Nickname, b.Nickname)
			assert.Equal(t, a.ExternalID, b.ExternalID)
			assert.Equal(t, a.Time, b.Time)
			assert.Equal(t, a.TimeText, b.TimeText)
			assert.Equal(t, a.Message, b.Message)
			assert.Equal(t, a.IsRaw, b.IsRaw)
		}
		assert.Equal(t, out.Text, ex.Export(second.Items, 0).Text)
	}
}

func TestPlain(t *testing.T) {
	items := []logitem.LogItem{
		logitem.Raw("ignored\n"),
		{Nickname: "Alice", ExternalID: "111", Time: 1652182105, Message: "Hello[CQ:at,qq=1] world\n"},
		{Nickname: "Bob", ExternalID: "222", Time: 1652182106, Message: ".ra spot\n"},
		{Nickname: "Seal", ExternalID: "1", Time: 1652182107, Message: "<Bob> rolled 42", IsDice: true},
	}

	qq := Plain(items, StyleQQ, PlainOptions{Location: time.UTC})
	assert.Equal(t, "Alice(111) 2022/05/10 11:28:25\nHello world\n\n"+
		"Bob(222) 2022/05/10 11:28:26\n.ra spot\n\n"+
		"Seal(1) 2022/05/10 11:28:27\nBob rolled 42\n\n", qq)

	irc := Plain(items, StyleIRC, PlainOptions{Location: time.UTC, YearHide: true, UserIDHide: true, CommandHide: true})
	assert.Equal(t, "11:28:25<Alice>:Hello world\n\n11:28:27<Seal>:Bob rolled 42\n\n", irc)

	bare := Plain(items[1:2], StyleQQ, PlainOptions{TimeHide: true})
	assert.Equal(t, "Alice(111)\nHello world\n\n", bare)
}

func TestFilterMessage(t *testing.T) {
	item := logitem.LogItem{Message: "look[CQ:image,file=a.png]\n(ooc: brb)\nback<br />again [CQ:face,id=1]"}
	assert.Equal(t, "look[CQ:image,file=a.png]\n(ooc: brb)\nback\nagain", FilterMessage(item, PlainOptions{}))
	assert.Equal(t, "look\nback\nagain", FilterMessage(item, PlainOptions{ImageHide: true, OffTopicHide: true}))

	item.IsDice = true
	assert.Equal(t, "look\n(ooc: brb)\nback\nagain", FilterMessage(item, PlainOptions{ImageHide: true, OffTopicHide: true}))
}

func TestParseStyle(t *testing.T) {
	s, ok := ParseStyle("IRC")
	assert.True(t, ok)
	assert.Equal(t, StyleIRC, s)
	_, ok = ParseStyle("html")
	assert.False(t, ok)
}

func TestEmptyIDRoundTrip(t *testing.T) {
	items := []logitem.LogItem{{Nickname: "Narrator", Time: 1652182105, Message: "The door opens.\n"}}
	out := Canonical{Location: time.UTC}.Export(items, 0)
	assert.Equal(t, "Narrator() 2022/05/10 11:28:25\nThe door opens.\n", out.Text)

	res, ok := importer.NewPipeline().Parse(importer.NewParseContext(0, time.UTC), out.Text, true)
	require.True(t, ok)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Narrator", res.Items[0].Nickname)
	assert.Empty(t, res.Items[0].ExternalID)
	assert.Equal(t, out.Text, Canonical{Location: time.UTC}.Export(res.Items, 0).Text)
}
