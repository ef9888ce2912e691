// Package engine keeps a canonical log text, its items and their byte index
// consistent while the text is being edited. Edits are reconciled locally
// where possible: only the items touched by an edit are re-imported and
// spliced back, and everything after them is shifted.
//
// An Engine is not safe for concurrent use. Each edit must be handled to
// completion before the next one is passed in.
package engine

import (
	"context"
	"log/slog"
	"time"

	"storypaint/internal/exporter"
	"storypaint/internal/importer"
	"storypaint/internal/logitem"
	"storypaint/internal/observe"
	"storypaint/internal/registry"
)

type State int

const (
	StateEmpty State = iota
	StateSynced
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StateDegraded:
		return "degraded"
	}
	return "empty"
}

// Outcome tells how an edit was reconciled.
type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeFull
	OutcomeLocal
	OutcomeFlushed
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFull:
		return "full"
	case OutcomeLocal:
		return "local"
	case OutcomeFlushed:
		return "flushed"
	case OutcomeDegraded:
		return "degraded"
	}
	return "noop"
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snapshot is the full structured state of a document.
type Snapshot struct {
	Items []logitem.LogItem  `json:"items"`
	Chars []logitem.CharItem `json:"chars"`
}

type Engine struct {
	pipeline *importer.Pipeline
	exporter exporter.Canonical
	registry *registry.Registry
	pctx     *importer.ParseContext
	metrics  *observe.Metrics
	logger   *slog.Logger

	state State
	text  string
	items []logitem.LogItem
	index []logitem.IndexInfo

	textSet emitter[string]
	parsed  emitter[Snapshot]
}

type Option func(*Engine)

func WithPipeline(p *importer.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLocation sets the time zone headers are read and written in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.exporter.Location = loc }
}

func WithDiceTag(on bool) Option {
	return func(e *Engine) { e.exporter.DiceTag = on }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.pipeline == nil {
		e.pipeline = importer.NewPipeline(importer.WithMetrics(e.metrics), importer.WithLogger(e.logger))
	}
	if e.registry == nil {
		e.registry = registry.New(nil)
	}
	return e
}

func (e *Engine) State() State { return e.state }

func (e *Engine) Text() string { return e.text }

func (e *Engine) Registry() *registry.Registry { return e.registry }

func (e *Engine) Items() []logitem.LogItem {
	return append([]logitem.LogItem(nil), e.items...)
}

func (e *Engine) Index() []logitem.IndexInfo {
	return append([]logitem.IndexInfo(nil), e.index...)
}

// Snapshot returns a copy of the items, decorated with their registry role
// and color, together with the registry entries.
func (e *Engine) Snapshot() Snapshot {
	items := e.Items()
	for i := range items {
		e.registry.Decorate(&items[i])
	}
	return Snapshot{Items: items, Chars: e.registry.List()}
}

// OnTextSet subscribes fn to canonical text replacements. The returned
// function removes the subscription.
func (e *Engine) OnTextSet(fn func(text string)) func() {
	return e.textSet.on(fn)
}

// OnParsed subscribes fn to full document snapshots, sent after a full
// import and after every flush.
func (e *Engine) OnParsed(fn func(Snapshot)) func() {
	return e.parsed.on(fn)
}

// Dispose drops every subscriber.
func (e *Engine) Dispose() {
	e.textSet.clear()
	e.parsed.clear()
}

// Load replaces the document with a full import of text.
func (e *Engine) Load(text string) {
	started := time.Now()
	e.fullImport(text)
	e.metrics.RecordSync(context.Background(), OutcomeFull.String(), time.Since(started))
}

// Reset returns the engine to the empty state. Registry entries are kept.
func (e *Engine) Reset() {
	e.state = StateEmpty
	e.text = ""
	e.items = nil
	e.index = nil
	e.pctx = nil
}

// Flush re-exports the whole document from its items.
func (e *Engine) Flush() {
	if e.state == StateEmpty {
		return
	}
	e.flush()
}

// PruneCharacters removes registry entries no item refers to any more.
func (e *Engine) PruneCharacters() []logitem.CharItem {
	return e.registry.Prune(e.items)
}

// SyncChange reconciles one edit. cur is the full text after the edit, old
// is the replaced range in the previous text and updated is where the
// replacement landed in cur.
func (e *Engine) SyncChange(cur string, old, updated Range) Outcome {
	started := time.Now()
	outcome := e.syncChange(cur, old, updated)
	e.metrics.RecordSync(context.Background(), outcome.String(), time.Since(started))
	return outcome
}

func (e *Engine) syncChange(cur string, old, updated Range) Outcome {
	if e.state != StateEmpty && cur == e.text {
		return OutcomeNoop
	}
	if e.state == StateEmpty || e.text == "" || cur == "" || len(e.items) == 0 {
		e.fullImport(cur)
		return OutcomeFull
	}

	a, b := clampRange(old, len(e.text))
	a2, b2 := clampRange(updated, len(cur))
	if !consistentEdit(e.text, cur, a, b, a2, b2) {
		e.logger.Debug("edit ranges do not describe the change, reimporting", "old", old, "new", updated)
		e.fullImport(cur)
		return OutcomeFull
	}

	first, last := e.influence(a, b)
	if first < 0 {
		e.fullImport(cur)
		return OutcomeFull
	}

	spanStart := min(e.index[first].Start, a)
	spanEnd := max(e.index[last].End, b)
	changedText := e.text[spanStart:a] + cur[a2:b2] + e.text[b:spanEnd]
	delta := (b2 - a2) - (b - a)
	docInitial := first == 0

	left := append([]logitem.LogItem(nil), e.items[:first]...)
	leftIndex := append([]logitem.IndexInfo(nil), e.index[:first]...)
	right := e.items[last+1:]
	rightIndex := make([]logitem.IndexInfo, 0, len(e.index)-last-1)
	for _, ii := range e.index[last+1:] {
		rightIndex = append(rightIndex, ii.Shift(delta))
	}

	res, ok := e.pipeline.Parse(e.pctx, changedText, docInitial)
	e.text = cur

	if !ok {
		e.state = StateDegraded
		if len(left) > 0 {
			left[len(left)-1].Message += changedText
			e.items = concat(left, right)
		} else {
			e.items = concat(res.Items, right)
		}
		e.logger.Debug("edit region no longer parses, merged as raw text", "start", spanStart, "bytes", len(changedText))
		e.flush()
		return OutcomeDegraded
	}

	e.registry.Merge(res.Chars)
	newItems := carryMetadata(e.items[first:last+1], res.Items)

	offset := spanStart
	if res.StartText != "" && len(left) > 0 {
		left[len(left)-1].Message += res.StartText
		leftIndex[len(leftIndex)-1].End += len(res.StartText)
		offset += len(res.StartText)
	}

	local := e.exporter.Export(newItems, offset)
	e.items = concat(concat(left, newItems), right)
	e.index = append(append(leftIndex, local.Index...), rightIndex...)

	if !res.Canonical() {
		e.flush()
		return OutcomeFlushed
	}
	if local.Text != changedText[len(res.StartText):] {
		e.flush()
		return OutcomeFlushed
	}
	e.state = StateSynced
	return OutcomeLocal
}

// influence returns the first and last index entries touched by an edit of
// [a, b), or -1 when none is. An edit starting exactly at the end of the
// document touches the last item.
func (e *Engine) influence(a, b int) (int, int) {
	first, last := -1, -1
	for i, ii := range e.index {
		if a < ii.End && b >= ii.Start {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if n := len(e.index); n > 0 && e.index[n-1].End == a {
		if first < 0 {
			first = n - 1
		}
		last = n - 1
	}
	return first, last
}

func (e *Engine) fullImport(text string) {
	e.pctx = importer.NewParseContext(e.registry.Len(), e.exporter.Location)
	res, ok := e.pipeline.Parse(e.pctx, text, true)
	if !ok {
		e.logger.Debug("document did not match any importer, kept as raw text", "bytes", len(text))
	}
	e.registry.Merge(res.Chars)
	e.items = res.Items

	out := e.exporter.Export(e.items, 0)
	e.text = out.Text
	e.index = out.Index
	e.state = StateSynced

	e.textSet.emit(e.text)
	e.parsed.emit(e.Snapshot())
}

func (e *Engine) flush() {
	out := e.exporter.Export(e.items, 0)
	changed := out.Text != e.text
	e.text = out.Text
	e.index = out.Index
	e.state = StateSynced
	e.metrics.RecordFlush(context.Background())

	if changed {
		e.textSet.emit(e.text)
	}
	e.parsed.emit(e.Snapshot())
}

// carryMetadata copies store-assigned fields from the items an edit replaced
// onto their re-derived counterparts. Items are matched in order by speaker
// and timestamp.
func carryMetadata(old, fresh []logitem.LogItem) []logitem.LogItem {
	j := 0
	for i := range fresh {
		n := &fresh[i]
		if n.IsRaw {
			continue
		}
		for k := j; k < len(old); k++ {
			o := old[k]
			if o.IsRaw || o.Key() != n.Key() || o.Time != n.Time || o.TimeText != n.TimeText {
				continue
			}
			if n.ID == 0 {
				n.ID = o.ID
			}
			n.IsDice = o.IsDice
			n.CommandID = o.CommandID
			n.CommandInfo = o.CommandInfo
			n.Role = o.Role
			n.Color = o.Color
			j = k + 1
			break
		}
	}
	return fresh
}

func clampRange(r Range, n int) (int, int) {
	start := min(max(r.Start, 0), n)
	end := min(max(r.End, start), n)
	return start, end
}

// consistentEdit reports whether replacing prev[a:b] with cur[a2:b2] turns
// prev into cur.
func consistentEdit(prev, cur string, a, b, a2, b2 int) bool {
	if a != a2 || len(prev)-(b-a)+(b2-a2) != len(cur) {
		return false
	}
	return prev[:a] == cur[:a] && prev[b:] == cur[b2:]
}

func concat(a, b []logitem.LogItem) []logitem.LogItem {
	out := make([]logitem.LogItem, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
