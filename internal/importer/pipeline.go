package importer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storypaint/internal/logitem"
	"storypaint/internal/observe"
)

var ErrUnparsed = errors.New("no importer recognised the text")

// Pipeline runs importers in a fixed order and uses the first one whose
// sniff accepts the text. A Pipeline holds no parse state and may be shared.
type Pipeline struct {
	order   []Importer
	metrics *observe.Metrics
	logger  *slog.Logger
}

type Option func(*Pipeline)

// WithOrder replaces the default sniffing order. Kinds left out are never
// tried.
func WithOrder(kinds ...Kind) Option {
	return func(p *Pipeline) {
		p.order = p.order[:0]
		for _, k := range kinds {
			if imp, ok := Lookup(k); ok {
				p.order = append(p.order, imp)
			}
		}
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, k := range DefaultOrder {
		imp, _ := Lookup(k)
		p.order = append(p.order, imp)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Order() []Kind {
	kinds := make([]Kind, 0, len(p.order))
	for _, imp := range p.order {
		kinds = append(kinds, imp.Kind)
	}
	return kinds
}

// Detect returns the first importer kind whose sniff accepts text.
func (p *Pipeline) Detect(text string) (Kind, bool) {
	for _, imp := range p.order {
		if imp.Check(text) {
			return imp.Kind, true
		}
	}
	return KindNone, false
}

// Parse sniffs and parses text. When no importer accepts it the boolean is
// false and the whole text comes back as StartText. With headItem set a
// non-empty StartText is turned into a leading raw item instead.
func (p *Pipeline) Parse(pc *ParseContext, text string, headItem bool) (*Result, bool) {
	for _, imp := range p.order {
		if !imp.Check(text) {
			continue
		}
		started := time.Now()
		res := imp.Parse(pc, text)
		if res == nil {
			continue
		}
		p.metrics.RecordImport(context.Background(), imp.Kind.String(), time.Since(started))
		if headItem && res.StartText != "" {
			res.Items = append([]logitem.LogItem{logitem.Raw(res.StartText)}, res.Items...)
			res.StartText = ""
		}
		return res, true
	}

	p.metrics.RecordUnparsed(context.Background())
	p.logger.Debug("no importer matched", "bytes", len(text))
	res := &Result{Kind: KindNone, StartText: text}
	if headItem && text != "" {
		res.Items = []logitem.LogItem{logitem.Raw(text)}
		res.StartText = ""
	}
	return res, false
}

// Import parses a whole standalone document with a fresh context.
func (p *Pipeline) Import(text string, loc *time.Location) (*Result, error) {
	res, ok := p.Parse(NewParseContext(0, loc), text, true)
	if !ok {
		return res, ErrUnparsed
	}
	return res, nil
}
