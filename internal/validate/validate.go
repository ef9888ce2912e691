package validate

import (
	"fmt"

	"storypaint/internal/exporter"
	"storypaint/internal/importer"
	"storypaint/internal/logitem"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeIndexCount          = "index_count_mismatch"
	codeIndexGap            = "index_gap"
	codeIndexOverlap        = "index_overlap"
	codeExportMismatch      = "export_mismatch"
	codeRoundTripMismatch   = "round_trip_mismatch"
	codeUnparsedDocument    = "unparsed_document"
	codeUnregisteredSpeaker = "unregistered_speaker"
	codeOrphanedCharacter   = "orphaned_character"
	codeUnparsedTime        = "unparsed_time"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	// Item is the position of the offending item, or -1 for the document.
	Item    int
	Speaker string
}

type Report struct {
	Issues []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Document is a canonical text together with the items and index derived
// from it.
type Document interface {
	Text() string
	Items() []logitem.LogItem
	Index() []logitem.IndexInfo
}

type Options struct {
	Pipeline *importer.Pipeline
	Exporter exporter.Canonical
}

func Run(doc Document, chars []logitem.CharItem, options Options) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}
	if options.Pipeline == nil {
		options.Pipeline = importer.NewPipeline()
	}

	text, items, index := doc.Text(), doc.Items(), doc.Index()
	issues := make([]Issue, 0)
	issues = append(issues, validateIndex(text, items, index)...)
	issues = append(issues, validateExport(text, items, options.Exporter)...)
	issues = append(issues, validateRoundTrip(text, items, options)...)
	issues = append(issues, validateSpeakers(items, chars)...)
	issues = append(issues, validateTimes(items)...)

	return &Report{Issues: issues}, nil
}

func validateIndex(text string, items []logitem.LogItem, index []logitem.IndexInfo) []Issue {
	if len(index) != len(items) {
		return []Issue{{
			Severity: SeverityError,
			Code:     codeIndexCount,
			Message:  fmt.Sprintf("%d index entries for %d items", len(index), len(items)),
			Item:     -1,
		}}
	}

	var issues []Issue
	pos := 0
	for i, ii := range index {
		switch {
		case ii.Start > pos:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeIndexGap,
				Message:  fmt.Sprintf("bytes %d-%d belong to no item", pos, ii.Start),
				Item:     i,
			})
		case ii.Start < pos:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeIndexOverlap,
				Message:  fmt.Sprintf("item starts at %d inside the previous item ending at %d", ii.Start, pos),
				Item:     i,
			})
		}
		if ii.Content < ii.Start || ii.End < ii.Content {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeIndexOverlap,
				Message:  fmt.Sprintf("malformed range %d/%d/%d", ii.Start, ii.Content, ii.End),
				Item:     i,
			})
		}
		pos = ii.End
	}
	if pos != len(text) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeIndexGap,
			Message:  fmt.Sprintf("index ends at %d but text is %d bytes", pos, len(text)),
			Item:     -1,
		})
	}
	return issues
}

func validateExport(text string, items []logitem.LogItem, ex exporter.Canonical) []Issue {
	if ex.Export(items, 0).Text == text {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Code:     codeExportMismatch,
		Message:  "re-exporting the items does not reproduce the text",
		Item:     -1,
	}}
}

func validateRoundTrip(text string, items []logitem.LogItem, options Options) []Issue {
	if text == "" {
		return nil
	}
	res, ok := options.Pipeline.Parse(importer.NewParseContext(0, options.Exporter.Location), text, true)
	if !ok {
		return []Issue{{
			Severity: SeverityWarn,
			Code:     codeUnparsedDocument,
			Message:  "text has no recognisable header lines",
			Item:     -1,
		}}
	}
	if len(res.Items) != len(items) {
		return []Issue{{
			Severity: SeverityError,
			Code:     codeRoundTripMismatch,
			Message:  fmt.Sprintf("text reads back as %d items, expected %d", len(res.Items), len(items)),
			Item:     -1,
		}}
	}
	for i := range items {
		a, b := items[i], res.Items[i]
		if a.IsRaw != b.IsRaw || a.Nickname != b.Nickname || a.ExternalID != b.ExternalID || a.Message != b.Message {
			return []Issue{{
				Severity: SeverityError,
				Code:     codeRoundTripMismatch,
				Message:  fmt.Sprintf("item reads back as %q(%s)", b.Nickname, b.ExternalID),
				Item:     i,
				Speaker:  a.Nickname,
			}}
		}
	}
	return nil
}

func validateSpeakers(items []logitem.LogItem, chars []logitem.CharItem) []Issue {
	registered := make(map[string]struct{}, len(chars))
	for _, c := range chars {
		registered[c.Key()] = struct{}{}
	}

	var issues []Issue
	used := make(map[string]struct{})
	for i, item := range items {
		if item.IsRaw {
			continue
		}
		key := item.Key()
		if _, ok := used[key]; ok {
			continue
		}
		used[key] = struct{}{}
		if _, ok := registered[key]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeUnregisteredSpeaker,
				Message:  "speaker is not in the character list",
				Item:     i,
				Speaker:  item.Nickname,
			})
		}
	}
	for _, c := range chars {
		if _, ok := used[c.Key()]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeOrphanedCharacter,
				Message:  "character has no lines",
				Item:     -1,
				Speaker:  c.Name,
			})
		}
	}
	return issues
}

func validateTimes(items []logitem.LogItem) []Issue {
	var issues []Issue
	for i, item := range items {
		if item.IsRaw || item.TimeText == "" {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeUnparsedTime,
			Message:  fmt.Sprintf("timestamp %q kept as text", item.TimeText),
			Item:     i,
			Speaker:  item.Nickname,
		})
	}
	return issues
}
