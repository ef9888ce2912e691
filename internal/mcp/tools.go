package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storypaint/internal/annotate"
	"storypaint/internal/engine"
	"storypaint/internal/exporter"
	"storypaint/internal/importer"
	"storypaint/internal/logitem"
	"storypaint/internal/validate"
)

type ImportLogInput struct {
	Text     string `json:"text" jsonschema:"log text in any supported format"`
	Importer string `json:"importer,omitempty" jsonschema:"force one importer: json, canonical, platform, rendered, bracket or foundry"`
	To       string `json:"to,omitempty" jsonschema:"output format: canonical (default), qq or irc"`
}

type ExportLogInput struct {
	Items  []ItemOutput `json:"items" jsonschema:"log items to render"`
	Format string       `json:"format,omitempty" jsonschema:"canonical (default), qq or irc"`
}

type AnnotateCommandInput struct {
	CommandInfo string `json:"command_info" jsonschema:"command payload JSON attached by the dice bot"`
}

type SyncEditInput struct {
	Text     string `json:"text" jsonschema:"full document text after the edit"`
	OldStart int    `json:"old_start" jsonschema:"start of the replaced range in the previous text"`
	OldEnd   int    `json:"old_end" jsonschema:"end of the replaced range in the previous text"`
	NewStart int    `json:"new_start" jsonschema:"start of the replacement in the new text"`
	NewEnd   int    `json:"new_end" jsonschema:"end of the replacement in the new text"`
}

type GetDocumentInput struct{}

type ListCharactersInput struct {
	Prune bool `json:"prune,omitempty" jsonschema:"remove characters with no lines first"`
}

type ValidateDocumentInput struct {
	Text string `json:"text,omitempty" jsonschema:"validate this text instead of the live document"`
}

type ItemOutput struct {
	ID         uint64 `json:"id,omitempty"`
	Nickname   string `json:"nickname"`
	ExternalID string `json:"external_id,omitempty"`
	Time       int64  `json:"time"`
	TimeText   string `json:"time_text,omitempty"`
	Message    string `json:"message"`
	IsDice     bool   `json:"is_dice,omitempty"`
	IsRaw      bool   `json:"is_raw,omitempty"`
	Role       string `json:"role,omitempty"`
	Color      string `json:"color,omitempty"`
}

type CharacterOutput struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
	Role       string `json:"role"`
	Color      string `json:"color"`
}

type IndexOutput struct {
	Start   int `json:"start"`
	Content int `json:"content"`
	End     int `json:"end"`
}

type ImportLogOutput struct {
	Importer   string            `json:"importer"`
	Text       string            `json:"text"`
	Items      []ItemOutput      `json:"items"`
	Characters []CharacterOutput `json:"characters"`
}

type ExportLogOutput struct {
	Text  string        `json:"text"`
	Index []IndexOutput `json:"index,omitempty"`
}

type AnnotateCommandOutput struct {
	Markup     string `json:"markup"`
	Recognised bool   `json:"recognised"`
}

type SyncEditOutput struct {
	Outcome string       `json:"outcome"`
	State   string       `json:"state"`
	Text    string       `json:"text"`
	Items   []ItemOutput `json:"items"`
}

type DocumentOutput struct {
	State      string            `json:"state"`
	Text       string            `json:"text"`
	Items      []ItemOutput      `json:"items"`
	Index      []IndexOutput     `json:"index"`
	Characters []CharacterOutput `json:"characters"`
}

type ListCharactersOutput struct {
	Characters []CharacterOutput `json:"characters"`
	Removed    []CharacterOutput `json:"removed,omitempty"`
}

type IssueOutput struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Item     int    `json:"item"`
	Speaker  string `json:"speaker,omitempty"`
}

type ValidateDocumentOutput struct {
	Valid  bool          `json:"valid"`
	Issues []IssueOutput `json:"issues"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "import_log",
		Description: "Parse a log in any supported format and return it as canonical text and items",
	}, s.handleImportLog)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "export_log",
		Description: "Render log items as canonical text or a plain transcript",
	}, s.handleExportLog)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "annotate_command",
		Description: "Turn a dice bot command payload into dice and hit point markup",
	}, s.handleAnnotateCommand)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "sync_edit",
		Description: "Apply one edit to the live document and reconcile its items",
	}, s.handleSyncEdit)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_document",
		Description: "Return the live document text, items, index and characters",
	}, s.handleGetDocument)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_characters",
		Description: "List the characters of the live document",
	}, s.handleListCharacters)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_document",
		Description: "Check that a document's text, items and index agree",
	}, s.handleValidateDocument)
}

func (s *Server) handleImportLog(ctx context.Context, req *sdk.CallToolRequest, input ImportLogInput) (*sdk.CallToolResult, ImportLogOutput, error) {
	if input.Text == "" {
		return nil, ImportLogOutput{}, fmt.Errorf("text is required")
	}
	loc, err := s.cfg.Location()
	if err != nil {
		return nil, ImportLogOutput{}, err
	}

	pipeline := s.pipeline
	if input.Importer != "" {
		kind, err := importer.ParseKind(input.Importer)
		if err != nil {
			return nil, ImportLogOutput{}, err
		}
		pipeline = importer.NewPipeline(importer.WithOrder(kind), importer.WithMetrics(s.metrics))
	}
	res, err := pipeline.Import(importer.NormalizeNewlines(input.Text), loc)
	if err != nil {
		return nil, ImportLogOutput{}, err
	}

	text, err := s.render(res.Items, input.To)
	if err != nil {
		return nil, ImportLogOutput{}, err
	}
	chars := make([]CharacterOutput, 0, len(res.Chars))
	for _, c := range res.Chars {
		chars = append(chars, characterOutput(c))
	}
	return nil, ImportLogOutput{
		Importer:   res.Kind.String(),
		Text:       text,
		Items:      itemOutputs(res.Items),
		Characters: chars,
	}, nil
}

func (s *Server) handleExportLog(ctx context.Context, req *sdk.CallToolRequest, input ExportLogInput) (*sdk.CallToolResult, ExportLogOutput, error) {
	items := make([]logitem.LogItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, logItemFromOutput(item))
	}
	if input.Format == "" || strings.EqualFold(input.Format, "canonical") {
		loc, err := s.cfg.Location()
		if err != nil {
			return nil, ExportLogOutput{}, err
		}
		out := exporter.Canonical{Location: loc, DiceTag: s.cfg.Export.DiceTag}.Export(items, 0)
		return nil, ExportLogOutput{Text: out.Text, Index: indexOutputs(out.Index)}, nil
	}
	text, err := s.render(items, input.Format)
	if err != nil {
		return nil, ExportLogOutput{}, err
	}
	return nil, ExportLogOutput{Text: text}, nil
}

func (s *Server) handleAnnotateCommand(ctx context.Context, req *sdk.CallToolRequest, input AnnotateCommandInput) (*sdk.CallToolResult, AnnotateCommandOutput, error) {
	if input.CommandInfo == "" {
		return nil, AnnotateCommandOutput{}, fmt.Errorf("command_info is required")
	}
	if !json.Valid([]byte(input.CommandInfo)) {
		return nil, AnnotateCommandOutput{}, fmt.Errorf("command_info is not valid JSON")
	}
	markup, ok := annotate.Annotate(logitem.LogItem{CommandInfo: json.RawMessage(input.CommandInfo)})
	return nil, AnnotateCommandOutput{Markup: markup, Recognised: ok}, nil
}

func (s *Server) handleSyncEdit(ctx context.Context, req *sdk.CallToolRequest, input SyncEditInput) (*sdk.CallToolResult, SyncEditOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := s.engine.SyncChange(
		input.Text,
		engine.Range{Start: input.OldStart, End: input.OldEnd},
		engine.Range{Start: input.NewStart, End: input.NewEnd},
	)
	snap := s.engine.Snapshot()
	return nil, SyncEditOutput{
		Outcome: outcome.String(),
		State:   s.engine.State().String(),
		Text:    s.engine.Text(),
		Items:   itemOutputs(snap.Items),
	}, nil
}

func (s *Server) handleGetDocument(ctx context.Context, req *sdk.CallToolRequest, input GetDocumentInput) (*sdk.CallToolResult, DocumentOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.engine.Snapshot()
	return nil, DocumentOutput{
		State:      s.engine.State().String(),
		Text:       s.engine.Text(),
		Items:      itemOutputs(snap.Items),
		Index:      indexOutputs(s.engine.Index()),
		Characters: characterOutputs(snap.Chars),
	}, nil
}

func (s *Server) handleListCharacters(ctx context.Context, req *sdk.CallToolRequest, input ListCharactersInput) (*sdk.CallToolResult, ListCharactersOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []CharacterOutput
	if input.Prune {
		removed = characterOutputs(s.engine.PruneCharacters())
	}
	return nil, ListCharactersOutput{
		Characters: characterOutputs(s.engine.Registry().List()),
		Removed:    removed,
	}, nil
}

func (s *Server) handleValidateDocument(ctx context.Context, req *sdk.CallToolRequest, input ValidateDocumentInput) (*sdk.CallToolResult, ValidateDocumentOutput, error) {
	loc, err := s.cfg.Location()
	if err != nil {
		return nil, ValidateDocumentOutput{}, err
	}
	options := validate.Options{
		Pipeline: s.pipeline,
		Exporter: exporter.Canonical{Location: loc, DiceTag: s.cfg.Export.DiceTag},
	}

	var report *validate.Report
	if input.Text != "" {
		eng, err := s.newEngine()
		if err != nil {
			return nil, ValidateDocumentOutput{}, err
		}
		eng.Load(importer.NormalizeNewlines(input.Text))
		report, err = validate.Run(eng, eng.Registry().List(), options)
		if err != nil {
			return nil, ValidateDocumentOutput{}, err
		}
	} else {
		s.mu.Lock()
		report, err = validate.Run(s.engine, s.engine.Registry().List(), options)
		s.mu.Unlock()
		if err != nil {
			return nil, ValidateDocumentOutput{}, err
		}
	}

	issues := make([]IssueOutput, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issues = append(issues, IssueOutput{
			Severity: string(issue.Severity),
			Code:     issue.Code,
			Message:  issue.Message,
			Item:     issue.Item,
			Speaker:  issue.Speaker,
		})
	}
	return nil, ValidateDocumentOutput{Valid: !report.HasErrors(), Issues: issues}, nil
}

func (s *Server) render(items []logitem.LogItem, format string) (string, error) {
	loc, err := s.cfg.Location()
	if err != nil {
		return "", err
	}
	if format == "" || strings.EqualFold(format, "canonical") {
		return exporter.Canonical{Location: loc, DiceTag: s.cfg.Export.DiceTag}.Export(items, 0).Text, nil
	}
	style, ok := exporter.ParseStyle(format)
	if !ok {
		return "", fmt.Errorf("unknown format: %s", format)
	}
	return exporter.Plain(items, style, s.cfg.PlainOptions(loc)), nil
}

func itemOutputs(items []logitem.LogItem) []ItemOutput {
	out := make([]ItemOutput, 0, len(items))
	for _, item := range items {
		out = append(out, ItemOutput{
			ID:         item.ID,
			Nickname:   item.Nickname,
			ExternalID: string(item.ExternalID),
			Time:       item.Time,
			TimeText:   item.TimeText,
			Message:    item.Message,
			IsDice:     item.IsDice,
			IsRaw:      item.IsRaw,
			Role:       string(item.Role),
			Color:      item.Color,
		})
	}
	return out
}

func logItemFromOutput(item ItemOutput) logitem.LogItem {
	return logitem.LogItem{
		ID:         item.ID,
		Nickname:   item.Nickname,
		ExternalID: logitem.ExternalID(item.ExternalID),
		Time:       item.Time,
		TimeText:   item.TimeText,
		Message:    item.Message,
		IsDice:     item.IsDice,
		IsRaw:      item.IsRaw,
		Role:       logitem.Role(item.Role),
		Color:      item.Color,
	}
}

func characterOutput(c logitem.CharItem) CharacterOutput {
	return CharacterOutput{
		Name:       c.Name,
		ExternalID: string(c.ExternalID),
		Role:       string(c.Role),
		Color:      c.Color,
	}
}

func characterOutputs(chars []logitem.CharItem) []CharacterOutput {
	out := make([]CharacterOutput, 0, len(chars))
	for _, c := range chars {
		out = append(out, characterOutput(c))
	}
	return out
}

func indexOutputs(index []logitem.IndexInfo) []IndexOutput {
	out := make([]IndexOutput, 0, len(index))
	for _, ii := range index {
		out = append(out, IndexOutput{Start: ii.Start, Content: ii.Content, End: ii.End})
	}
	return out
}
