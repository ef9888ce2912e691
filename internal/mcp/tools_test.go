package mcp

import (
	"context"
	"strings"
	"testing"

	"storypaint/internal/config"
)

const sample = "Alice(111) 2022/05/10 11:28:25\nHello world\nBob(222) 2022/05/10 11:28:30\nHi!\n"

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	server, err := NewServer(cfg, nil, nil, "test")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}

func TestImportLog(t *testing.T) {
	server := testServer(t)

	_, output, err := server.handleImportLog(context.Background(), nil, ImportLogInput{Text: sample})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Importer != "canonical" {
		t.Fatalf("expected canonical importer, got %s", output.Importer)
	}
	if output.Text != sample {
		t.Fatalf("expected %q, got %q", sample, output.Text)
	}
	if len(output.Items) != 2 || output.Items[0].Nickname != "Alice" || output.Items[0].ExternalID != "111" {
		t.Fatalf("unexpected items: %+v", output.Items)
	}
	if len(output.Characters) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(output.Characters))
	}
}

func TestImportLog_Errors(t *testing.T) {
	server := testServer(t)

	if _, _, err := server.handleImportLog(context.Background(), nil, ImportLogInput{}); err == nil {
		t.Fatalf("expected error for empty text")
	}
	if _, _, err := server.handleImportLog(context.Background(), nil, ImportLogInput{Text: sample, Importer: "docx"}); err == nil {
		t.Fatalf("expected error for unknown importer")
	}
	if _, _, err := server.handleImportLog(context.Background(), nil, ImportLogInput{Text: "nothing here\n"}); err == nil {
		t.Fatalf("expected error for unparsed text")
	}
	if _, _, err := server.handleImportLog(context.Background(), nil, ImportLogInput{Text: sample, To: "pdf"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestImportLog_ForcedImporter(t *testing.T) {
	server := testServer(t)

	_, _, err := server.handleImportLog(context.Background(), nil, ImportLogInput{Text: sample, Importer: "foundry"})
	if err == nil {
		t.Fatalf("expected canonical text to be rejected by the foundry importer")
	}
}

func TestExportLog(t *testing.T) {
	server := testServer(t)
	items := []ItemOutput{
		{Nickname: "Alice", ExternalID: "111", Time: 1652181505, Message: "Hello world\n"},
	}

	_, output, err := server.handleExportLog(context.Background(), nil, ExportLogInput{Items: items})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "Alice(111) 2022/05/10 11:18:25\nHello world\n"
	if output.Text != expected {
		t.Fatalf("expected %q, got %q", expected, output.Text)
	}
	if len(output.Index) != 1 || output.Index[0].End != len(expected) {
		t.Fatalf("unexpected index: %+v", output.Index)
	}

	_, output, err = server.handleExportLog(context.Background(), nil, ExportLogInput{Items: items, Format: "irc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output.Text, "<Alice(111)>:Hello world") {
		t.Fatalf("unexpected irc output: %q", output.Text)
	}
}

func TestAnnotateCommand(t *testing.T) {
	server := testServer(t)

	payload := `{"cmd":"roll","pcName":"Alice","items":[{"expr":"d20","result":12}]}`
	_, output, err := server.handleAnnotateCommand(context.Background(), nil, AnnotateCommandInput{CommandInfo: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Recognised || output.Markup != "<dice>:(Alice's d20,20,NA,12)" {
		t.Fatalf("unexpected annotate output: %+v", output)
	}

	if _, _, err := server.handleAnnotateCommand(context.Background(), nil, AnnotateCommandInput{CommandInfo: "{"}); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestSyncEditAndGetDocument(t *testing.T) {
	server := testServer(t)

	_, output, err := server.handleSyncEdit(context.Background(), nil, SyncEditInput{Text: sample, NewEnd: len(sample)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Outcome != "full" || len(output.Items) != 2 {
		t.Fatalf("unexpected sync output: %+v", output)
	}

	pos := strings.Index(sample, "world")
	edited := sample[:pos] + "there" + sample[pos+len("world"):]
	_, output, err = server.handleSyncEdit(context.Background(), nil, SyncEditInput{
		Text:     edited,
		OldStart: pos,
		OldEnd:   pos + len("world"),
		NewStart: pos,
		NewEnd:   pos + len("there"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Outcome != "local" || output.Items[0].Message != "Hello there\n" {
		t.Fatalf("unexpected sync output: %+v", output)
	}

	_, doc, err := server.handleGetDocument(context.Background(), nil, GetDocumentInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != edited || doc.State != "synced" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Index) != 2 || doc.Index[1].End != len(edited) {
		t.Fatalf("unexpected index: %+v", doc.Index)
	}
	if doc.Items[0].Color == "" {
		t.Fatalf("expected decorated items")
	}
}

func TestListCharacters_Prune(t *testing.T) {
	server := testServer(t)
	if _, _, err := server.handleSyncEdit(context.Background(), nil, SyncEditInput{Text: sample, NewEnd: len(sample)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bob := strings.Index(sample, "Bob(")
	trimmed := sample[:bob]
	if _, _, err := server.handleSyncEdit(context.Background(), nil, SyncEditInput{
		Text:     trimmed,
		OldStart: bob,
		OldEnd:   len(sample),
		NewStart: bob,
		NewEnd:   bob,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, output, err := server.handleListCharacters(context.Background(), nil, ListCharactersInput{Prune: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Removed) != 1 || output.Removed[0].Name != "Bob" {
		t.Fatalf("expected Bob to be pruned, got %+v", output.Removed)
	}
	if len(output.Characters) != 1 || output.Characters[0].Name != "Alice" {
		t.Fatalf("unexpected characters: %+v", output.Characters)
	}
}

func TestValidateDocument(t *testing.T) {
	server := testServer(t)

	_, output, err := server.handleValidateDocument(context.Background(), nil, ValidateDocumentInput{Text: sample})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Valid {
		t.Fatalf("expected valid document, got %+v", output.Issues)
	}

	_, output, err = server.handleValidateDocument(context.Background(), nil, ValidateDocumentInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Valid {
		t.Fatalf("expected empty live document to be valid, got %+v", output.Issues)
	}
}
