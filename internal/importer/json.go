package importer

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"storypaint/internal/logitem"
)

func checkJSON(text string) bool {
	if !gjson.Valid(text) {
		return false
	}
	first := gjson.Get(text, "items.0")
	return first.Get("isDice").Exists() && first.Get("message").Exists()
}

func parseJSON(pc *ParseContext, text string) *Result {
	var doc logitem.Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}
	for i := range doc.Items {
		doc.Items[i].Message += "\n\n"
	}
	return newResult(KindJSON, doc.Items, "")
}
