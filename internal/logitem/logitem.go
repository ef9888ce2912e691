package logitem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Role string

const (
	RoleHost      Role = "host"
	RoleCharacter Role = "character"
	RoleDice      Role = "dice"
	RoleHidden    Role = "hidden"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleHost, RoleCharacter, RoleDice, RoleHidden:
		return true
	}
	return false
}

// InferRole classifies a speaker that has no explicit role yet.
func InferRole(name string, isDice bool) Role {
	if strings.HasPrefix(strings.ToLower(name), "ob") {
		return RoleHidden
	}
	if isDice {
		return RoleDice
	}
	return RoleCharacter
}

// ExternalID is a speaker address on the originating platform. Chat exports
// carry it either as a JSON number or a string.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding external id: %w", err)
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding external id: %w", err)
	}
	*id = ExternalID(n.String())
	return nil
}

func (id ExternalID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s != "" && (s == "0" || s[0] != '0') {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return []byte(s), nil
		}
	}
	return json.Marshal(s)
}

// LogItem is one utterance of a session log.
type LogItem struct {
	ID          uint64          `json:"id,omitempty"`
	Nickname    string          `json:"nickname"`
	ExternalID  ExternalID      `json:"IMUserId"`
	Time        int64           `json:"time"`
	TimeText    string          `json:"timeText,omitempty"`
	Message     string          `json:"message"`
	IsDice      bool            `json:"isDice"`
	CommandID   int64           `json:"commandId"`
	CommandInfo json.RawMessage `json:"commandInfo,omitempty"`
	Role        Role            `json:"role,omitempty"`
	Color       string          `json:"color,omitempty"`
	IsRaw       bool            `json:"isRaw,omitempty"`
}

// Key returns the registry identity of the item's speaker.
func (item LogItem) Key() string {
	return PackKey(item.Nickname, item.ExternalID)
}

// Raw builds a header-less item holding free text.
func Raw(text string) LogItem {
	return LogItem{Nickname: "", Message: text, IsRaw: true}
}

type CharItem struct {
	Name       string     `json:"name"`
	ExternalID ExternalID `json:"IMUserId"`
	Role       Role       `json:"role"`
	Color      string     `json:"color,omitempty"`
}

func (c CharItem) Key() string {
	return PackKey(c.Name, c.ExternalID)
}

func PackKey(name string, id ExternalID) string {
	return name + "-" + string(id)
}

// IndexInfo maps one item to its byte range inside the canonical text.
type IndexInfo struct {
	Start   int `json:"indexStart"`
	Content int `json:"indexContent"`
	End     int `json:"indexEnd"`
}

func (ii IndexInfo) Shift(delta int) IndexInfo {
	return IndexInfo{Start: ii.Start + delta, Content: ii.Content + delta, End: ii.End + delta}
}

// Document is the structured form of a whole log file.
type Document struct {
	Items []LogItem `json:"items"`
}
