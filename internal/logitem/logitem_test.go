package logitem

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferRole(t *testing.T) {
	assert.Equal(t, RoleHidden, InferRole("ObServer", false))
	assert.Equal(t, RoleHidden, InferRole("ob", true))
	assert.Equal(t, RoleDice, InferRole("Seal", true))
	assert.Equal(t, RoleCharacter, InferRole("Alice", false))
}

func TestExternalIDJSON(t *testing.T) {
	var doc struct {
		Items []LogItem `json:"items"`
	}
	data := `{"items":[{"nickname":"A","IMUserId":12345,"message":"x"},{"nickname":"B","IMUserId":"QQ:9","message":"y"},{"nickname":"C","IMUserId":null,"message":"z"}]}`
	require.NoError(t, json.Unmarshal([]byte(data), &doc))
	require.Len(t, doc.Items, 3)
	assert.Equal(t, ExternalID("12345"), doc.Items[0].ExternalID)
	assert.Equal(t, ExternalID("QQ:9"), doc.Items[1].ExternalID)
	assert.Equal(t, ExternalID(""), doc.Items[2].ExternalID)

	out, err := json.Marshal(doc.Items[0].ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(out))

	out, err = json.Marshal(ExternalID("007"))
	require.NoError(t, err)
	assert.Equal(t, `"007"`, string(out))
}

func TestKeys(t *testing.T) {
	item := LogItem{Nickname: "Alice", ExternalID: "111"}
	char := CharItem{Name: "Alice", ExternalID: "111"}
	assert.Equal(t, "Alice-111", item.Key())
	assert.Equal(t, item.Key(), char.Key())
	assert.NotEqual(t, item.Key(), PackKey("Alice", "112"))
}

func TestIndexInfoShift(t *testing.T) {
	ii := IndexInfo{Start: 3, Content: 10, End: 20}
	assert.Equal(t, IndexInfo{Start: 1, Content: 8, End: 18}, ii.Shift(-2))
}
