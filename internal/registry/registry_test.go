package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storypaint/internal/logitem"
)

func TestRegister(t *testing.T) {
	r := New(nil)

	alice := r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "111"})
	assert.Equal(t, logitem.RoleCharacter, alice.Role)
	assert.Equal(t, DefaultPalette[0], alice.Color)

	dice := r.Register(logitem.LogItem{Nickname: "Seal", ExternalID: "1", IsDice: true})
	assert.Equal(t, logitem.RoleDice, dice.Role)
	assert.Equal(t, DefaultPalette[1], dice.Color)

	ob := r.Register(logitem.LogItem{Nickname: "ob_watcher", ExternalID: "2", IsDice: true})
	assert.Equal(t, logitem.RoleHidden, ob.Role)

	host := r.Register(logitem.LogItem{Nickname: "GM", ExternalID: "3", Role: logitem.RoleHost, Color: "#000000"})
	assert.Equal(t, logitem.RoleHost, host.Role)
	assert.Equal(t, "#000000", host.Color)

	assert.Equal(t, 4, r.Len())
}

func TestRegisterKeepsExisting(t *testing.T) {
	r := New(nil)
	r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "111"})
	again := r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "111", IsDice: true, Color: "#ffffff"})
	assert.Equal(t, logitem.RoleCharacter, again.Role)
	assert.Equal(t, DefaultPalette[0], again.Color)
	assert.Equal(t, 1, r.Len())

	r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "112"})
	assert.Equal(t, 2, r.Len())
}

func TestPaletteCycles(t *testing.T) {
	r := New([]string{"red", "blue"})
	var colors []string
	for _, name := range []string{"a", "b", "c"} {
		colors = append(colors, r.Register(logitem.LogItem{Nickname: name}).Color)
	}
	assert.Equal(t, []string{"red", "blue", "red"}, colors)
}

func TestSetRoleAndColor(t *testing.T) {
	r := New(nil)
	r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "111"})

	require.NoError(t, r.SetRole("Alice-111", logitem.RoleHost))
	require.NoError(t, r.SetColor("Alice-111", "#123456"))
	c, ok := r.Get("Alice", "111")
	require.True(t, ok)
	assert.Equal(t, logitem.RoleHost, c.Role)
	assert.Equal(t, "#123456", c.Color)

	assert.Error(t, r.SetRole("Alice-111", "villain"))
	assert.True(t, errors.Is(r.SetColor("Bob-1", "#fff"), ErrNotFound))
	assert.True(t, errors.Is(r.Remove("Bob-1"), ErrNotFound))
}

func TestPrune(t *testing.T) {
	r := New(nil)
	r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "111"})
	r.Register(logitem.LogItem{Nickname: "Bob", ExternalID: "222"})
	r.Register(logitem.LogItem{Nickname: "Carol", ExternalID: "333"})

	removed := r.Prune([]logitem.LogItem{
		{Nickname: "Alice", ExternalID: "111"},
		{Nickname: "Carol", ExternalID: "999"},
		logitem.Raw("Bob was here\n"),
	})
	require.Len(t, removed, 1)
	assert.Equal(t, "Bob", removed[0].Name)

	var names []string
	for _, c := range r.List() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Alice", "Carol"}, names)
}

func TestDecorate(t *testing.T) {
	r := New(nil)
	r.Register(logitem.LogItem{Nickname: "Alice", ExternalID: "111"})

	item := logitem.LogItem{Nickname: "Alice", ExternalID: "111"}
	r.Decorate(&item)
	assert.Equal(t, logitem.RoleCharacter, item.Role)
	assert.Equal(t, DefaultPalette[0], item.Color)
}
