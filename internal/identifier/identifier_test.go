package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantGroup string
		wantName  string
	}{
		{name: "simple", input: "a:b", wantValid: true, wantGroup: "a", wantName: "b"},
		{name: "name keeps later separators", input: "core:ui:button", wantValid: true, wantGroup: "core", wantName: "ui:button"},
		{name: "nested name", input: "core:textures/ui/button", wantValid: true, wantGroup: "core", wantName: "textures/ui/button"},
		{name: "no separator", input: "noseparator"},
		{name: "separator only", input: ":"},
		{name: "empty group", input: ":b"},
		{name: "empty name", input: "a:"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := FromString(tt.input)
			assert.Equal(t, tt.wantValid, id.Valid())
			assert.Equal(t, tt.wantGroup, id.Group())
			assert.Equal(t, tt.wantName, id.Name())
			if tt.wantValid {
				assert.Equal(t, tt.input, id.String())
			} else {
				assert.Empty(t, id.String())
			}
		})
	}
}

func TestFromValues_RoundTrip(t *testing.T) {
	pairs := [][2]string{{"a", "b"}, {"core", "fonts/main"}, {"mod_1", "x.y"}}
	for _, p := range pairs {
		id := FromValues(p[0], p[1])
		require.True(t, id.Valid())
		back := FromString(id.String())
		assert.Equal(t, id, back)
	}

	assert.False(t, FromValues("", "b").Valid())
	assert.False(t, FromValues("a", "").Valid())
}

func TestForResource(t *testing.T) {
	t.Run("content type scheme", func(t *testing.T) {
		id := ForResource("textures://g:n")
		require.True(t, id.Valid())
		assert.Equal(t, "textures", id.ContentType())
		assert.Equal(t, "g:n", id.String())
		assert.Equal(t, "texture", id.ContentPrefix())
		assert.True(t, id.IsTexture())
	})

	t.Run("prefix scheme", func(t *testing.T) {
		id := ForResource("font://core:main")
		require.True(t, id.Valid())
		assert.Equal(t, "fonts", id.ContentType())
		assert.False(t, id.IsTexture())
	})

	t.Run("generic json", func(t *testing.T) {
		id := ForResource("json://core:data/config")
		require.True(t, id.Valid())
		assert.Equal(t, "json", id.ContentType())
		assert.Empty(t, id.ContentPrefix())
	})

	invalid := []string{
		"unknown://g:n",
		"textures://noseparator",
		"textures://:n",
		"textures:/g:n",
		"://g:n",
		"g:n",
		"",
	}
	for _, uri := range invalid {
		t.Run("invalid "+uri, func(t *testing.T) {
			assert.False(t, ForResource(uri).Valid())
		})
	}
}

func TestContentIdentifier(t *testing.T) {
	tex := ForResource("textures://core:ui/button")
	scoped := tex.ContentIdentifier()
	require.True(t, scoped.Valid())
	assert.Equal(t, "core:textures/ui/button", scoped.String())
	assert.Equal(t, "textures", scoped.ContentType())

	gm := ForResource("gamemode://core:arena").ContentIdentifier()
	assert.Equal(t, "core:gamemodes/arena", gm.String())

	data := ForResource("json://core:data/config")
	assert.Equal(t, data, data.ContentIdentifier())

	plain := FromString("core:x")
	assert.Equal(t, plain, plain.ContentIdentifier())

	assert.False(t, Identifier{}.ContentIdentifier().Valid())
}

func TestContentTable(t *testing.T) {
	ct, ok := ContentTypeForPrefix("texture")
	assert.True(t, ok)
	assert.Equal(t, "textures", ct)

	_, ok = ContentTypeForPrefix("")
	assert.False(t, ok)
	_, ok = ContentTypeForPrefix("textures")
	assert.False(t, ok)

	prefix, ok := PrefixForContentType("fonts")
	assert.True(t, ok)
	assert.Equal(t, "font", prefix)

	prefix, ok = PrefixForContentType("json")
	assert.True(t, ok)
	assert.Empty(t, prefix)

	_, ok = PrefixForContentType("sounds")
	assert.False(t, ok)

	assert.Equal(t, []string{"textures", "fonts", "gamemodes", "json"}, ContentTypes())
	assert.Equal(t, []string{"texture", "font", "gamemode"}, ResourcePrefixes())
}

func TestResourceID(t *testing.T) {
	assert.Equal(t, "textures://g:n", ForResource("texture://g:n").ResourceID())
	assert.Empty(t, FromString("g:n").ResourceID())
	assert.Empty(t, Identifier{}.ResourceID())
}
