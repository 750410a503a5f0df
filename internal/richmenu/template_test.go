package richmenu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesCatalog(t *testing.T) {
	all := Templates()
	require.Len(t, all, 12)
	assert.Len(t, LargeTemplates(), 7)
	assert.Len(t, CompactTemplates(), 5)
	assert.Equal(t, "large-1", DefaultTemplate().ID)

	for _, tpl := range all {
		m := tpl.NewDesign().ToRichMenu(tpl.Size())
		for i := range m.Areas {
			m.Areas[i].Action = Action{Type: ActionTypeMessage, Text: "x"}
		}
		assert.NoError(t, Validate(&m), "template %s", tpl.ID)
	}
}

func TestTemplateGroupsSplitAtThreshold(t *testing.T) {
	boundary := Template{Width: 2500, Height: CompactHeightThreshold}
	assert.False(t, boundary.IsLarge())
	assert.False(t, boundary.IsCompact())

	assert.True(t, Template{Height: 1686}.IsLarge())
	assert.True(t, Template{Height: 843}.IsCompact())

	for _, tpl := range LargeTemplates() {
		assert.Greater(t, tpl.Height, CompactHeightThreshold, tpl.ID)
	}
	for _, tpl := range CompactTemplates() {
		assert.Less(t, tpl.Height, CompactHeightThreshold, tpl.ID)
	}
}

func TestTemplatesReturnsCopies(t *testing.T) {
	first := Templates()
	first[0].Areas[0].X = 999

	again, ok := TemplateByID(first[0].ID)
	require.True(t, ok)
	assert.Equal(t, 0, again.Areas[0].X)
}

func TestTemplateReset(t *testing.T) {
	tpl, ok := TemplateByID("large-3")
	require.True(t, ok)
	require.Equal(t, "https://example.com/1", tpl.Areas[0].Action.URI)

	areas := tpl.Reset()
	require.Len(t, areas, 4)
	for i, a := range areas {
		assert.Equal(t, EmptyAction(), a.Action)
		assert.Equal(t, tpl.Areas[i].X, a.X)
		assert.Equal(t, tpl.Areas[i].Width, a.Width)
	}
	// the catalog itself keeps its placeholder actions
	again, _ := TemplateByID("large-3")
	assert.Equal(t, "https://example.com/1", again.Areas[0].Action.URI)
}

func TestMatchTemplate(t *testing.T) {
	tpl, ok := MatchTemplate(Size{Width: 2500, Height: 843}, 2)
	require.True(t, ok)
	assert.Equal(t, "small-2", tpl.ID)

	tpl, ok = MatchTemplate(Size{Width: 2500, Height: 1686}, 3)
	require.True(t, ok)
	assert.Equal(t, "large-4", tpl.ID)

	_, ok = MatchTemplate(Size{Width: 2500, Height: 1686}, 5)
	assert.False(t, ok)
}

func TestTemplateByIDUnknown(t *testing.T) {
	_, ok := TemplateByID("nope")
	assert.False(t, ok)
}

func TestParseTemplatesRejectsDuplicates(t *testing.T) {
	_, err := parseTemplates([]byte("templates:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)

	_, err = parseTemplates([]byte("templates:\n  - name: nameless\n"))
	assert.Error(t, err)
}
