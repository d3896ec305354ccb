package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
)

var _ llm.Provider = (*Provider)(nil)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "", "")
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(context.Background(), "key", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.model)
	assert.Equal(t, "gemini", p.Name())
}

func TestToContents(t *testing.T) {
	contents := toContents([]llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: "other", Content: "?"},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, genai.RoleUser, contents[2].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}
