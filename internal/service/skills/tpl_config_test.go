package skills

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTplConfig(t *testing.T) {
	tpl, err := ParseTplConfig([]byte(`{"customSystemPrompt":{"value":"be brief"},"temperature":{"value":0.4}}`))
	require.NoError(t, err)

	assert.False(t, tpl.IsEmpty())
	assert.Equal(t, "be brief", tpl.String("customSystemPrompt", "default"))
	assert.InDelta(t, 0.4, tpl.Float("temperature", 0.1), 1e-9)
	assert.InDelta(t, 0.1, tpl.Float("missing", 0.1), 1e-9)
}

func TestParseTplConfigEmpty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		tpl, err := ParseTplConfig([]byte(raw))
		require.NoError(t, err)
		assert.True(t, tpl.IsEmpty())
		assert.Equal(t, "fallback", tpl.String("anything", "fallback"))
	}
}

func TestParseTplConfigRejectsInvalid(t *testing.T) {
	_, err := ParseTplConfig([]byte(`{"broken":`))
	assert.Error(t, err)

	_, err = ParseTplConfig([]byte(`[1,2,3]`))
	assert.Error(t, err)
}

func TestTplConfigBareValues(t *testing.T) {
	tpl, err := ParseTplConfig([]byte(`{"customSystemPrompt":"plain","topP":"0.25","maxTokens":null}`))
	require.NoError(t, err)

	assert.Equal(t, "plain", tpl.String("customSystemPrompt", "x"))
	assert.InDelta(t, 0.25, tpl.Float("topP", 1), 1e-9)
	assert.InDelta(t, 2000, tpl.Float("maxTokens", 2000), 1e-9)
}

func TestTplConfigNonNumericFallsBack(t *testing.T) {
	tpl, err := ParseTplConfig([]byte(`{"temperature":{"value":"hot"},"topP":{"value":true}}`))
	require.NoError(t, err)

	assert.InDelta(t, 0.1, tpl.Float("temperature", 0.1), 1e-9)
	assert.InDelta(t, 1.0, tpl.Float("topP", 1.0), 1e-9)
}

func TestTplConfigKeysWithDots(t *testing.T) {
	tpl, err := ParseTplConfig([]byte(`{"a.b":{"value":"dotted"}}`))
	require.NoError(t, err)
	assert.Equal(t, "dotted", tpl.String("a.b", ""))
}

func TestTplConfigJSON(t *testing.T) {
	var holder struct {
		TplConfig TplConfig `json:"tplConfig"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tplConfig":{"maxTokens":{"value":64}}}`), &holder))
	assert.InDelta(t, 64, holder.TplConfig.Float("maxTokens", 0), 1e-9)

	data, err := json.Marshal(TplConfig{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	fromValues, err := TplConfigFromValues(map[string]any{"temperature": 0.3})
	require.NoError(t, err)
	data, err = json.Marshal(fromValues)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":{"value":0.3}}`, string(data))
}
