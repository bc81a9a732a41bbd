package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	A    string   `json:"a" description:"Field A"`
	B    *int     `json:"b"`
	C    int      `json:"c,omitempty"`
	Mode string   `json:"mode" enum:"fast, slow"`
	Tags []string `json:"tags,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	assert.ElementsMatch(t, []string{"a", "mode"}, schema["required"])

	mode := props["mode"].(map[string]any)
	assert.Equal(t, []string{"fast", "slow"}, mode["enum"])

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, map[string]any{"type": "string"}, tags["items"])

	assert.Equal(t, "integer", props["b"].(map[string]any)["type"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	assert.Equal(t, "object", CreateSchema(42)["type"])
	assert.Equal(t, "object", CreateSchema(nil)["type"])
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain <text>", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain <text>", out)

	out, err = RenderTemplate("You are {{.agent}} with {{join \", \" .peers}} & {{upper .topic}}", map[string]any{
		"agent": "Writer",
		"peers": []string{"Validator", "Reviewer"},
		"topic": "go",
	})
	require.NoError(t, err)
	assert.Equal(t, "You are Writer with Validator, Reviewer & GO", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
