package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitingest-mcp/server/internal/apperr"
)

func repoSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"url":     {Type: "string"},
			"branch":  {Type: "string"},
			"timeout": {Type: "number"},
			"readme":  {Type: "boolean"},
			"paths":   {Type: "array"},
			"extra":   {Type: "object"},
		},
		Required: []string{"url"},
	}
}

func TestValidateParamsRequired(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		errMsg string
	}{
		{"present", map[string]any{"url": "https://github.com/o/r"}, ""},
		{"missing", map[string]any{"branch": "main"}, "missing required parameter(s): url"},
		{"nil params", nil, "missing required parameter(s): url"},
		{"empty string", map[string]any{"url": ""}, "missing required parameter(s): url"},
		{"blank string", map[string]any{"url": "   "}, "missing required parameter(s): url"},
		{"nil value", map[string]any{"url": nil}, "missing required parameter(s): url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(repoSchema(), tt.params)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errMsg, err.Error())
			assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
		})
	}
}

func TestValidateParamsTypes(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		errMsg string
	}{
		{
			name: "all correct",
			params: map[string]any{
				"url": "u", "branch": "main", "timeout": float64(30), "readme": true,
				"paths": []any{"a"}, "extra": map[string]any{"k": "v"},
			},
		},
		{"number as string", map[string]any{"url": "u", "timeout": "30"}, `parameter "timeout": expected number, got string`},
		{"string as number", map[string]any{"url": "u", "branch": float64(1)}, `parameter "branch": expected string, got float64`},
		{"bool as string", map[string]any{"url": "u", "readme": "yes"}, `parameter "readme": expected boolean, got string`},
		{"array as string", map[string]any{"url": "u", "paths": "a"}, `parameter "paths": expected array, got string`},
		{"object as string", map[string]any{"url": "u", "extra": "x"}, `parameter "extra": expected object, got string`},
		{"undeclared passes", map[string]any{"url": "u", "other": 1}, ""},
		{"nil skips type check", map[string]any{"url": "u", "branch": nil}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(repoSchema(), tt.params)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errMsg, err.Error())
		})
	}
}

func TestArgHelpers(t *testing.T) {
	params := map[string]any{"s": "  v  ", "b": true, "n": float64(2.5), "wrong": 3}
	assert.Equal(t, "v", StringArg(params, "s"))
	assert.Equal(t, "", StringArg(params, "wrong"))
	assert.True(t, BoolArg(params, "b"))
	assert.False(t, BoolArg(params, "missing"))
	assert.Equal(t, 2.5, NumberArg(params, "n"))
	assert.Zero(t, NumberArg(params, "s"))
}

type echoTool struct {
	name  string
	calls int
	err   error
}

func (e *echoTool) Definition() Tool {
	return Tool{Name: e.name, InputSchema: InputSchema{
		Type:       "object",
		Properties: map[string]Property{"text": {Type: "string"}},
		Required:   []string{"text"},
	}}
}

func (e *echoTool) Call(_ context.Context, params map[string]any) (*ToolCallResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return TextResult(params["text"].(string)), nil
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry(&echoTool{name: "zeta"}, &echoTool{name: "alpha"})
	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestRegistryCall(t *testing.T) {
	echo := &echoTool{name: "echo"}
	r := NewRegistry(echo)

	res, err := r.Call(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.Equal(t, "hi", res.Content[0].Text)
	assert.False(t, res.IsError)
}

func TestRegistryCallUnknownTool(t *testing.T) {
	_, err := NewRegistry().Call(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnknownTool))
	assert.Equal(t, "Unknown tool: nope", err.Error())
}

func TestRegistryCallValidatesBeforeRunning(t *testing.T) {
	echo := &echoTool{name: "echo"}
	_, err := NewRegistry(echo).Call(context.Background(), "echo", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, "missing required parameter(s): text", err.Error())
	assert.Zero(t, echo.calls)
}

func TestRegistryCallPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRegistry(&echoTool{name: "echo", err: boom}).Call(context.Background(), "echo", map[string]any{"text": "x"})
	assert.ErrorIs(t, err, boom)
}
