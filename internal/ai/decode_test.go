package ai

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanModelJSON(t *testing.T) {
	cases := map[string]string{
		"fenced":         "```json\n[{\"a\": 1}]\n```",
		"prose around":   "Aquí está el resultado: [{\"a\": 1}] espero que sirva",
		"trailing comma": "[{\"a\": 1,},]",
		"brackets in prose": "ver [1]: [{\"a\": 1}]",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, `[{"a": 1}]`, cleanModelJSON(raw))
		})
	}
	assert.Equal(t, "", cleanModelJSON("sin arreglo"))
}

func TestToAmount(t *testing.T) {
	got, ok := toAmount(json.Number("-120.456"))
	require.True(t, ok)
	assert.Equal(t, "120.46", got.String())

	got, ok = toAmount("$ 1.234,50")
	require.True(t, ok)
	assert.Equal(t, "1234.5", got.String())

	_, ok = toAmount(nil)
	assert.False(t, ok)
	_, ok = toAmount(true)
	assert.False(t, ok)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	r := NewRateLimiter(1)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
