package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	response string
	err      error
	system   string
}

func (f *fakeClient) Complete(_ context.Context, systemPrompt, _ string) (string, error) {
	f.system = systemPrompt
	return f.response, f.err
}

type planShape struct {
	Steps []string `json:"steps"`
	Done  bool     `json:"done"`
}

func TestGenerateStructured_DecodesJSON(t *testing.T) {
	c := &fakeClient{response: `{"steps":["a","b"],"done":true}`}

	out, err := GenerateStructured[planShape](context.Background(), c, "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Steps)
	assert.True(t, out.Done)
	assert.Contains(t, c.system, "single JSON object")
}

func TestGenerateStructured_StripsFencesAndProse(t *testing.T) {
	c := &fakeClient{response: "Here you go:\n```json\n{\"steps\":[\"x\"],\"done\":false}\n```\nHope that helps."}

	out, err := GenerateStructured[planShape](context.Background(), c, "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Steps)
}

func TestGenerateStructured_MalformedIsTypedError(t *testing.T) {
	c := &fakeClient{response: "I cannot produce JSON today."}

	_, err := GenerateStructured[planShape](context.Background(), c, "sys", "user")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Raw, "cannot produce")
}

func TestGenerateStructured_PropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	c := &fakeClient{err: boom}

	_, err := GenerateStructured[planShape](context.Background(), c, "sys", "user")
	require.ErrorIs(t, err, boom)
}

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	r := NewRateLimiter(3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Acquire(ctx))
	}
	assert.Equal(t, 3, r.InFlight())
}

func TestRateLimiter_BlocksUntilWindowSlides(t *testing.T) {
	r := NewRateLimiter(2)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }
	slept := 0
	r.sleep = func(time.Duration) {
		slept++
		// Advance the clock past the window on the second wait.
		if slept >= 2 {
			now = now.Add(61 * time.Second)
		}
	}

	ctx := context.Background()
	require.NoError(t, r.Acquire(ctx))
	require.NoError(t, r.Acquire(ctx))
	require.NoError(t, r.Acquire(ctx)) // had to wait for the window to slide
	assert.GreaterOrEqual(t, slept, 2)
}

func TestRateLimiter_RespectsContextCancel(t *testing.T) {
	r := NewRateLimiter(1)
	fixed := time.Unix(2000, 0)
	r.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Acquire(ctx))

	r.sleep = func(time.Duration) { cancel() }
	err := r.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", `Sure: {"a":1}`, `{"a":1}`},
		{"array", `[1,2,3]`, `[1,2,3]`},
		{"trailing prose", `{"a":1} done`, `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}
