package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/value"
)

// stubMessages is a MessagesClient test double that returns a fixed reply
// without hitting the network, so tests only exercise the backend's own
// request/response plumbing.
type stubMessages struct{}

func (stubMessages) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "echo: hello"},
		},
	}, nil
}

func TestCompleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New(stubMessages{}, "claude-test-model", 256)

	h, err := b.LoadFromPackage(ctx, b, "")
	require.NoError(t, err)

	root := scope.New()
	require.NoError(t, b.Discover(ctx, b, h, root))

	v, ok := root.Get("complete")
	require.True(t, ok)
	callable, err := v.ToCallable()
	require.NoError(t, err)

	out, err := callable.Invoke([]*value.Value{value.NewString("hello")})
	require.NoError(t, err)
	s, err := out.ToString()
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", s)
}

func TestCompleteRejectsWrongArity(t *testing.T) {
	ctx := context.Background()
	b := New(stubMessages{}, "claude-test-model", 256)

	h, err := b.LoadFromPackage(ctx, b, "")
	require.NoError(t, err)

	root := scope.New()
	require.NoError(t, b.Discover(ctx, b, h, root))

	v, _ := root.Get("complete")
	callable, _ := v.ToCallable()
	_, err = callable.Invoke(nil)
	assert.Error(t, err)
}
