// Package anthropic is a demonstration non-file loader backend: it
// exposes a single discovered function, "complete", that forwards a
// string value through the Anthropic Claude Messages API and returns the
// reply's text as a string value. It exists to show the backend
// interface of §4.6 is not file-loader-specific.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/value"
)

// MessagesClient is the subset of the Anthropic SDK client the backend
// needs, matching *sdk.MessageService, so tests can substitute a stub.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Backend is the Anthropic demonstration backend.
type Backend struct {
	msg       MessagesClient
	model     string
	maxTokens int
}

// New builds a Backend from an existing Messages client, for tests and
// callers that already hold a configured SDK client.
func New(msg MessagesClient, model string, maxTokens int) *Backend {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Backend{msg: msg, model: model, maxTokens: maxTokens}
}

// NewFromAPIKey constructs a Backend against the real Anthropic API using
// the given key and model identifier.
func NewFromAPIKey(apiKey, model string) *Backend {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, model, 1024)
}

func (b *Backend) Initialize(host backend.Host) (any, error) { return b, nil }

func (b *Backend) ExecutionPath(ctx context.Context, data any, path string) error {
	return backend.Unsupported("execution_path")
}

func (b *Backend) LoadFromFile(ctx context.Context, data any, paths []string) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_file")
}

func (b *Backend) LoadFromMemory(ctx context.Context, data any, name string, buf []byte) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_memory")
}

// LoadFromPackage ignores path: the backend always exposes exactly one
// symbol, "complete".
func (b *Backend) LoadFromPackage(ctx context.Context, data any, path string) (*handle.Handle, error) {
	return handle.New([]string{"complete"}, nil), nil
}

func (b *Backend) Clear(ctx context.Context, data any, h *handle.Handle) error { return nil }

func (b *Backend) Discover(ctx context.Context, data any, h *handle.Handle, root *scope.Scope) error {
	sig := function.NewSignature(1)
	_ = sig.SetParameter(0, "prompt", "string")
	sig.SetReturn("string")

	fn, err := function.Create("complete", sig, b, b.FunctionInterface())
	if err != nil {
		return err
	}
	return root.Define("complete", value.NewFunction(fn))
}

func (b *Backend) Destroy(ctx context.Context, data any) error { return nil }

// FunctionInterface returns the dispatch table for "complete", bound to b.
// Each call builds a new table, so functions from separate Discover calls
// do not share one.
func (b *Backend) FunctionInterface() *function.DispatchTable {
	return &function.DispatchTable{
		Invoke: func(fn *function.Function, args []*value.Value) (*value.Value, error) {
			if len(args) != 1 {
				return nil, ferr.Newf(ferr.SignatureMismatch, "complete expects 1 argument, got %d", len(args))
			}
			prompt, err := args[0].ToString()
			if err != nil {
				return nil, ferr.Wrap(ferr.SignatureMismatch, "complete argument must be a string", err)
			}

			msg, err := b.msg.New(context.Background(), sdk.MessageNewParams{
				MaxTokens: int64(b.maxTokens),
				Model:     sdk.Model(b.model),
				Messages: []sdk.MessageParam{
					sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
				},
			})
			if err != nil {
				return nil, ferr.Wrap(ferr.BackendError, "anthropic messages.new", err)
			}

			var text string
			for _, block := range msg.Content {
				if block.Type == "text" {
					text += block.Text
				}
			}
			return value.NewString(text), nil
		},
	}
}
