package main

import (
	"context"
	"fmt"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/backends/file"
	"github.com/polyrt/ffi/registry"
	"github.com/polyrt/ffi/value"
)

func main() {
	ctx := context.Background()

	// 1) Registry with the host-proxy loader already live.
	reg, err := registry.New(ctx)
	if err != nil {
		panic(err)
	}
	defer reg.Destroy(ctx)

	// 2) Register a host-supplied function, visible exactly like a guest
	// symbol to anything that calls invoke("greet", ...).
	if err := reg.RegisterHostFunction(ctx, "greet", func(args []*value.Value) (*value.Value, error) {
		name, err := args[0].ToString()
		if err != nil {
			return nil, err
		}
		return value.NewString("Hello, " + name + "!"), nil
	}, nil); err != nil {
		panic(err)
	}

	// 3) Register the file-style backend and load a script.
	if err := reg.RegisterBackend(ctx, "file", func() backend.Backend { return file.New() }); err != nil {
		panic(err)
	}

	h, err := reg.Load(ctx, "file", registry.Source{Kind: registry.SourceFile, Paths: []string{"/etc/hostname"}})
	if err != nil {
		panic(err)
	}

	// 4) Invoke the host-proxy function.
	out, err := reg.Invoke(ctx, "greet", []*value.Value{value.NewString("world")})
	if err != nil {
		panic(err)
	}
	greeting, err := out.ToString()
	if err != nil {
		panic(err)
	}
	fmt.Println(greeting)

	// 5) Unload the file handle; its symbols stop resolving.
	if err := reg.Unload(ctx, h); err != nil {
		panic(err)
	}
}
