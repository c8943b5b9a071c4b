// Package mock provides a test double for the translate.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Result: translate.Success("hallo")}
//	res, err := p.Translate(ctx, "hello")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

var _ translate.Provider = (*Provider)(nil)

// TranslateCall records a single invocation of Translate.
type TranslateCall struct {
	Ctx  context.Context
	Text string
}

// Provider is a mock implementation of translate.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Default: "Mock".
	ProviderName string

	// Result is returned by Translate when TranslateFunc is nil. A zero Result
	// echoes the input.
	Result translate.Result

	// TranslateFunc, if non-nil, computes the result of every call.
	TranslateFunc func(ctx context.Context, text string) (translate.Result, error)

	// Block makes Translate wait for ctx to be done and return its error.
	Block bool

	// Calls records every invocation of Translate in order.
	Calls []TranslateCall
}

// Name implements [translate.Provider].
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "Mock"
	}
	return p.ProviderName
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, text string) (translate.Result, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, TranslateCall{Ctx: ctx, Text: text})
	fn, res, block := p.TranslateFunc, p.Result, p.Block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return translate.Result{}, ctx.Err()
	}
	if fn != nil {
		return fn(ctx, text)
	}
	if res == (translate.Result{}) {
		return translate.Success(text), nil
	}
	return res, nil
}

// CallCount returns the number of Translate calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
