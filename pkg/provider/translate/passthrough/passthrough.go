// Package passthrough provides the translate.Provider used when no translation
// backend is selected. It returns its input unchanged and never fails.
package passthrough

import (
	"context"

	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

var _ translate.Provider = Provider{}

// Name is the label reported by [Provider.Name].
const Name = "None"

// Provider is the identity translator.
type Provider struct{}

// New returns a passthrough provider.
func New() Provider {
	return Provider{}
}

// Name implements [translate.Provider].
func (Provider) Name() string {
	return Name
}

// Translate implements [translate.Provider]. It returns text as-is; blank
// input yields an empty result.
func (Provider) Translate(_ context.Context, text string) (translate.Result, error) {
	if translate.Blank(text) {
		return translate.Success(""), nil
	}
	return translate.Success(text), nil
}
