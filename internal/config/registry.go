package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/ocrlite/pkg/provider/capture"
	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps implementation names to constructors for the two pluggable
// collaborators: image sources and recognizers. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	capture     map[string]func(ProviderEntry) (capture.Source, error)
	recognizers map[string]func(ProviderEntry) (ocr.Recognizer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		capture:     make(map[string]func(ProviderEntry) (capture.Source, error)),
		recognizers: make(map[string]func(ProviderEntry) (ocr.Recognizer, error)),
	}
}

// RegisterCapture registers an image source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name string, factory func(ProviderEntry) (capture.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterRecognizer registers a recognizer factory under name.
func (r *Registry) RegisterRecognizer(name string, factory func(ProviderEntry) (ocr.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[name] = factory
}

// CreateCapture instantiates an image source using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if there is none.
func (r *Registry) CreateCapture(entry ProviderEntry) (capture.Source, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateRecognizer instantiates a recognizer using the factory registered
// under entry.Name.
func (r *Registry) CreateRecognizer(entry ProviderEntry) (ocr.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.recognizers[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: recognizer/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// Names returns the sorted registered names for kind ("capture" or
// "recognizer").
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	switch kind {
	case "capture":
		for n := range r.capture {
			names = append(names, n)
		}
	case "recognizer":
		for n := range r.recognizers {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}
