// Package mock provides a test double for the capture.Source interface.
package mock

import (
	"context"
	"image"
	"sync"

	"github.com/MrWong99/ocrlite/pkg/provider/capture"
)

var _ capture.Source = (*Source)(nil)

// Source is a mock implementation of capture.Source. Frames are returned in
// order; the last frame repeats once the list is exhausted.
type Source struct {
	mu sync.Mutex

	// Frames are the snapshots returned by Capture.
	Frames []*image.RGBA

	// Err, if non-nil, is returned by Capture instead of a frame.
	Err error

	// Desc is returned by Descriptor.
	Desc capture.Descriptor

	// CaptureCalls is the number of times Capture was called.
	CaptureCalls int
}

// Capture implements [capture.Source]. It returns a copy of the next frame.
func (s *Source) Capture(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.CaptureCalls
	s.CaptureCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Frames) == 0 {
		return nil, capture.ErrInvalidSource
	}
	idx = min(idx, len(s.Frames)-1)
	return capture.ToRGBA(s.Frames[idx]), nil
}

// Descriptor implements [capture.Source].
func (s *Source) Descriptor() capture.Descriptor {
	return s.Desc
}

// SetErr changes the error returned by subsequent captures.
func (s *Source) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// Calls returns the number of Capture calls so far.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CaptureCalls
}
