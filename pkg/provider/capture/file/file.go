// Package file implements capture.Source by re-reading an image file on every
// capture. Pair it with any external screenshot tool that keeps overwriting
// the same PNG or JPEG.
package file

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrWong99/ocrlite/pkg/provider/capture"
)

var _ capture.Source = (*Source)(nil)

// Option is a functional option for configuring a [Source].
type Option func(*Source)

// WithTitle sets the descriptor title. Default: the file's base name.
func WithTitle(title string) Option {
	return func(s *Source) {
		s.title = title
	}
}

// Source captures frames from an image file.
type Source struct {
	path  string
	title string
}

// New creates a file source. The file does not have to exist yet.
func New(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, errors.New("file source: path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("file source: resolve path: %w", err)
	}
	s := &Source{path: abs, title: filepath.Base(abs)}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Descriptor implements [capture.Source].
func (s *Source) Descriptor() capture.Descriptor {
	return capture.Descriptor{Handle: s.path, Title: s.title}
}

// Capture implements [capture.Source]. A missing file maps to
// [capture.ErrInvalidSource] and an empty file to [capture.ErrMinimized].
func (s *Source) Capture(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", capture.ErrInvalidSource, s.path)
		}
		return nil, fmt.Errorf("file source: open: %w", err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", capture.ErrMinimized, s.path)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("file source: decode %s: %w", filepath.Base(s.path), err)
	}
	if err := capture.CheckBounds(img.Bounds()); err != nil {
		return nil, err
	}
	return capture.ToRGBA(img), nil
}
