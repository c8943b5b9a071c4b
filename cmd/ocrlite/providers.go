package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/ocrlite/internal/config"
	"github.com/MrWong99/ocrlite/internal/resilience"
	"github.com/MrWong99/ocrlite/pkg/provider/capture"
	"github.com/MrWong99/ocrlite/pkg/provider/capture/file"
	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
	"github.com/MrWong99/ocrlite/pkg/provider/ocr/openaivision"
	"github.com/MrWong99/ocrlite/pkg/provider/ocr/tesseract"
)

// registerBuiltinProviders wires the image sources and recognizers that ship
// with ocrlite into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Capture ───────────────────────────────────────────────────────────────

	// file re-reads a screenshot written by an external tool. The path comes
	// from options.path.
	reg.RegisterCapture("file", func(entry config.ProviderEntry) (capture.Source, error) {
		path := entry.StringOption("path")
		if path == "" {
			return nil, errors.New("capture file: options.path is required")
		}
		var opts []file.Option
		if title := entry.StringOption("title"); title != "" {
			opts = append(opts, file.WithTitle(title))
		}
		return file.New(path, opts...)
	})

	// ── Recognizers ───────────────────────────────────────────────────────────

	reg.RegisterRecognizer("tesseract", func(entry config.ProviderEntry) (ocr.Recognizer, error) {
		opts := []tesseract.Option{
			tesseract.WithBinary(entry.StringOption("binary")),
		}
		if psm := entry.IntOption("psm", 0); psm > 0 {
			opts = append(opts, tesseract.WithPageSegMode(psm))
		}
		return tesseract.New(opts...), nil
	})

	reg.RegisterRecognizer(openaivision.Name, func(entry config.ProviderEntry) (ocr.Recognizer, error) {
		var opts []openaivision.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaivision.WithBaseURL(entry.BaseURL))
		}
		return openaivision.New(entry.APIKey, entry.Model, opts...)
	})

	for _, kind := range []string{"capture", "recognizer"} {
		for _, name := range reg.Names(kind) {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildCollaborators instantiates the configured image source and recognizer.
func buildCollaborators(cfg *config.Config, reg *config.Registry) (capture.Source, ocr.Recognizer, error) {
	source, err := reg.CreateCapture(cfg.Capture.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("create image source %q: %w", cfg.Capture.Source.Name, err)
	}
	slog.Info("provider created", "kind", "capture", "name", cfg.Capture.Source.Name, "title", source.Descriptor().Title)

	recognizer, err := reg.CreateRecognizer(cfg.Recognizer)
	if err != nil {
		return nil, nil, fmt.Errorf("create recognizer %q: %w", cfg.Recognizer.Name, err)
	}
	slog.Info("provider created", "kind", "recognizer", "name", recognizer.Name())

	if len(cfg.RecognizerFallbacks) == 0 {
		return source, recognizer, nil
	}
	fb := resilience.NewRecognizerFallback(recognizer, resilience.FallbackConfig{})
	for _, entry := range cfg.RecognizerFallbacks {
		r, err := reg.CreateRecognizer(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("create fallback recognizer %q: %w", entry.Name, err)
		}
		fb.AddFallback(r)
		slog.Info("provider created", "kind", "recognizer_fallback", "name", r.Name())
	}
	return source, fb, nil
}
