// Package tesseract implements ocr.Recognizer by running the tesseract CLI.
//
// Each recognition encodes the region as PNG, pipes it to
// "tesseract stdin stdout" and reads the text from stdout. Language tags are
// mapped to tesseract's traineddata names; when the mapped data is not
// installed (per "tesseract --list-langs") the recognizer falls back to
// tesseract's default model and reports "auto".
package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
)

var _ ocr.Recognizer = (*Recognizer)(nil)

// Name is the engine label reported by [Recognizer.Name].
const Name = "tesseract"

// languageCodes maps language tags to tesseract traineddata names.
var languageCodes = map[string]string{
	"ja":      "jpn",
	"ko":      "kor",
	"en":      "eng",
	"zh":      "chi_sim",
	"zh-cn":   "chi_sim",
	"zh-hans": "chi_sim",
	"zh-tw":   "chi_tra",
	"zh-hant": "chi_tra",
	"de":      "deu",
	"fr":      "fra",
	"es":      "spa",
	"it":      "ita",
	"pt":      "por",
	"ru":      "rus",
	"vi":      "vie",
	"th":      "tha",
}

// Runner executes the tesseract binary with args, feeding stdin, and returns
// its stdout.
type Runner func(ctx context.Context, stdin []byte, binary string, args ...string) ([]byte, error)

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithBinary sets the tesseract executable. Default: "tesseract" from PATH.
func WithBinary(path string) Option {
	return func(r *Recognizer) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithPageSegMode sets the --psm value. Default: 6 (single uniform block).
func WithPageSegMode(psm int) Option {
	return func(r *Recognizer) {
		r.psm = psm
	}
}

// WithRunner replaces process execution. Tests use it to avoid a real binary.
func WithRunner(run Runner) Option {
	return func(r *Recognizer) {
		if run != nil {
			r.run = run
		}
	}
}

// Recognizer runs tesseract once per recognition.
type Recognizer struct {
	binary string
	psm    int
	run    Runner

	mu     sync.Mutex
	active string
	code   string
}

// New creates a tesseract recognizer. Call Init before Recognize; until then
// the default model is used.
func New(opts ...Option) *Recognizer {
	r := &Recognizer{
		binary: "tesseract",
		psm:    6,
		run:    execRunner,
		active: ocr.AutoLanguage,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func execRunner(ctx context.Context, stdin []byte, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Name implements [ocr.Recognizer].
func (r *Recognizer) Name() string {
	return Name
}

// Init implements [ocr.Recognizer].
func (r *Recognizer) Init(ctx context.Context, lang string) (string, error) {
	lang = ocr.NormalizeLanguage(lang)

	code, ok := lookupCode(lang)
	if ok {
		installed, err := r.installedLanguages(ctx)
		if err != nil {
			return "", fmt.Errorf("tesseract: list languages: %w", err)
		}
		if !installed[code] {
			ok = false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		r.active, r.code = ocr.AutoLanguage, ""
		return r.active, nil
	}
	r.active, r.code = lang, code
	return r.active, nil
}

// lookupCode maps lang to a traineddata name, trying the full tag before the
// primary subtag.
func lookupCode(lang string) (string, bool) {
	if lang == ocr.AutoLanguage {
		return "", false
	}
	if code, ok := languageCodes[lang]; ok {
		return code, true
	}
	if primary, _, found := strings.Cut(lang, "-"); found {
		code, ok := languageCodes[primary]
		return code, ok
	}
	return "", false
}

func (r *Recognizer) installedLanguages(ctx context.Context) (map[string]bool, error) {
	out, err := r.run(ctx, nil, r.binary, "--list-langs")
	if err != nil {
		return nil, err
	}
	langs := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// The first line is a header such as `List of available languages in "/usr/share/tessdata/" (3):`.
		if line == "" || strings.Contains(line, " ") {
			continue
		}
		langs[line] = true
	}
	return langs, sc.Err()
}

// Recognize implements [ocr.Recognizer].
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("tesseract: encode region: %w", err)
	}

	r.mu.Lock()
	code := r.code
	r.mu.Unlock()

	args := []string{"stdin", "stdout", "--psm", strconv.Itoa(r.psm)}
	if code != "" {
		args = append(args, "-l", code)
	}
	out, err := r.run(ctx, buf.Bytes(), r.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("tesseract: recognize: %w", err)
	}
	return strings.TrimRight(string(out), "\f\n"), nil
}
