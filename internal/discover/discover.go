// Package discover walks a repository and yields readable source units.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/text/encoding/unicode"

	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/lang"
	"github.com/phobologic/callrank/internal/model"
)

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// DecodePolicy controls how undecodable file contents are handled.
type DecodePolicy string

const (
	// DecodeReplace substitutes U+FFFD for invalid UTF-8 and keeps the file.
	DecodeReplace DecodePolicy = "replace"
	// DecodeStrict skips files that are not valid UTF-8.
	DecodeStrict DecodePolicy = "strict"
)

// DefaultExtensions is the extension allow-list used when none is configured.
var DefaultExtensions = []string{".py"}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Options configures a Scanner.
type Options struct {
	Extensions       []string
	RespectGitignore bool
	MaxFileSize      int64
	Decode           DecodePolicy
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Extensions:       DefaultExtensions,
		RespectGitignore: true,
		MaxFileSize:      DefaultMaxFileSize,
		Decode:           DecodeReplace,
	}
}

// AcquisitionError reports that the root directory cannot be scanned at all.
type AcquisitionError struct {
	Root string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %s: %v", e.Root, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// DecodeWarning records a file that was skipped or only partly decoded.
type DecodeWarning struct {
	Path   string
	Reason string
	Err    error
}

func (w DecodeWarning) Error() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s: %v", w.Path, w.Reason, w.Err)
	}
	return fmt.Sprintf("%s: %s", w.Path, w.Reason)
}

// Skipped reports whether the file was dropped from the run.
func (w DecodeWarning) Skipped() bool {
	return w.Reason != reasonReplaced
}

const (
	reasonUnreadable = "unreadable"
	reasonTooLarge   = "exceeds size limit"
	reasonInvalid    = "invalid UTF-8"
	reasonReplaced   = "invalid UTF-8 replaced"
	reasonWalk       = "walk error"
)

var errNotDir = errors.New("not a directory")

// Scanner yields SourceUnits for files under a root directory.
// A Scanner is single-use: call Units once, then inspect Warnings and Err.
type Scanner struct {
	root     string
	opts     Options
	allowed  map[string]struct{}
	gi       *ignore.GitIgnore
	warnings []DecodeWarning
	err      error
}

// New validates root and returns a Scanner. A missing, unreadable or
// non-directory root yields an *AcquisitionError.
func New(root string, opts Options) (*Scanner, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &AcquisitionError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &AcquisitionError{Root: root, Err: errNotDir}
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, &AcquisitionError{Root: root, Err: err}
	}

	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Decode == "" {
		opts.Decode = DecodeReplace
	}

	s := &Scanner{
		root:    root,
		opts:    opts,
		allowed: NormalizeExtensions(opts.Extensions),
	}
	if opts.RespectGitignore {
		s.gi = loadGitignore(root)
	}
	return s, nil
}

// NormalizeExtensions lower-cases extensions and adds a missing leading dot.
func NormalizeExtensions(exts []string) map[string]struct{} {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return allowed
}

// SkipDir reports whether a directory with this name is never scanned.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || strings.HasPrefix(name, ".")
}

// Root returns the directory being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// Accepts reports whether rel (relative to root) would be scanned, ignoring
// file size and contents.
func (s *Scanner) Accepts(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if part == "." || part == "" {
			continue
		}
		if SkipDir(part) {
			return false
		}
	}
	name := filepath.Base(rel)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if s.gi != nil && s.gi.MatchesPath(rel) {
		return false
	}
	_, ok := s.allowed[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Units returns a lazy sequence of source units in lexical path order.
// Per-file problems are recorded as warnings and never stop the walk.
// Cancelling ctx stops the walk and is reported by Err.
func (s *Scanner) Units(ctx context.Context) iter.Seq[model.SourceUnit] {
	logger := ctxlog.FromContext(ctx)

	return func(yield func(model.SourceUnit) bool) {
		_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.err = ctxErr
				return filepath.SkipAll
			}

			rel, relErr := filepath.Rel(s.root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if err != nil {
				if path != s.root {
					s.warn(logger, DecodeWarning{Path: rel, Reason: reasonWalk, Err: err})
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			name := d.Name()

			if d.IsDir() {
				if path == s.root {
					return nil
				}
				if SkipDir(name) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip symlinks
			if d.Type()&os.ModeSymlink != 0 {
				return nil
			}

			if !s.Accepts(rel) {
				return nil
			}

			unit, ok := s.read(logger, path, rel)
			if !ok {
				return nil
			}
			if !yield(unit) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Warnings returns the per-file problems recorded so far.
func (s *Scanner) Warnings() []DecodeWarning {
	return s.warnings
}

// Err returns the error that stopped the walk early, if any.
func (s *Scanner) Err() error {
	return s.err
}

func (s *Scanner) read(logger *slog.Logger, path, rel string) (model.SourceUnit, bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.warn(logger, DecodeWarning{Path: rel, Reason: reasonUnreadable, Err: err})
		return model.SourceUnit{}, false
	}
	if info.Size() > s.opts.MaxFileSize {
		s.warn(logger, DecodeWarning{Path: rel, Reason: reasonTooLarge})
		return model.SourceUnit{}, false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		s.warn(logger, DecodeWarning{Path: rel, Reason: reasonUnreadable, Err: err})
		return model.SourceUnit{}, false
	}

	valid := utf8.Valid(raw)
	if !valid && s.opts.Decode == DecodeStrict {
		s.warn(logger, DecodeWarning{Path: rel, Reason: reasonInvalid})
		return model.SourceUnit{}, false
	}

	text, err := decode(raw)
	if err != nil {
		s.warn(logger, DecodeWarning{Path: rel, Reason: reasonUnreadable, Err: err})
		return model.SourceUnit{}, false
	}
	if !valid {
		s.warn(logger, DecodeWarning{Path: rel, Reason: reasonReplaced})
	}

	ext := filepath.Ext(rel)
	return model.SourceUnit{
		Path:      rel,
		Extension: ext,
		Language:  lang.ForExtension(ext),
		Text:      text,
	}, true
}

func (s *Scanner) warn(logger *slog.Logger, w DecodeWarning) {
	s.warnings = append(s.warnings, w)
	msg := "skipping file"
	if !w.Skipped() {
		msg = "decoded file with replacement characters"
	}
	logger.Warn(msg, "path", w.Path, "reason", w.Reason, "err", w.Err)
}

// decode strips a UTF-8 BOM and replaces invalid sequences with U+FFFD.
func decode(raw []byte) (string, error) {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
