// Package staging provides per-invocation scratch directories for solver
// artifacts. Every directory name carries a fresh ULID, so concurrent
// executions never share a path.
package staging

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new lexically sortable identifier.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Options configures where areas are created.
type Options struct {
	Dir  string // parent directory; os.TempDir() when empty
	Keep bool   // leave the directory behind on Close
}

// Area is one scratch directory.
type Area struct {
	dir  string
	keep bool
}

// New creates a fresh area named <prefix>-<ulid> under opts.Dir.
func New(opts Options, prefix string) (*Area, error) {
	base := opts.Dir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	dir := filepath.Join(base, prefix+"-"+strings.ToLower(NewID()))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	return &Area{dir: dir, keep: opts.Keep}, nil
}

// Dir returns the area's path.
func (a *Area) Dir() string { return a.dir }

// Write stores content under name and returns the file path.
func (a *Area) Write(name, content string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("staging: invalid file name %q", name)
	}
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("staging: %w", err)
	}
	return path, nil
}

// Close removes the directory unless the area was opened with Keep.
func (a *Area) Close() error {
	if a == nil || a.keep {
		return nil
	}
	return os.RemoveAll(a.dir)
}
