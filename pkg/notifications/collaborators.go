package notifications

import (
	"context"
	"strings"
	"sync"
)

// RecipientResolver computes the audience of an event. Each feature module
// (forums, messages, files, enrolment, surveys, timeline) provides its own.
type RecipientResolver interface {
	Recipients(ctx context.Context, event EventType, sourceRef int64) ([]int64, error)
}

// RecipientResolverFunc adapts a function to RecipientResolver.
type RecipientResolverFunc func(ctx context.Context, event EventType, sourceRef int64) ([]int64, error)

func (f RecipientResolverFunc) Recipients(ctx context.Context, event EventType, sourceRef int64) ([]int64, error) {
	return f(ctx, event, sourceRef)
}

// Summary is the display text of the content a notification refers to.
type Summary struct {
	Short string
	Long  string
}

// UnavailableSummary is shown when the referenced content cannot be summarized.
var UnavailableSummary = Summary{Short: "[unavailable]"}

// Summarizer describes the content behind a source reference.
type Summarizer interface {
	Summarize(ctx context.Context, event EventType, sourceRef int64) (Summary, error)
}

// Summarize asks s for a summary and degrades to UnavailableSummary when s is
// nil, fails, or returns nothing.
func Summarize(ctx context.Context, s Summarizer, event EventType, sourceRef int64) Summary {
	if s == nil {
		return UnavailableSummary
	}
	sum, err := s.Summarize(ctx, event, sourceRef)
	if err != nil || sum.Short == "" {
		return UnavailableSummary
	}
	return sum
}

// FileIndex answers whether a file reference lives under a folder.
type FileIndex interface {
	IsUnderPath(ctx context.Context, container, sourceRef int64, pathPrefix string) (bool, error)
}

// FileIndexStore is a FileIndex the file module keeps current as files are
// uploaded or moved.
type FileIndexStore interface {
	FileIndex
	SetFilePath(ctx context.Context, container, ref int64, path string) error
}

// PathIndex is an in-memory FileIndexStore keyed by (container, file reference).
type PathIndex struct {
	paths map[pathKey]string
	mu    sync.RWMutex
}

type pathKey struct {
	container int64
	ref       int64
}

// NewPathIndex creates an empty path index.
func NewPathIndex() *PathIndex {
	return &PathIndex{paths: make(map[pathKey]string)}
}

// Put records the path of a file.
func (p *PathIndex) Put(container, ref int64, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths[pathKey{container, ref}] = strings.Trim(path, "/")
}

func (p *PathIndex) SetFilePath(_ context.Context, container, ref int64, path string) error {
	p.Put(container, ref, path)
	return nil
}

// IsUnderPath reports whether the file is the folder itself or nested in it.
func (p *PathIndex) IsUnderPath(ctx context.Context, container, ref int64, pathPrefix string) (bool, error) {
	p.mu.RLock()
	path, ok := p.paths[pathKey{container, ref}]
	p.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return IsUnderPath(path, pathPrefix), nil
}

// IsUnderPath reports whether path equals prefix or is nested below it.
// "a/b" is under "a" but "ab" is not.
func IsUnderPath(path, prefix string) bool {
	path = strings.Trim(path, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
