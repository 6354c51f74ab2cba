package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"triage/internal/fsys"
	"triage/internal/logging"
	"triage/internal/media"
)

// Candidate is one file eligible for review.
type Candidate struct {
	Filepath  string
	Name      string
	MediaType media.Type
	FileSize  int64
}

// Result summarizes a completed scan.
type Result struct {
	Candidates []Candidate
	// Skipped lists roots that could not be walked.
	Skipped []string
	// Errors counts entries that could not be read below a root.
	Errors int
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithMaxDepth limits descent. Depth 1 yields only direct children of a root;
// zero or less is unbounded.
func WithMaxDepth(depth int) Option {
	return func(s *Scanner) { s.maxDepth = depth }
}

// WithConcurrency bounds how many roots are walked at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithExclude names backend locations that are never entered.
func WithExclude(locations ...string) Option {
	return func(s *Scanner) {
		for _, loc := range locations {
			if loc != "" {
				s.exclude[filepath.Clean(loc)] = struct{}{}
			}
		}
	}
}

// Scanner enumerates candidates through a backend.
type Scanner struct {
	backend     fsys.Backend
	classifier  *media.Classifier
	filter      Filter
	maxDepth    int
	concurrency int
	exclude     map[string]struct{}
	logger      *slog.Logger
}

// New constructs a scanner.
func New(backend fsys.Backend, classifier *media.Classifier, filter Filter, logger *slog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		backend:     backend,
		classifier:  classifier,
		filter:      filter,
		concurrency: 4,
		exclude:     make(map[string]struct{}),
		logger:      logging.NewComponentLogger(logger, "scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept re-applies the extension, size and visibility rules to c.
func (s *Scanner) Accept(c Candidate) bool {
	if c.Filepath == "" {
		return false
	}
	kind, ok := s.classifier.ClassifyName(c.Name)
	if !ok || kind != c.MediaType {
		return false
	}
	return s.filter.AllowsFile(c.Name, c.FileSize)
}

// Scan walks every root and returns the deduplicated candidates in root
// order. Only context cancellation is reported as an error.
func (s *Scanner) Scan(ctx context.Context, roots []string) (Result, error) {
	start := time.Now()
	perRoot := make([][]Candidate, len(roots))
	var (
		mu     sync.Mutex
		result Result
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, root := range roots {
		g.Go(func() error {
			found, errCount, err := s.walkRoot(ctx, root)
			mu.Lock()
			defer mu.Unlock()
			result.Errors += errCount
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				result.Skipped = append(result.Skipped, root)
				event := "scan_root_unreadable"
				if errors.Is(err, fs.ErrNotExist) {
					event = "scan_root_missing"
				}
				logging.WarnWithContext(s.logger, "scan root skipped", event,
					logging.String("root", root),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check scan.paths in the config"),
					logging.String(logging.FieldImpact, "files under this root are not queued"),
				)
				return nil
			}
			perRoot[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	seen := make(map[string]struct{})
	for _, found := range perRoot {
		for _, c := range found {
			if _, dup := seen[c.Filepath]; dup {
				continue
			}
			seen[c.Filepath] = struct{}{}
			result.Candidates = append(result.Candidates, c)
		}
	}

	s.logger.Info("scan complete",
		logging.Int("roots", len(roots)),
		logging.Int("candidates", len(result.Candidates)),
		logging.Int("skipped_roots", len(result.Skipped)),
		logging.Int("entry_errors", result.Errors),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *Scanner) walkRoot(ctx context.Context, root string) ([]Candidate, int, error) {
	if s.excluded(root) {
		s.logger.Debug("scan root is excluded", logging.String("root", root))
		return nil, 0, nil
	}
	var (
		found    []Candidate
		errCount int
	)
	err := s.backend.Enumerate(ctx, root, func(e fsys.Entry, err error) error {
		if err != nil {
			errCount++
			s.logger.Debug("entry unreadable",
				logging.String("path", e.Path),
				logging.Error(err),
			)
			if e.IsDir && e.Depth > 0 {
				return fs.SkipDir
			}
			return nil
		}
		if e.IsDir {
			if e.Depth == 0 {
				return nil
			}
			if s.excluded(e.Path) || !s.filter.AllowsDir(e.Name) {
				return fs.SkipDir
			}
			if s.maxDepth > 0 && e.Depth >= s.maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !e.Regular {
			return nil
		}
		if s.maxDepth > 0 && e.Depth > s.maxDepth {
			return nil
		}
		kind, ok := s.classifier.ClassifyName(e.Name)
		if !ok {
			return nil
		}
		if !s.filter.AllowsFile(e.Name, e.Size) {
			return nil
		}
		found = append(found, Candidate{
			Filepath:  e.Path,
			Name:      e.Name,
			MediaType: kind,
			FileSize:  e.Size,
		})
		return nil
	})
	if err != nil {
		return nil, errCount, err
	}
	s.logger.Debug("scan root complete",
		logging.String("root", root),
		logging.Int("candidates", len(found)),
	)
	return found, errCount, nil
}

func (s *Scanner) excluded(location string) bool {
	if len(s.exclude) == 0 {
		return false
	}
	_, ok := s.exclude[filepath.Clean(location)]
	return ok
}
