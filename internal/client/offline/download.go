package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Emperor-Koala/ekreader/internal/client/catalog"
	"github.com/Emperor-Koala/ekreader/internal/client/credstore"
	"github.com/Emperor-Koala/ekreader/internal/client/session"
	"github.com/Emperor-Koala/ekreader/internal/models"
)

// httpDoer is the slice of http.Client the downloader needs.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// serverSource resolves the stored server base URL.
type serverSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// Download mirrors a book locally: the book file, the metadata snapshot
// (the input record serialized verbatim), and the thumbnail, fetched
// concurrently through the authenticated client. The three artifacts are
// staged under temporary names and promoted with renames only once every
// transfer succeeded, so a failed download never leaves partial final-named
// state; whatever was staged is cleaned up best-effort. At most one
// download per identity key runs at a time.
//
// onProgress, if non-nil, is invoked for the book-file transfer whenever
// the cumulative byte count changes. There is no mid-flight cancellation
// beyond ctx.
func (s *Store) Download(ctx context.Context, book models.Book, onProgress ProgressFunc) error {
	key := IdentityKey(book)

	s.mu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		return ErrDownloadInFlight
	}
	s.inflight[key] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}()

	server, err := s.creds.Get(ctx, credstore.ServerKey)
	if err != nil || server == "" {
		return catalog.ErrNoServer
	}
	server = strings.TrimRight(server, "/")

	stage := ".partial-" + uuid.NewString()
	finals := s.artifactPaths(key)
	staged := make([]string, len(finals))
	for i, path := range finals {
		staged[i] = path + stage
	}
	contentStaged, metaStaged, thumbStaged := staged[0], staged[1], staged[2]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.fetch(gctx, catalog.BookFileURL(server, book.ID), contentStaged, onProgress)
	})
	g.Go(func() error {
		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal metadata snapshot: %w", err)
		}
		return os.WriteFile(metaStaged, data, 0644)
	})
	g.Go(func() error {
		return s.fetch(gctx, catalog.BookThumbnailURL(server, book.ID), thumbStaged, nil)
	})

	if err := g.Wait(); err != nil {
		s.cleanup(staged)
		return fmt.Errorf("download %q: %w", book.Metadata.Title, err)
	}

	for i, path := range staged {
		if err := os.Rename(path, finals[i]); err != nil {
			s.cleanup(append(staged, finals...))
			return fmt.Errorf("promote artifacts for %q: %w", book.Metadata.Title, err)
		}
	}

	s.mu.Lock()
	s.records[key] = Record{Book: book, Thumbnail: s.thumbnailPath(key)}
	s.mu.Unlock()

	s.log.Info("book downloaded", zap.String("key", key))
	return nil
}

// fetch streams one URL to dest, reporting progress when onProgress is set.
func (s *Store) fetch(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &session.StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	var r io.Reader = resp.Body
	if onProgress != nil {
		r = &progressReader{r: resp.Body, total: resp.ContentLength, fn: onProgress}
	}

	_, copyErr := io.Copy(f, r)
	if err := f.Close(); copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", dest, copyErr)
	}
	return nil
}

// cleanup removes whatever of the given paths exists. Failures are logged,
// not escalated: cleanup runs after the operation already failed.
func (s *Store) cleanup(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove artifact during cleanup",
				zap.String("path", path), zap.Error(err))
		}
	}
}
