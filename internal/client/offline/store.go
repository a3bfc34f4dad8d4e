// Package offline mirrors selected books to local disk so they stay
// readable without the server: the book file, a metadata snapshot, and the
// cover thumbnail, all sharing one identity key as their filename stem.
// Downloads are all-or-nothing; the listing is derived from a directory
// scan keyed off metadata snapshots.
package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Emperor-Koala/ekreader/internal/models"
)

const (
	contentExt  = ".epub"
	metadataExt = ".meta.json"
	thumbExt    = ".thumbnail"
)

// ErrDownloadInFlight is returned when a download for the same identity key
// is already running.
var ErrDownloadInFlight = errors.New("download already in progress for this book")

// Record is one downloaded book: its metadata snapshot plus the path where
// its thumbnail is expected. Thumbnail existence is not verified at list
// time; a successful download wrote it.
type Record struct {
	Book      models.Book
	Thumbnail string
}

// Store manages the local artifact directory.
type Store struct {
	dir   string
	httpc httpDoer
	creds serverSource
	log   *zap.Logger

	mu       sync.Mutex
	records  map[string]Record
	inflight map[string]struct{}
}

// NewStore opens the offline store rooted at dir, creating it if needed.
// httpc must be the session-managed client so downloads carry credentials.
func NewStore(dir string, httpc httpDoer, creds serverSource, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create offline dir: %w", err)
	}
	return &Store{
		dir:      dir,
		httpc:    httpc,
		creds:    creds,
		log:      log,
		records:  map[string]Record{},
		inflight: map[string]struct{}{},
	}, nil
}

// IdentityKey derives the filename stem for a book's artifacts from its
// display title and remote id. The id suffix keeps keys unique across books
// that share a title.
func IdentityKey(book models.Book) string {
	return sanitizeTitle(book.Metadata.Title) + "-" + book.ID
}

// sanitizeTitle strips characters that cannot appear in a file name.
func sanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, title)
}

// List rescans the artifact directory: every metadata snapshot yields one
// record. A snapshot that fails to read or parse is skipped with a warning
// rather than failing the listing. The in-memory cache is replaced with the
// scan result.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan offline dir: %w", err)
	}

	records := make(map[string]Record)
	var out []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, metadataExt) {
			continue
		}
		key := strings.TrimSuffix(name, metadataExt)

		book, err := s.readMetadata(key)
		if err != nil {
			s.log.Warn("skipping unreadable metadata snapshot",
				zap.String("key", key), zap.Error(err))
			continue
		}
		record := Record{Book: *book, Thumbnail: s.thumbnailPath(key)}
		records[key] = record
		out = append(out, record)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return out, nil
}

// Cached returns the incremental listing without touching the disk. It is
// only as fresh as the last List, Download, or Delete.
func (s *Store) Cached() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	return out
}

// Delete removes all three artifacts of a book. Individual artifacts being
// absent is fine: deleting twice, or deleting a never-downloaded book, is
// not an error.
func (s *Store) Delete(book models.Book) error {
	key := IdentityKey(book)

	var errs error
	for _, path := range s.artifactPaths(key) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return fmt.Errorf("delete %s: %w", key, errs)
	}

	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Presence reports whether a book is downloaded, judged by the content
// blob alone.
type Presence int

const (
	// PresenceUnknown means the check itself failed.
	PresenceUnknown Presence = iota
	// PresenceNotDownloaded means no content blob exists for the book.
	PresenceNotDownloaded
	// PresenceDownloaded means the content blob exists.
	PresenceDownloaded
)

// Presence checks for the content blob of a book. Thumbnail and metadata
// existence are not verified.
func (s *Store) Presence(book models.Book) (Presence, error) {
	_, err := os.Stat(s.contentPath(IdentityKey(book)))
	switch {
	case err == nil:
		return PresenceDownloaded, nil
	case errors.Is(err, fs.ErrNotExist):
		return PresenceNotDownloaded, nil
	default:
		return PresenceUnknown, err
	}
}

// ReadMetadata loads the metadata snapshot for an identity key, for offline
// detail display without a server round trip.
func (s *Store) ReadMetadata(key string) (*models.Book, error) {
	return s.readMetadata(key)
}

func (s *Store) readMetadata(key string) (*models.Book, error) {
	data, err := os.ReadFile(s.metadataPath(key))
	if err != nil {
		return nil, err
	}
	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (s *Store) contentPath(key string) string {
	return filepath.Join(s.dir, key+contentExt)
}

func (s *Store) metadataPath(key string) string {
	return filepath.Join(s.dir, key+metadataExt)
}

func (s *Store) thumbnailPath(key string) string {
	return filepath.Join(s.dir, key+thumbExt)
}

func (s *Store) artifactPaths(key string) []string {
	return []string{s.contentPath(key), s.metadataPath(key), s.thumbnailPath(key)}
}
