// Package catalog issues authenticated list and detail requests against the
// remote library API and decodes its paginated envelopes. All traffic goes
// through the session manager's hooked client, so credentials are attached
// and refreshed without this package knowing about them.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Emperor-Koala/ekreader/internal/client/credstore"
	"github.com/Emperor-Koala/ekreader/internal/client/session"
	"github.com/Emperor-Koala/ekreader/internal/models"
)

// ErrNoServer is returned when no server URL has been stored yet, i.e. the
// user has never logged in on this device.
var ErrNoServer = errors.New("no server configured; log in first")

// Client is the remote catalog API client.
type Client struct {
	httpc *http.Client
	store credstore.Store
}

// New builds a Client on top of the session-managed HTTP client.
func New(httpc *http.Client, store credstore.Store) *Client {
	return &Client{httpc: httpc, store: store}
}

// Server resolves the stored base URL.
func (c *Client) Server(ctx context.Context) (string, error) {
	server, err := c.store.Get(ctx, credstore.ServerKey)
	if err != nil || server == "" {
		return "", ErrNoServer
	}
	return strings.TrimRight(server, "/"), nil
}

// Libraries lists all libraries visible to the user.
func (c *Client) Libraries(ctx context.Context) ([]models.Library, error) {
	var libraries []models.Library
	if err := c.get(ctx, "/api/v1/libraries", nil, &libraries); err != nil {
		return nil, err
	}
	return libraries, nil
}

// Library fetches a single library.
func (c *Client) Library(ctx context.Context, id string) (*models.Library, error) {
	var library models.Library
	if err := c.get(ctx, "/api/v1/libraries/"+url.PathEscape(id), nil, &library); err != nil {
		return nil, err
	}
	return &library, nil
}

// RecentSeries lists recently added series, newest first.
func (c *Client) RecentSeries(ctx context.Context, page int) (*models.Page[models.Series], error) {
	query := url.Values{
		"oneshot": {"false"},
		"page":    {strconv.Itoa(page)},
	}
	var out models.Page[models.Series]
	if err := c.get(ctx, "/api/v1/series/new", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Book fetches a single book record.
func (c *Client) Book(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	if err := c.get(ctx, "/api/v1/books/"+url.PathEscape(id), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// KeepReading lists books with reading in progress, most recently read
// first.
func (c *Client) KeepReading(ctx context.Context, page int) (*models.Page[models.Book], error) {
	condition := map[string]any{
		"condition": map[string]any{
			"readStatus": map[string]any{
				"operator": "is",
				"value":    "IN_PROGRESS",
			},
		},
	}
	return c.bookList(ctx, condition, "readProgress.readDate,desc", page)
}

// RecentBooks lists recently added books, newest first.
func (c *Client) RecentBooks(ctx context.Context, page int) (*models.Page[models.Book], error) {
	return c.bookList(ctx, map[string]any{}, "createdDate,desc", page)
}

// LibraryBooks lists the books of one library in series order.
func (c *Client) LibraryBooks(ctx context.Context, libraryID string, page int) (*models.Page[models.Book], error) {
	condition := map[string]any{
		"condition": map[string]any{
			"allOf": []any{
				map[string]any{
					"libraryId": map[string]any{
						"operator": "is",
						"value":    libraryID,
					},
				},
			},
		},
	}
	return c.bookList(ctx, condition, "series,metadata.numberSort,asc", page)
}

// SeriesBooks lists the books of one series in number order.
func (c *Client) SeriesBooks(ctx context.Context, seriesID string, page int) (*models.Page[models.Book], error) {
	condition := map[string]any{
		"condition": map[string]any{
			"allOf": []any{
				map[string]any{
					"seriesId": map[string]any{
						"operator": "is",
						"value":    seriesID,
					},
				},
			},
		},
	}
	return c.bookList(ctx, condition, "metadata.numberSort,asc", page)
}

// BookFileURL is the byte-stream endpoint of a book's primary file.
func BookFileURL(server, bookID string) string {
	return server + "/api/v1/books/" + url.PathEscape(bookID) + "/file"
}

// BookThumbnailURL is the byte-stream endpoint of a book's cover thumbnail.
func BookThumbnailURL(server, bookID string) string {
	return server + "/api/v1/books/" + url.PathEscape(bookID) + "/thumbnail"
}

func (c *Client) bookList(ctx context.Context, condition map[string]any, sort string, page int) (*models.Page[models.Book], error) {
	query := url.Values{
		"sort": {sort},
		"page": {strconv.Itoa(page)},
	}
	var out models.Page[models.Book]
	if err := c.post(ctx, "/api/v1/books/list", query, condition, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	server, err := c.Server(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body any, out any) error {
	server, err := c.Server(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &session.StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
