package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emperor-Koala/ekreader/internal/client/catalog"
	"github.com/Emperor-Koala/ekreader/internal/client/credstore"
	"github.com/Emperor-Koala/ekreader/internal/client/session"
)

// listRequest captures what the books/list endpoint received.
type listRequest struct {
	sort string
	page string
	body map[string]any
}

type fakeLibrary struct {
	lists []listRequest
}

func (f *fakeLibrary) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/libraries", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "lib-1", "name": "Comics"},
			{"id": "lib-2", "name": "Novels"},
		})
	})
	r.Get("/api/v1/libraries/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "lib-1" {
			http.Error(w, "Library not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "lib-1", "name": "Comics"})
	})
	r.Get("/api/v1/series/new", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("oneshot") != "false" {
			http.Error(w, "missing oneshot filter", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content":       []map[string]any{{"id": "ser-1", "name": "Saga"}},
			"number":        0,
			"totalPages":    3,
			"totalElements": 41,
			"last":          false,
		})
	})
	r.Get("/api/v1/books/{id}", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":       chi.URLParam(req, "id"),
			"name":     "Saga #1",
			"metadata": map[string]any{"title": "Saga #1", "releaseDate": "2012-03-14"},
		})
	})
	r.Post("/api/v1/books/list", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lists = append(f.lists, listRequest{
			sort: req.URL.Query().Get("sort"),
			page: req.URL.Query().Get("page"),
			body: body,
		})
		json.NewEncoder(w).Encode(map[string]any{
			"content":       []map[string]any{{"id": "bk-1", "name": "Saga #1"}},
			"number":        0,
			"totalPages":    1,
			"totalElements": 1,
			"last":          true,
		})
	})
	return r
}

func newTestClient(t *testing.T, fake *fakeLibrary) *catalog.Client {
	t.Helper()
	server := httptest.NewServer(fake.router())
	t.Cleanup(server.Close)

	store := credstore.NewMemStore()
	// Trailing slash exercises base URL normalization.
	require.NoError(t, store.Set(context.Background(), credstore.ServerKey, server.URL+"/"))
	return catalog.New(http.DefaultClient, store)
}

func TestLibraries(t *testing.T) {
	client := newTestClient(t, &fakeLibrary{})

	libraries, err := client.Libraries(context.Background())
	require.NoError(t, err)
	require.Len(t, libraries, 2)
	assert.Equal(t, "Comics", libraries[0].Name)
	assert.Equal(t, "lib-2", libraries[1].ID)
}

func TestLibrary_NotFound(t *testing.T) {
	client := newTestClient(t, &fakeLibrary{})

	_, err := client.Library(context.Background(), "lib-9")
	var statusErr *session.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, "Library not found", statusErr.Message)
}

func TestRecentSeries(t *testing.T) {
	client := newTestClient(t, &fakeLibrary{})

	page, err := client.RecentSeries(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Saga", page.Content[0].Name)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.Last)
}

func TestBook_DecodesDateOnlyRelease(t *testing.T) {
	client := newTestClient(t, &fakeLibrary{})

	book, err := client.Book(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "bk-1", book.ID)
	require.NotNil(t, book.Metadata.ReleaseDate)
	assert.Equal(t, 2012, book.Metadata.ReleaseDate.Year())
}

func TestBookLists_SortAndCondition(t *testing.T) {
	fake := &fakeLibrary{}
	client := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.KeepReading(ctx, 0)
	require.NoError(t, err)
	_, err = client.RecentBooks(ctx, 2)
	require.NoError(t, err)
	_, err = client.LibraryBooks(ctx, "lib-1", 0)
	require.NoError(t, err)
	_, err = client.SeriesBooks(ctx, "ser-1", 1)
	require.NoError(t, err)

	require.Len(t, fake.lists, 4)

	keepReading := fake.lists[0]
	assert.Equal(t, "readProgress.readDate,desc", keepReading.sort)
	assert.Equal(t, "0", keepReading.page)
	assert.Equal(t,
		map[string]any{"readStatus": map[string]any{"operator": "is", "value": "IN_PROGRESS"}},
		keepReading.body["condition"])

	recent := fake.lists[1]
	assert.Equal(t, "createdDate,desc", recent.sort)
	assert.Equal(t, "2", recent.page)
	assert.Empty(t, recent.body, "recent books list is unfiltered")

	byLibrary := fake.lists[2]
	assert.Equal(t, "series,metadata.numberSort,asc", byLibrary.sort)
	assert.Equal(t,
		map[string]any{"allOf": []any{
			map[string]any{"libraryId": map[string]any{"operator": "is", "value": "lib-1"}},
		}},
		byLibrary.body["condition"])

	bySeries := fake.lists[3]
	assert.Equal(t, "metadata.numberSort,asc", bySeries.sort)
	assert.Equal(t, "1", bySeries.page)
	assert.Equal(t,
		map[string]any{"allOf": []any{
			map[string]any{"seriesId": map[string]any{"operator": "is", "value": "ser-1"}},
		}},
		bySeries.body["condition"])
}

func TestServer_MissingMeansNotLoggedIn(t *testing.T) {
	client := catalog.New(http.DefaultClient, credstore.NewMemStore())

	_, err := client.Libraries(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoServer)

	_, err = client.Server(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoServer)
}

func TestBookURLs(t *testing.T) {
	assert.Equal(t, "http://host/api/v1/books/bk-1/file",
		catalog.BookFileURL("http://host", "bk-1"))
	assert.Equal(t, "http://host/api/v1/books/bk%2F1/thumbnail",
		catalog.BookThumbnailURL("http://host", "bk/1"))
}
