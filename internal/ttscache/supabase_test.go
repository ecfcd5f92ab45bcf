package ttscache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/lifereview/internal/storage"
)

// fakePostgREST serves just enough of /rest/v1 for the two cache tables.
type fakePostgREST struct {
	mu     sync.Mutex
	nextID int64
	meta   map[int64]map[string]any
	files  map[int64]string

	failFiles bool
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{meta: map[int64]map[string]any{}, files: map[int64]string{}}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("apikey") != "service-key" {
		http.Error(w, `{"message":"bad key"}`, http.StatusUnauthorized)
		return
	}
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	q := r.URL.Query()

	switch {
	case table == "tts_cache" && r.Method == http.MethodPost:
		var rows []map[string]any
		json.NewDecoder(r.Body).Decode(&rows)
		row := rows[0]
		id := f.idByHash(row["content_hash"].(string))
		if id == 0 {
			f.nextID++
			id = f.nextID
		}
		row["id"] = id
		f.meta[id] = row
		writeRows(w, []map[string]any{{"id": id}})

	case table == "tts_cache" && r.Method == http.MethodPatch:
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		id := eqID(q.Get("id"))
		if row, ok := f.meta[id]; ok {
			row["is_active"] = patch["is_active"]
		}
		w.WriteHeader(http.StatusNoContent)

	case table == "tts_cache" && r.Method == http.MethodGet:
		var out []map[string]any
		for id, row := range f.meta {
			if "eq."+row["content_hash"].(string) == q.Get("content_hash") && row["is_active"] == true {
				out = append(out, map[string]any{"id": id})
			}
		}
		writeRows(w, out)

	case table == "tts_cache" && r.Method == http.MethodHead:
		n := 0
		for _, row := range f.meta {
			if row["is_active"] == true {
				n++
			}
		}
		w.Header().Set("Content-Range", fmt.Sprintf("0-0/%d", n))
		w.WriteHeader(http.StatusOK)

	case table == "tts_cache_files" && r.Method == http.MethodPost:
		if f.failFiles {
			http.Error(w, `{"message":"payload too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		var rows []map[string]any
		json.NewDecoder(r.Body).Decode(&rows)
		f.files[int64(rows[0]["cache_id"].(float64))] = rows[0]["file_data"].(string)
		w.WriteHeader(http.StatusCreated)

	case table == "tts_cache_files" && r.Method == http.MethodGet:
		var out []map[string]any
		if data, ok := f.files[eqID(q.Get("cache_id"))]; ok {
			out = append(out, map[string]any{"file_data": data})
		}
		writeRows(w, out)

	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func (f *fakePostgREST) idByHash(hash string) int64 {
	for id, row := range f.meta {
		if row["content_hash"] == hash {
			return id
		}
	}
	return 0
}

func (f *fakePostgREST) active(hash string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.idByHash(hash)
	return id != 0 && f.meta[id]["is_active"] == true
}

func eqID(v string) int64 {
	id, _ := strconv.ParseInt(strings.TrimPrefix(v, "eq."), 10, 64)
	return id
}

func writeRows(w http.ResponseWriter, rows []map[string]any) {
	if rows == nil {
		rows = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

func newSupabaseTestStore(t *testing.T) (*SupabaseStore, *fakePostgREST) {
	t.Helper()
	fake := newFakePostgREST()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewSupabaseStore(storage.NewSupabaseREST(srv.URL, "service-key"), nil), fake
}

func TestSupabaseStorePutFetch(t *testing.T) {
	s, fake := newSupabaseTestStore(t)
	ctx := context.Background()
	key := DeriveKey("Hello there", "nova")
	audio := []byte{0xff, 0xfb, 0x90, 0x00, 'm', 'p', '3'}

	_, err := s.Fetch(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	entry := Entry{Key: key, Text: "Hello there", Voice: "nova", ContentType: ContentNarrative, Size: int64(len(audio))}
	require.NoError(t, s.Put(ctx, entry, audio))
	assert.True(t, fake.active(key))

	got, err := s.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, audio, got)

	// re-caching replaces the same pair
	require.NoError(t, s.Put(ctx, entry, []byte("new")))
	n, err := s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err = s.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestSupabaseStoreFailedPayloadLeavesEntryInactive(t *testing.T) {
	s, fake := newSupabaseTestStore(t)
	fake.failFiles = true
	ctx := context.Background()
	key := DeriveKey("Hi", "nova")

	err := s.Put(ctx, Entry{Key: key, Text: "Hi", Voice: "nova", ContentType: ContentOther, Size: 2}, []byte("hi"))
	require.Error(t, err)
	assert.False(t, fake.active(key))

	_, err = s.Fetch(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseStoreDeactivatesPayloadlessEntry(t *testing.T) {
	s, fake := newSupabaseTestStore(t)
	ctx := context.Background()
	key := DeriveKey("Orphan", "nova")

	require.NoError(t, s.Put(ctx, Entry{Key: key, Text: "Orphan", Voice: "nova", ContentType: ContentOther, Size: 1}, []byte("x")))
	fake.mu.Lock()
	delete(fake.files, fake.idByHash(key))
	fake.mu.Unlock()

	_, err := s.Fetch(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, fake.active(key))
}

func TestByteaRoundTrip(t *testing.T) {
	enc := encodeBytea([]byte{0x00, 0xab, 0xff})
	assert.Equal(t, `\x00abff`, enc)

	dec, err := decodeBytea(enc)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xab, 0xff}, dec)

	_, err = decodeBytea("AKv/")
	assert.Error(t, err)
}
