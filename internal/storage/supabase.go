package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the Supabase REST endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase rest failed (%d): %s", e.Status, e.Body)
}

// SupabaseREST talks to a Supabase project's PostgREST endpoint with the
// service key.
type SupabaseREST struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseREST(supabaseURL, serviceKey string) *SupabaseREST {
	return &SupabaseREST{
		baseURL:    strings.TrimRight(supabaseURL, "/") + "/rest/v1",
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Select runs GET /table?query and decodes the JSON array into dest.
func (s *SupabaseREST) Select(ctx context.Context, table string, query url.Values, dest any) error {
	resp, err := s.do(ctx, http.MethodGet, table, query, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// Upsert inserts rows, merging on the onConflict column. When dest is non-nil
// the stored representation is decoded into it.
func (s *SupabaseREST) Upsert(ctx context.Context, table, onConflict string, rows any, dest any) error {
	prefer := "resolution=merge-duplicates,return=minimal"
	if dest != nil {
		prefer = "resolution=merge-duplicates,return=representation"
	}
	query := url.Values{}
	if onConflict != "" {
		query.Set("on_conflict", onConflict)
	}

	resp, err := s.do(ctx, http.MethodPost, table, query, rows, map[string]string{"Prefer": prefer})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s upsert: %w", table, err)
	}
	return nil
}

// Update applies patch to every row matching filter.
func (s *SupabaseREST) Update(ctx context.Context, table string, filter url.Values, patch any) error {
	resp, err := s.do(ctx, http.MethodPatch, table, filter, patch, map[string]string{"Prefer": "return=minimal"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Count returns the exact number of rows matching filter.
func (s *SupabaseREST) Count(ctx context.Context, table string, filter url.Values) (int64, error) {
	query := url.Values{}
	for k, v := range filter {
		query[k] = v
	}
	if query.Get("select") == "" {
		query.Set("select", "id")
	}

	resp, err := s.do(ctx, http.MethodHead, table, query, nil, map[string]string{
		"Prefer": "count=exact",
		"Range":  "0-0",
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Content-Range: 0-0/42 or */0
	cr := resp.Header.Get("Content-Range")
	i := strings.LastIndex(cr, "/")
	if i < 0 {
		return 0, fmt.Errorf("missing content-range in count response")
	}
	n, err := strconv.ParseInt(cr[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse content-range %q: %w", cr, err)
	}
	return n, nil
}

func (s *SupabaseREST) do(ctx context.Context, method, table string, query url.Values, body any, headers map[string]string) (*http.Response, error) {
	endpoint := s.baseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", table, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", table, err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, table, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return resp, nil
}
