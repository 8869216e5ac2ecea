package cms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmsfix/https-migrator/internal/tree"
)

const listResponse = `{
	"data": [
		{
			"id": "101",
			"type": "item",
			"attributes": {
				"title": "Hello",
				"cover_url": "http://cdn.example.com/a.png",
				"body": {"blocks": [{"url": "http://old.example.com"}]}
			},
			"relationships": {
				"item_type": {"data": {"type": "item_type", "id": "blog_post"}},
				"creator": {"data": {"type": "account", "id": "7"}}
			},
			"meta": {"status": "published"}
		}
	]
}`

func TestClient_List(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(listResponse))
	}))
	defer srv.Close()

	client := NewClient("secret-token", WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	records, err := client.List(context.Background(), ListOptions{ModelID: "blog_post", Offset: 200, Limit: 100})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if gotReq.Method != http.MethodGet {
		t.Errorf("method: got %s", gotReq.Method)
	}
	if gotReq.URL.Path != "/items" {
		t.Errorf("path: got %s", gotReq.URL.Path)
	}
	q := gotReq.URL.Query()
	if q.Get("filter[type]") != "blog_post" || q.Get("page[offset]") != "200" || q.Get("page[limit]") != "100" {
		t.Errorf("query: got %v", q)
	}
	if got := gotReq.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Errorf("authorization: got %q", got)
	}
	if got := gotReq.Header.Get("X-Api-Version"); got != "3" {
		t.Errorf("api version: got %q", got)
	}
	if got := gotReq.Header.Get("X-Environment"); got != "" {
		t.Errorf("environment header should be absent, got %q", got)
	}

	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ID != "101" {
		t.Errorf("id: got %q", rec.ID)
	}

	var keys []string
	for _, e := range rec.Fields.Entries() {
		keys = append(keys, e.Key)
	}
	wantKeys := "id,type,title,cover_url,body,item_type,creator,meta"
	if strings.Join(keys, ",") != wantKeys {
		t.Errorf("flattened keys: got %s, want %s", strings.Join(keys, ","), wantKeys)
	}

	itemType, _ := rec.Fields.Get("item_type")
	if id, _ := itemType.Get("id"); id.Str() != "blog_post" {
		t.Errorf("relationship linkage not unwrapped: %+v", itemType)
	}
	if strings.Join(rec.Relationships, ",") != "item_type,creator" {
		t.Errorf("relationships: got %v", rec.Relationships)
	}

	occurrences := tree.Scan(rec.Fields, "")
	if len(occurrences) != 2 || occurrences[1].Path != "body.blocks[0].url" {
		t.Errorf("scan of flattened record: got %+v", occurrences)
	}
}

func TestClient_ListMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no data", `{"meta": {}}`},
		{"data not array", `{"data": {"id": "1"}}`},
		{"item without id", `{"data": [{"type": "item"}]}`},
		{"invalid json", `{"data": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("t", WithBaseURL(srv.URL))
			if _, err := client.List(context.Background(), ListOptions{ModelID: "m", Limit: 100}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_Update(t *testing.T) {
	var gotMethod, gotPath, gotContentType, gotEnv string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotEnv = r.Header.Get("X-Environment")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"data": {"id": "101", "type": "item", "attributes": {"title": "Hello", "cover_url": "https://cdn.example.com/a.png"}}}`))
	}))
	defer srv.Close()

	rec := Record{
		ID: "101",
		Fields: tree.Map(
			tree.E("id", tree.String("101")),
			tree.E("type", tree.String("item")),
			tree.E("title", tree.String("Hello")),
			tree.E("cover_url", tree.String("https://cdn.example.com/a.png")),
			tree.E("item_type", tree.Map(tree.E("type", tree.String("item_type")), tree.E("id", tree.String("blog_post")))),
			tree.E("meta", tree.Map(tree.E("status", tree.String("published")))),
		),
		Relationships: []string{"item_type"},
	}

	client := NewClient("t", WithBaseURL(srv.URL), WithEnvironment("sandbox-1"))
	updated, err := client.Update(context.Background(), "101", rec)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method: got %s", gotMethod)
	}
	if gotPath != "/items/101" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotContentType != "application/vnd.api+json" {
		t.Errorf("content type: got %s", gotContentType)
	}
	if gotEnv != "sandbox-1" {
		t.Errorf("environment: got %q", gotEnv)
	}

	wantBody := `{"data":{"type":"item","id":"101","attributes":{"title":"Hello","cover_url":"https://cdn.example.com/a.png"}}}`
	if string(gotBody) != wantBody {
		t.Errorf("body:\n got %s\nwant %s", gotBody, wantBody)
	}

	if updated.ID != "101" {
		t.Errorf("updated id: got %q", updated.ID)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"data": [{"id": "e1", "type": "api_error", "attributes": {"code": "INVALID_AUTHORIZATION_HEADER", "details": {}}}]}`))
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL))
	_, err := client.List(context.Background(), ListOptions{ModelID: "m", Limit: 100})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %d", apiErr.StatusCode)
	}
	if len(apiErr.Codes) != 1 || apiErr.Codes[0] != "INVALID_AUTHORIZATION_HEADER" {
		t.Errorf("codes: got %v", apiErr.Codes)
	}
	if !strings.Contains(err.Error(), "http 401 (INVALID_AUTHORIZATION_HEADER)") {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestClient_APIErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	_, err := client.Update(context.Background(), "1", Record{ID: "1", Fields: tree.Map()})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Codes) != 0 {
		t.Errorf("codes: got %v", apiErr.Codes)
	}
	if len(apiErr.Body) != maxErrorBody {
		t.Errorf("body snippet length: got %d, want %d", len(apiErr.Body), maxErrorBody)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient("t", WithBaseURL(url))
	if _, err := client.List(context.Background(), ListOptions{ModelID: "m", Limit: 1}); err == nil {
		t.Fatal("expected error from closed server")
	}
}
