package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lineage/pkg/cache"
	"github.com/matzehuels/lineage/pkg/pipeline"
	"github.com/matzehuels/lineage/pkg/store/sqlite"
)

const familyCSV = `id,first,middle,last,mother,father,birth,death
1,Ada,,Lind,2,3,1990,?
2,Berta,,Lind,4,,1960,?
3,Carl,,Lind,,,1958,2020
4,Dora,,Holm,,,1931,2001
`

func newTestServer(t *testing.T, withStore bool) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)

	var store *sqlite.Store
	if withStore {
		var err error
		store, err = sqlite.Open(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("sqlite.Open() error: %v", err)
		}
		t.Cleanup(func() { store.Close() })
	}

	ts := httptest.NewServer(New(runner, store, pipeline.Options{}, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "text/csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	decode(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestGenerations(t *testing.T) {
	ts := newTestServer(t, false)
	resp := post(t, ts.URL+"/api/v1/generations?reconcile=max", familyCSV)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	runID := resp.Header.Get("X-Run-ID")
	if runID == "" {
		t.Error("missing X-Run-ID header")
	}

	var doc struct {
		RunID  string `json:"run_id"`
		Anchor int    `json:"anchor"`
		People []struct {
			ID         int  `json:"id"`
			Generation *int `json:"generation"`
		} `json:"people"`
	}
	decode(t, resp, &doc)
	if doc.RunID != runID {
		t.Errorf("run_id = %q, want %q", doc.RunID, runID)
	}
	if doc.Anchor != 1 {
		t.Errorf("anchor = %d, want 1", doc.Anchor)
	}
	want := map[int]int{1: 0, 2: 1, 3: 1, 4: 2}
	for _, p := range doc.People {
		if p.Generation == nil || *p.Generation != want[p.ID] {
			t.Errorf("person %d generation = %v, want %d", p.ID, p.Generation, want[p.ID])
		}
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, false)
	resp := post(t, ts.URL+"/api/v1/render?format=dot&detailed=true", familyCSV)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "rank=same") {
		t.Error("DOT output missing rank=same")
	}
	if !strings.Contains(string(data), "gen: 2") {
		t.Error("detailed labels missing generation")
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad format", "/api/v1/render?format=gif", familyCSV, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad bool", "/api/v1/generations?detailed=maybe", familyCSV, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad record", "/api/v1/generations", "id,first\nx,Ada\n", http.StatusBadRequest, "INVALID_RECORD"},
		{"strict", "/api/v1/generations?require_parents=true", "id,first\n1,A\n2,B\n", http.StatusUnprocessableEntity, "NO_ANCHOR"},
		{"save without store", "/api/v1/generations?save=true", familyCSV, http.StatusNotImplemented, "UNSUPPORTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			decode(t, resp, &body)
			if string(body.Error.Code) != tt.code {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.code)
			}
		})
	}
}

func TestRuns(t *testing.T) {
	ts := newTestServer(t, true)

	resp := post(t, ts.URL+"/api/v1/generations?save=true", familyCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d, want 200", resp.StatusCode)
	}
	runID := resp.Header.Get("X-Run-ID")

	list, err := http.Get(ts.URL + "/api/v1/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var runs struct {
		Runs []struct {
			ID     string `json:"id"`
			People int    `json:"people"`
		} `json:"runs"`
	}
	decode(t, list, &runs)
	if len(runs.Runs) != 1 || runs.Runs[0].ID != runID || runs.Runs[0].People != 4 {
		t.Errorf("runs = %+v, want one run %s with 4 people", runs.Runs, runID)
	}

	got, err := http.Get(ts.URL + "/api/v1/runs/" + runID)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", got.StatusCode)
	}
	var stored struct {
		RunID  string `json:"run_id"`
		Anchor *int   `json:"anchor"`
		People []any  `json:"people"`
	}
	decode(t, got, &stored)
	if stored.RunID != runID {
		t.Errorf("run_id = %q, want %q", stored.RunID, runID)
	}
	if stored.Anchor == nil || *stored.Anchor != 1 {
		t.Errorf("anchor = %v, want 1", stored.Anchor)
	}
	if len(stored.People) != 4 {
		t.Errorf("len(people) = %d, want 4", len(stored.People))
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/runs/"+runID, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", del.StatusCode)
	}

	missing, err := http.Get(ts.URL + "/api/v1/runs/" + runID)
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", missing.StatusCode)
	}
}
