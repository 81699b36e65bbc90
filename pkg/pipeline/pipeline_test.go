package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/lineage/pkg/cache"
	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
	pkgio "github.com/matzehuels/lineage/pkg/io"
	"github.com/matzehuels/lineage/pkg/render/nodelink"
)

const familyCSV = `id,first,middle,last,mother,father,birth,death
1,Ada,,Lind,2,3,1990,?
2,Berta,,Lind,4,,1960,?
3,Carl,,Lind,,,1958,2020
4,Dora,,Holm,,,1931,2001
9,Lone,,Wolf,,,?,?
`

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, nil)
}

func TestOptions_ValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if o.Reconcile != "overwrite" || o.Unassigned != "omit" || o.Source != "-" {
		t.Errorf("defaults = %+v", o)
	}
	if diff := cmp.Diff([]string{"svg"}, o.Formats); diff != "" {
		t.Errorf("Formats mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name string
		opts Options
		code errs.Code
	}{
		{"bad reconcile", Options{Reconcile: "average"}, errs.ErrCodeInvalidInput},
		{"bad unassigned", Options{Unassigned: "hide"}, errs.ErrCodeInvalidInput},
		{"bad format", Options{Formats: []string{"gif"}}, errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !errs.Is(err, tt.code) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRunner_Execute(t *testing.T) {
	r := newTestRunner(t)
	opts := Options{Source: "family.csv", Formats: []string{"dot", "json"}}

	res, err := r.Execute(context.Background(), []byte(familyCSV), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Anchor != 1 {
		t.Errorf("Anchor = %d, want 1", res.Anchor)
	}
	if diff := cmp.Diff([]int{9}, res.Assignment.Unresolved); diff != "" {
		t.Errorf("Unresolved mismatch (-want +got):\n%s", diff)
	}
	if res.Stats.NodeCount != 5 || res.Stats.EdgeCount != 3 {
		t.Errorf("Stats = %+v, want 5 nodes 3 edges", res.Stats)
	}
	if res.CacheInfo.AssignHit || res.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want misses", res.CacheInfo)
	}

	dot := string(res.Artifacts["dot"])
	for _, want := range []string{"// generation 2", "// generation 0", "rank=same", `"1" -> "2"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot artifact missing %q", want)
		}
	}
	if !strings.Contains(string(res.Artifacts["json"]), res.RunID) {
		t.Error("json artifact should embed the run id")
	}

	gens := make(map[int]string)
	for _, n := range res.Graph.Nodes() {
		gens[n.ID] = n.Generation.String()
	}
	want := map[int]string{1: "0", 2: "1", 3: "1", 4: "2", 9: "?"}
	if diff := cmp.Diff(want, gens); diff != "" {
		t.Errorf("generations mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_Execute_Cached(t *testing.T) {
	r := newTestRunner(t)
	opts := Options{Formats: []string{"dot", "json"}}
	ctx := context.Background()

	first, err := r.Execute(ctx, []byte(familyCSV), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	second, err := r.Execute(ctx, []byte(familyCSV), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if !second.CacheInfo.AssignHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want hits", second.CacheInfo)
	}
	if first.RunID == second.RunID {
		t.Error("cached runs should still get a fresh RunID")
	}
	if first.GraphHash != second.GraphHash {
		t.Errorf("GraphHash changed: %s vs %s", first.GraphHash, second.GraphHash)
	}
	if diff := cmp.Diff(first.Assignment, second.Assignment); diff != "" {
		t.Errorf("cached Assignment mismatch (-first +second):\n%s", diff)
	}
	if string(first.Artifacts["dot"]) != string(second.Artifacts["dot"]) {
		t.Error("cached dot artifact differs")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, []byte(familyCSV), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if third.CacheInfo.AssignHit {
		t.Error("Refresh should bypass the graph cache")
	}
}

func TestRunner_Execute_OptionsChangeKey(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	if _, err := r.Execute(ctx, []byte(familyCSV), Options{Formats: []string{"dot"}}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	res, err := r.Execute(ctx, []byte(familyCSV), Options{Formats: []string{"dot"}, Unassigned: "band"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.CacheInfo.AssignHit {
		t.Error("render-only option change should reuse the assigned graph")
	}
	if res.CacheInfo.RenderHit {
		t.Error("different unassigned policy should miss the artifact cache")
	}
	if !strings.Contains(string(res.Artifacts["dot"]), "// unresolved") {
		t.Error("band policy should draw the unresolved band")
	}
}

func TestRunner_Execute_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		opts Options
		code errs.Code
	}{
		{
			name: "empty",
			csv:  "id,first,middle,last,mother,father,birth,death\n",
			code: errs.ErrCodeInvalidInput,
		},
		{
			name: "bad id",
			csv:  "id,first,middle,last\nx,Ada,,Lind\n",
			code: errs.ErrCodeInvalidRecord,
		},
		{
			name: "strict leaf without parents",
			csv:  "id,first,middle,last\n1,Ada,,Lind\n2,Bo,,Lind\n",
			opts: Options{RequireParents: true},
			code: errs.ErrCodeNoAnchor,
		},
		{
			name: "reject convergent generations",
			csv: `id,first,middle,last,mother,father
1,A,,X,2,3
2,B,,X,5,
5,E,,X,4,
3,C,,X,4,
4,D,,X,,
`,
			opts: Options{Reconcile: "reject"},
			code: errs.ErrCodeInconsistentGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Formats = []string{"dot"}
			_, err := newTestRunner(t).Execute(context.Background(), []byte(tt.csv), tt.opts)
			if !errs.Is(err, tt.code) {
				t.Errorf("Execute() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestAssign_Meta(t *testing.T) {
	people := []family.Person{
		{ID: 1, FirstName: "Ada", Mother: family.Ref(2)},
		{ID: 2, FirstName: "Berta"},
	}
	g, meta, err := Assign(context.Background(), people, family.Options{})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if meta.Anchor == nil || *meta.Anchor != 1 {
		t.Errorf("meta.Anchor = %v, want 1", meta.Anchor)
	}
	if meta.Stats == nil || meta.Stats.Traversed != 2 {
		t.Errorf("meta.Stats = %+v, want 2 traversed", meta.Stats)
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
}

func TestRender_Unsupported(t *testing.T) {
	g := family.Build([]family.Person{{ID: 1, FirstName: "Ada"}})
	_, err := Render(context.Background(), g, pkgio.Meta{}, []string{"gif"}, nodelink.Options{})
	if !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("Render() error = %v, want UNSUPPORTED", err)
	}
}
