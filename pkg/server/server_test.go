package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
	netio "github.com/matzehuels/layerviz/pkg/io"
	"github.com/matzehuels/layerviz/pkg/project"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeArch(t *testing.T, w *httptest.ResponseRecorder) architectureBody {
	t.Helper()
	var body architectureBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func counts(b architectureBody) []int {
	out := make([]int, len(b.Layers))
	for i, l := range b.Layers {
		out[i] = l.Neurons
	}
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	w := do(t, New().Handler(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetArchitecture(t *testing.T) {
	w := do(t, New().Handler(), http.MethodGet, "/architecture", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeArch(t, w)
	if diff := cmp.Diff([]int{3, 5, 2}, counts(body)); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if body.TotalNeurons != 10 || body.MaxNeurons != arch.DefaultMaxNeurons {
		t.Errorf("totals = %d/%d", body.TotalNeurons, body.MaxNeurons)
	}
}

func TestMutations(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		want   []int
		code   errors.Code
	}{
		{"add default", http.MethodPost, "/layers", "", http.StatusCreated, []int{3, 5, 2, 1}, ""},
		{"add descriptor", http.MethodPost, "/layers", `{"neurons":4,"activation":"relu"}`, http.StatusCreated, []int{3, 5, 2, 4}, ""},
		{"add over capacity", http.MethodPost, "/layers", `{"neurons":300}`, http.StatusConflict, nil, errors.ErrCodeCapacity},
		{"add zero neurons", http.MethodPost, "/layers", `{"neurons":0}`, http.StatusUnprocessableEntity, nil, errors.ErrCodeBelowMinimum},
		{"add named layer", http.MethodPost, "/layers", `{"name":"out"}`, http.StatusCreated, []int{3, 5, 2, 1}, ""},
		{"add bad activation", http.MethodPost, "/layers", `{"neurons":2,"activation":"gelu"}`, http.StatusUnprocessableEntity, nil, errors.ErrCodeInvalidLayer},
		{"set neurons", http.MethodPatch, "/layers/1", `{"neurons":7}`, http.StatusOK, []int{3, 7, 2}, ""},
		{"set zero", http.MethodPatch, "/layers/1", `{"neurons":0}`, http.StatusUnprocessableEntity, nil, errors.ErrCodeBelowMinimum},
		{"set zero confirmed", http.MethodPatch, "/layers/1?confirm=true", `{"neurons":0}`, http.StatusOK, []int{3, 2}, ""},
		{"set bad index", http.MethodPatch, "/layers/9", `{"neurons":2}`, http.StatusNotFound, nil, errors.ErrCodeInvalidIndex},
		{"set non-integer index", http.MethodPatch, "/layers/x", `{"neurons":2}`, http.StatusBadRequest, nil, errors.ErrCodeInvalidInput},
		{"unknown field", http.MethodPatch, "/layers/0", `{"colour":"red"}`, http.StatusBadRequest, nil, errors.ErrCodeInvalidFormat},
		{"remove", http.MethodDelete, "/layers/0", "", http.StatusOK, []int{5, 2}, ""},
		{"move", http.MethodPost, "/layers/0/move", `{"to":2}`, http.StatusOK, []int{5, 2, 3}, ""},
		{"move missing to", http.MethodPost, "/layers/0/move", `{}`, http.StatusBadRequest, nil, errors.ErrCodeInvalidInput},
		{"reset", http.MethodPost, "/architecture/reset", "", http.StatusOK, []int{3, 5, 2}, ""},
		{"import array", http.MethodPut, "/architecture", `[4, 4]`, http.StatusOK, []int{4, 4}, ""},
		{"import garbage", http.MethodPut, "/architecture", `{"layers":`, http.StatusBadRequest, nil, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New().Handler()
			w := do(t, h, tt.method, tt.target, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if tt.code != "" {
				if got := decodeError(t, w).Code; got != tt.code {
					t.Errorf("code = %s, want %s", got, tt.code)
				}
				// Failed mutations leave the registry untouched.
				after := decodeArch(t, do(t, h, http.MethodGet, "/architecture", ""))
				if diff := cmp.Diff([]int{3, 5, 2}, counts(after)); diff != "" {
					t.Errorf("registry changed (-want +got):\n%s", diff)
				}
				return
			}
			if diff := cmp.Diff(tt.want, counts(decodeArch(t, w))); diff != "" {
				t.Errorf("counts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRemoveLastLayer(t *testing.T) {
	h := New(WithArchitecture(arch.New(4))).Handler()
	w := do(t, h, http.MethodDelete, "/layers/0", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeError(t, w).Code; got != errors.ErrCodeLastLayer {
		t.Errorf("code = %s", got)
	}
}

func TestPatchHyperparameters(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodPatch, "/layers/2", `{"name":"output","activation":"softmax"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	l := decodeArch(t, w).Layers[2]
	if l.Name != "output" || l.Activation != arch.ActivationSoftmax || l.Neurons != 2 {
		t.Errorf("layer = %+v", l)
	}
}

func TestMaxNeurons(t *testing.T) {
	h := New(WithMaxNeurons(12)).Handler()
	if w := do(t, h, http.MethodPost, "/layers", `{"neurons":2}`); w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/layers", ""); w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want conflict", w.Code)
	}
}

func TestLayout(t *testing.T) {
	w := do(t, New().Handler(), http.MethodGet, "/layout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got struct {
		Layers [][][3]float64   `json:"layers"`
		Edges  []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Layers) != 3 || len(got.Edges) != 25 {
		t.Errorf("layers=%d edges=%d", len(got.Layers), len(got.Edges))
	}
}

func TestScene(t *testing.T) {
	h := New().Handler()
	tests := []struct {
		query       string
		contentType string
		contains    string
	}{
		{"", "application/json", `"spheres"`},
		{"?format=svg", "image/svg+xml", "<svg"},
		{"?format=dot", "text/vnd.graphviz; charset=utf-8", "digraph"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/scene"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if got := w.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q", got)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}

	if w := do(t, h, http.MethodGet, "/scene?format=gif", ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/scene?epoch=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad epoch status = %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="network.json"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	var simple struct {
		Layers []int `json:"layers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &simple); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{3, 5, 2}, simple.Layers); diff != "" {
		t.Errorf("layers mismatch (-want +got):\n%s", diff)
	}

	w = do(t, h, http.MethodGet, "/export?variant=extended", "")
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="model-architecture.json"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w := do(t, h, http.MethodGet, "/export?variant=yaml", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad variant status = %d", w.Code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := New(WithArchitecture(arch.New(2, 6, 1))).Handler()
	exported := do(t, src, http.MethodGet, "/export?variant=extended", "").Body.Bytes()

	dst := New().Handler()
	w := do(t, dst, http.MethodPut, "/architecture", string(bytes.TrimSpace(exported)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if diff := cmp.Diff([]int{2, 6, 1}, counts(decodeArch(t, w))); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func exported(t *testing.T, h http.Handler) *netio.Network {
	t.Helper()
	w := do(t, h, http.MethodGet, "/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	n, err := netio.ReadJSON(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("exported file does not load: %v\n%s", err, w.Body.String())
	}
	return n
}

func rawWeights(n *netio.Network) [][][]float64 {
	if n.Weights == nil {
		return nil
	}
	return n.Weights.Raw()
}

func TestDumpFollowsEdits(t *testing.T) {
	pair0 := [][]float64{{0.1, 0.2}, {0.3, 0.4}}
	pair1 := [][]float64{{0.5, 0.6}, {0.7, 0.8}}
	dump := `{"layers": [2, 2, 2],
		"weights": [[[0.1, 0.2], [0.3, 0.4]], [[0.5, 0.6], [0.7, 0.8]]],
		"biases": [[1, 2], [3, 4], [5, 6]]}`

	h := New().Handler()
	if w := do(t, h, http.MethodPut, "/architecture", dump); w.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", w.Code, w.Body.String())
	}
	n := exported(t, h)
	if diff := cmp.Diff([][][]float64{pair0, pair1}, rawWeights(n)); diff != "" {
		t.Errorf("weights after import (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]float64{{1, 2}, {3, 4}, {5, 6}}, n.Biases); diff != "" {
		t.Errorf("biases after import (-want +got):\n%s", diff)
	}

	if w := do(t, h, http.MethodPost, "/layers/0/move", `{"to":2}`); w.Code != http.StatusOK {
		t.Fatalf("move status = %d", w.Code)
	}
	n = exported(t, h)
	if diff := cmp.Diff([][][]float64{pair1}, rawWeights(n)); diff != "" {
		t.Errorf("weights after move (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]float64{{3, 4}, {5, 6}, {1, 2}}, n.Biases); diff != "" {
		t.Errorf("biases after move (-want +got):\n%s", diff)
	}

	if w := do(t, h, http.MethodPatch, "/layers/0", `{"neurons":3}`); w.Code != http.StatusOK {
		t.Fatalf("patch status = %d", w.Code)
	}
	n = exported(t, h)
	if n.Weights != nil {
		t.Errorf("weights after resize = %v, want none", rawWeights(n))
	}
	if diff := cmp.Diff([][]float64{nil, {5, 6}, {1, 2}}, n.Biases); diff != "" {
		t.Errorf("biases after resize (-want +got):\n%s", diff)
	}

	if w := do(t, h, http.MethodPost, "/architecture/reset", ""); w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}
	if n = exported(t, h); n.Weights != nil || n.Biases != nil {
		t.Errorf("reset kept weights %v biases %v", rawWeights(n), n.Biases)
	}
}

func TestProjects(t *testing.T) {
	store, err := project.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := New(WithStore(store)).Handler()

	w := do(t, h, http.MethodPost, "/projects", `{"name":"mlp"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d: %s", w.Code, w.Body.String())
	}
	var saved project.Project
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("saved project has no id")
	}

	do(t, h, http.MethodPost, "/layers", `{"neurons":9}`)

	w = do(t, h, http.MethodGet, "/projects", "")
	var list []projectSummary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "mlp" || list[0].TotalNeurons != 10 {
		t.Errorf("list = %+v", list)
	}

	// Load by name restores the saved shape.
	w = do(t, h, http.MethodPost, "/projects/mlp/load", "")
	if w.Code != http.StatusOK {
		t.Fatalf("load status = %d: %s", w.Code, w.Body.String())
	}
	if diff := cmp.Diff([]int{3, 5, 2}, counts(decodeArch(t, w))); diff != "" {
		t.Errorf("loaded counts mismatch (-want +got):\n%s", diff)
	}

	if w := do(t, h, http.MethodGet, "/projects/"+saved.ID, ""); w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/projects/"+saved.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/projects/"+saved.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/projects", `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d", w.Code)
	}
}

func TestProjectsDisabledWithoutStore(t *testing.T) {
	if w := do(t, New().Handler(), http.MethodGet, "/projects", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
