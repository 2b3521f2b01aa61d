package arch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/layerviz/pkg/errors"
)

var ignoreLimit = cmpopts.IgnoreUnexported(Architecture{})

func TestDefault(t *testing.T) {
	a := Default()
	if diff := cmp.Diff([]int{3, 5, 2}, a.Counts()); diff != "" {
		t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
	}
	if a.TotalNeurons() != 10 {
		t.Errorf("TotalNeurons() = %d, want 10", a.TotalNeurons())
	}
	for i, l := range a.Layers {
		if l.ID == "" {
			t.Errorf("layer %d has no ID", i)
		}
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAddStopsAtCeiling(t *testing.T) {
	a := New(248)
	if err := a.Add(); err != nil {
		t.Fatalf("Add() at 249 = %v", err)
	}
	if err := a.Add(); err != nil {
		t.Fatalf("Add() at 250 = %v", err)
	}

	before := a.Clone()
	err := a.Add()
	if !errors.Is(err, errors.ErrCodeCapacity) {
		t.Fatalf("Add() past ceiling = %v, want CAPACITY_EXCEEDED", err)
	}
	if diff := cmp.Diff(before, a, ignoreLimit); diff != "" {
		t.Errorf("rejected Add changed architecture (-before +after):\n%s", diff)
	}
}

func TestAddRespectsConfiguredCeiling(t *testing.T) {
	a := New(3, 5, 2)
	a.SetMaxNeurons(11)
	if err := a.Add(); err != nil {
		t.Fatalf("Add() = %v", err)
	}
	if err := a.Add(); !errors.Is(err, errors.ErrCodeCapacity) {
		t.Fatalf("Add() = %v, want CAPACITY_EXCEEDED", err)
	}
	if a.Len() != 4 {
		t.Errorf("Len() = %d, want 4", a.Len())
	}
}

func TestAddLayerValidates(t *testing.T) {
	a := Default()
	err := a.AddLayer(Layer{Neurons: 2, Activation: "gelu"})
	if !errors.Is(err, errors.ErrCodeInvalidLayer) {
		t.Fatalf("AddLayer(gelu) = %v, want INVALID_LAYER", err)
	}
	dup := a.Layers[0]
	if err := a.AddLayer(dup); !errors.Is(err, errors.ErrCodeInvalidLayer) {
		t.Fatalf("AddLayer(duplicate id) = %v, want INVALID_LAYER", err)
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
}

func TestRemove(t *testing.T) {
	a := New(3, 5, 2)
	ids := []string{a.Layers[0].ID, a.Layers[2].ID}
	if err := a.Remove(1); err != nil {
		t.Fatalf("Remove(1) = %v", err)
	}
	if diff := cmp.Diff([]int{3, 2}, a.Counts()); diff != "" {
		t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
	}
	if a.Layers[0].ID != ids[0] || a.Layers[1].ID != ids[1] {
		t.Error("Remove did not keep IDs with their layers")
	}

	if err := a.Remove(5); !errors.Is(err, errors.ErrCodeInvalidIndex) {
		t.Errorf("Remove(5) = %v, want INVALID_INDEX", err)
	}
}

func TestRemoveLastLayer(t *testing.T) {
	a := New(4)
	if err := a.Remove(0); !errors.Is(err, errors.ErrCodeLastLayer) {
		t.Fatalf("Remove(0) = %v, want LAST_LAYER", err)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestMoveRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []int
	}{
		{"forward", 0, 3, []int{5, 2, 7, 3}},
		{"backward", 3, 1, []int{3, 7, 5, 2}},
		{"adjacent", 1, 2, []int{3, 2, 5, 7}},
		{"same index", 2, 2, []int{3, 5, 2, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(3, 5, 2, 7)
			a.Layers[0].Name = "input"
			a.Layers[0].Activation = ActivationReLU
			a.Layers[0].SkipConnections = [2]string{"Layer 3", "Layer 4"}
			orig := a.Clone()

			if err := a.Move(tt.from, tt.to); err != nil {
				t.Fatalf("Move(%d, %d) = %v", tt.from, tt.to, err)
			}
			if diff := cmp.Diff(tt.want, a.Counts()); diff != "" {
				t.Errorf("Counts() after move (-want +got):\n%s", diff)
			}
			moved := a.Layers[tt.to]
			if diff := cmp.Diff(orig.Layers[tt.from], moved); diff != "" {
				t.Errorf("moved record changed (-want +got):\n%s", diff)
			}

			if err := a.Move(tt.to, tt.from); err != nil {
				t.Fatalf("Move(%d, %d) = %v", tt.to, tt.from, err)
			}
			if diff := cmp.Diff(orig, a, ignoreLimit); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveOutOfRange(t *testing.T) {
	a := New(1, 2)
	if err := a.Move(0, 2); !errors.Is(err, errors.ErrCodeInvalidIndex) {
		t.Errorf("Move(0, 2) = %v, want INVALID_INDEX", err)
	}
	if err := a.Move(-1, 0); !errors.Is(err, errors.ErrCodeInvalidIndex) {
		t.Errorf("Move(-1, 0) = %v, want INVALID_INDEX", err)
	}
}

func TestSetNeurons(t *testing.T) {
	tests := []struct {
		name     string
		index, n int
		wantCode errors.Code
		want     []int
	}{
		{"grow", 1, 8, "", []int{3, 8, 2}},
		{"shrink", 0, 1, "", []int{1, 5, 2}},
		{"zero", 1, 0, errors.ErrCodeBelowMinimum, []int{3, 5, 2}},
		{"negative", 2, -4, errors.ErrCodeBelowMinimum, []int{3, 5, 2}},
		{"ceiling exactly", 1, 245, "", []int{3, 245, 2}},
		{"over ceiling", 1, 246, errors.ErrCodeCapacity, []int{3, 5, 2}},
		{"bad index", 3, 1, errors.ErrCodeInvalidIndex, []int{3, 5, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(3, 5, 2)
			err := a.SetNeurons(tt.index, tt.n)
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Errorf("SetNeurons(%d, %d) code = %q, want %q (err %v)", tt.index, tt.n, got, tt.wantCode, err)
			}
			if diff := cmp.Diff(tt.want, a.Counts()); diff != "" {
				t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetNeuronsOrRemove(t *testing.T) {
	t.Run("confirmed removes", func(t *testing.T) {
		a := New(3, 5, 2)
		asked := -1
		removed, err := a.SetNeuronsOrRemove(1, 0, func(i int) bool { asked = i; return true })
		if err != nil || !removed {
			t.Fatalf("SetNeuronsOrRemove = (%v, %v), want (true, nil)", removed, err)
		}
		if asked != 1 {
			t.Errorf("confirm asked about %d, want 1", asked)
		}
		if diff := cmp.Diff([]int{3, 2}, a.Counts()); diff != "" {
			t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("declined leaves unchanged", func(t *testing.T) {
		a := New(3, 5, 2)
		before := a.Clone()
		removed, err := a.SetNeuronsOrRemove(1, 0, func(int) bool { return false })
		if removed || !errors.Is(err, errors.ErrCodeBelowMinimum) {
			t.Fatalf("SetNeuronsOrRemove = (%v, %v), want (false, BELOW_MINIMUM)", removed, err)
		}
		if diff := cmp.Diff(before, a, ignoreLimit); diff != "" {
			t.Errorf("declined confirm changed architecture:\n%s", diff)
		}
	})

	t.Run("nil confirm leaves unchanged", func(t *testing.T) {
		a := New(3, 5, 2)
		if removed, err := a.SetNeuronsOrRemove(0, 0, nil); removed || err == nil {
			t.Fatalf("SetNeuronsOrRemove(nil) = (%v, %v)", removed, err)
		}
		if a.Len() != 3 {
			t.Errorf("Len() = %d, want 3", a.Len())
		}
	})

	t.Run("last layer cannot be removed", func(t *testing.T) {
		a := New(3)
		removed, err := a.SetNeuronsOrRemove(0, 0, func(int) bool { return true })
		if removed || !errors.Is(err, errors.ErrCodeLastLayer) {
			t.Fatalf("SetNeuronsOrRemove = (%v, %v), want (false, LAST_LAYER)", removed, err)
		}
		if a.Layers[0].Neurons != 3 {
			t.Errorf("Neurons = %d, want 3", a.Layers[0].Neurons)
		}
	})

	t.Run("positive count is a plain set", func(t *testing.T) {
		a := New(3, 5, 2)
		removed, err := a.SetNeuronsOrRemove(2, 4, func(int) bool { t.Fatal("confirm called"); return true })
		if removed || err != nil {
			t.Fatalf("SetNeuronsOrRemove = (%v, %v)", removed, err)
		}
		if a.Layers[2].Neurons != 4 {
			t.Errorf("Neurons = %d, want 4", a.Layers[2].Neurons)
		}
	})
}

func TestUpdate(t *testing.T) {
	a := New(3, 5, 2)
	id := a.Layers[1].ID

	err := a.Update(1, func(l *Layer) {
		l.ID = "hijacked"
		l.Kernel = 3
		l.Strides = 1
		l.Activation = ActivationTanh
		l.Regularization = Regularization{Type: RegularizationL2, Value: 0.01}
		l.BiasInitializer = BiasHe
	})
	if err != nil {
		t.Fatalf("Update() = %v", err)
	}
	l := a.Layers[1]
	if l.ID != id {
		t.Errorf("Update changed ID to %q", l.ID)
	}
	if l.Kernel != 3 || l.Activation != ActivationTanh || l.BiasInitializer != BiasHe {
		t.Errorf("Update did not apply: %+v", l)
	}

	before := a.Clone()
	if err := a.Update(1, func(l *Layer) { l.Padding = -1 }); !errors.Is(err, errors.ErrCodeInvalidLayer) {
		t.Errorf("Update(padding=-1) = %v, want INVALID_LAYER", err)
	}
	if err := a.Update(0, func(l *Layer) { l.Neurons = 300 }); !errors.Is(err, errors.ErrCodeCapacity) {
		t.Errorf("Update(neurons=300) = %v, want CAPACITY_EXCEEDED", err)
	}
	if diff := cmp.Diff(before, a, ignoreLimit); diff != "" {
		t.Errorf("rejected Update changed architecture:\n%s", diff)
	}
}

func TestRenameAndLabel(t *testing.T) {
	a := New(3, 5)
	if err := a.Rename(1, "hidden"); err != nil {
		t.Fatalf("Rename() = %v", err)
	}
	if diff := cmp.Diff([]string{"Layer 1", "hidden"}, a.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if err := a.Rename(0, "bad\nname"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Rename(bad) = %v, want INVALID_INPUT", err)
	}
}

func TestReplace(t *testing.T) {
	a := Default()
	a.SetMaxNeurons(20)

	next := New(10, 10)
	next.Title = "mlp"
	if err := a.Replace(next); err != nil {
		t.Fatalf("Replace() = %v", err)
	}
	if a.Title != "mlp" || a.TotalNeurons() != 20 {
		t.Errorf("Replace() = %q %v", a.Title, a.Counts())
	}

	before := a.Clone()
	if err := a.Replace(New(15, 15)); !errors.Is(err, errors.ErrCodeCapacity) {
		t.Errorf("Replace(over ceiling) = %v, want CAPACITY_EXCEEDED", err)
	}
	if err := a.Replace(&Architecture{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Replace(empty) = %v, want INVALID_INPUT", err)
	}
	if diff := cmp.Diff(before, a, ignoreLimit); diff != "" {
		t.Errorf("rejected Replace changed architecture:\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	a := New(1, 1, 1, 1)
	a.Title = "scratch"
	a.Reset()
	if a.Title != "" {
		t.Errorf("Title = %q, want empty", a.Title)
	}
	if diff := cmp.Diff([]int{3, 5, 2}, a.Counts()); diff != "" {
		t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexAndEqual(t *testing.T) {
	a := New(3, 5, 2)
	if got := a.Index(a.Layers[2].ID); got != 2 {
		t.Errorf("Index() = %d, want 2", got)
	}
	if got := a.Index("missing"); got != -1 {
		t.Errorf("Index(missing) = %d, want -1", got)
	}
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("Equal(clone) = false")
	}
	b.Layers[0].Name = "x"
	if a.Equal(b) {
		t.Error("Equal after edit = true")
	}
}

func TestLayerValidate(t *testing.T) {
	tests := []struct {
		name  string
		layer Layer
		code  errors.Code
	}{
		{"minimal", Layer{Neurons: 1}, ""},
		{"full", Layer{Neurons: 4, Filter: 32, Kernel: 3, Padding: 1, Strides: 2, Activation: ActivationSoftmax,
			Regularization: Regularization{Type: RegularizationL1, Value: 0.5}, BiasInitializer: BiasXavier,
			SkipConnections: [2]string{"Layer 1", "Layer 3"}}, ""},
		{"zero neurons", Layer{Neurons: 0}, errors.ErrCodeBelowMinimum},
		{"negative kernel", Layer{Neurons: 1, Kernel: -3}, errors.ErrCodeInvalidLayer},
		{"bad activation", Layer{Neurons: 1, Activation: "swish"}, errors.ErrCodeInvalidLayer},
		{"bad regularization", Layer{Neurons: 1, Regularization: Regularization{Type: "dropout"}}, errors.ErrCodeInvalidLayer},
		{"negative penalty", Layer{Neurons: 1, Regularization: Regularization{Type: RegularizationL2, Value: -1}}, errors.ErrCodeInvalidLayer},
		{"bad bias", Layer{Neurons: 1, BiasInitializer: "ones"}, errors.ErrCodeInvalidLayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.GetCode(tt.layer.Validate()); got != tt.code {
				t.Errorf("Validate() code = %q, want %q", got, tt.code)
			}
		})
	}
}
