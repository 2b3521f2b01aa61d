package arch

import (
	"slices"

	"github.com/matzehuels/layerviz/pkg/errors"
)

// Confirm is asked before a destructive fallback, such as removing a layer
// whose neuron count was set below one. It receives the layer index.
type Confirm func(index int) bool

// Add appends a default one-neuron layer.
func (a *Architecture) Add() error {
	return a.AddLayer(NewLayer(1))
}

// AddLayer appends l. It is rejected if l is invalid or the total would
// exceed the ceiling.
func (a *Architecture) AddLayer(l Layer) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	if err := l.Validate(); err != nil {
		return err
	}
	if a.Index(l.ID) >= 0 {
		return errors.New(errors.ErrCodeInvalidLayer, "duplicate layer id %q", l.ID)
	}
	if limit := a.MaxNeurons(); a.TotalNeurons()+l.Neurons > limit {
		return errors.New(errors.ErrCodeCapacity, "cannot add more neurons, total neuron limit is %d", limit)
	}
	a.Layers = append(a.Layers, l)
	return nil
}

// Remove deletes layer i. The last remaining layer cannot be removed.
func (a *Architecture) Remove(i int) error {
	if err := errors.ValidateIndex(i, len(a.Layers)); err != nil {
		return err
	}
	if len(a.Layers) <= 1 {
		return errors.New(errors.ErrCodeLastLayer, "cannot remove the last remaining layer")
	}
	a.Layers = slices.Delete(a.Layers, i, i+1)
	return nil
}

// Move relocates layer from to index to, shifting the layers in between.
// The moved record keeps its ID, name and hyperparameters.
func (a *Architecture) Move(from, to int) error {
	if err := errors.ValidateIndex(from, len(a.Layers)); err != nil {
		return err
	}
	if err := errors.ValidateIndex(to, len(a.Layers)); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	l := a.Layers[from]
	a.Layers = slices.Delete(a.Layers, from, from+1)
	a.Layers = slices.Insert(a.Layers, to, l)
	return nil
}

// SetNeurons changes the neuron count of layer i. Counts below one are
// rejected with BELOW_MINIMUM so the caller can offer removal instead;
// totals above the ceiling are rejected with CAPACITY_EXCEEDED.
func (a *Architecture) SetNeurons(i, n int) error {
	if err := errors.ValidateIndex(i, len(a.Layers)); err != nil {
		return err
	}
	if n < 1 {
		return errors.New(errors.ErrCodeBelowMinimum, "layer %d needs at least one neuron, got %d", i+1, n)
	}
	total := a.TotalNeurons() - a.Layers[i].Neurons + n
	if err := a.checkCapacity(total); err != nil {
		return err
	}
	a.Layers[i].Neurons = n
	return nil
}

// SetNeuronsOrRemove is SetNeurons with the remove-instead fallback: when
// n < 1, confirm decides whether layer i is removed. A declined (or nil)
// confirm leaves the architecture unchanged and returns the BELOW_MINIMUM
// error. It reports whether the layer was removed.
func (a *Architecture) SetNeuronsOrRemove(i, n int, confirm Confirm) (removed bool, err error) {
	err = a.SetNeurons(i, n)
	if !errors.Is(err, errors.ErrCodeBelowMinimum) {
		return false, err
	}
	if confirm == nil || !confirm(i) {
		return false, err
	}
	if err := a.Remove(i); err != nil {
		return false, err
	}
	return true, nil
}

// Rename sets the display name of layer i.
func (a *Architecture) Rename(i int, name string) error {
	if err := errors.ValidateIndex(i, len(a.Layers)); err != nil {
		return err
	}
	if err := errors.ValidateName(name); err != nil {
		return err
	}
	a.Layers[i].Name = name
	return nil
}

// SetTitle sets the architecture title.
func (a *Architecture) SetTitle(title string) error {
	if err := errors.ValidateName(title); err != nil {
		return err
	}
	a.Title = title
	return nil
}

// Update applies fn to a copy of layer i and stores the result if the
// edited layer is valid and the ceiling still holds. The ID cannot change.
func (a *Architecture) Update(i int, fn func(*Layer)) error {
	if err := errors.ValidateIndex(i, len(a.Layers)); err != nil {
		return err
	}
	l := a.Layers[i]
	fn(&l)
	l.ID = a.Layers[i].ID
	if err := l.Validate(); err != nil {
		return err
	}
	if err := a.checkCapacity(a.TotalNeurons() - a.Layers[i].Neurons + l.Neurons); err != nil {
		return err
	}
	a.Layers[i] = l
	return nil
}

// Replace swaps in the contents of other after validating them against
// this architecture's ceiling. On error a is unchanged.
func (a *Architecture) Replace(other *Architecture) error {
	next := other.Clone()
	next.maxNeurons = a.maxNeurons
	for i := range next.Layers {
		if next.Layers[i].ID == "" {
			next.Layers[i].ID = NewID()
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	a.Title = next.Title
	a.Layers = next.Layers
	return nil
}

// Reset replaces the contents with the default network and clears the
// title, as for a new project.
func (a *Architecture) Reset() {
	d := Default()
	a.Title = ""
	a.Layers = d.Layers
}

func (a *Architecture) checkCapacity(total int) error {
	if limit := a.MaxNeurons(); total > limit {
		return errors.New(errors.ErrCodeCapacity, "total neurons cannot exceed %d (would be %d)", limit, total)
	}
	return nil
}
