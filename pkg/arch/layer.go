package arch

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/layerviz/pkg/errors"
)

// Activation is a layer activation function.
type Activation string

// Supported activations. The empty value means "unset".
const (
	ActivationReLU    Activation = "relu"
	ActivationSigmoid Activation = "sigmoid"
	ActivationTanh    Activation = "tanh"
	ActivationSoftmax Activation = "softmax"
)

// Activations lists the valid non-empty activations in display order.
var Activations = []Activation{ActivationReLU, ActivationSigmoid, ActivationTanh, ActivationSoftmax}

// RegularizationType selects a weight penalty.
type RegularizationType string

// Supported regularization types.
const (
	RegularizationL1   RegularizationType = "l1"
	RegularizationL2   RegularizationType = "l2"
	RegularizationNone RegularizationType = "none"
)

// BiasInitializer selects how biases are initialised.
type BiasInitializer string

// Supported bias initialisers.
const (
	BiasXavier BiasInitializer = "xavier"
	BiasHe     BiasInitializer = "he"
	BiasZero   BiasInitializer = "zero"
	BiasRandom BiasInitializer = "random"
)

// Regularization pairs a penalty type with its strength.
type Regularization struct {
	Type  RegularizationType `json:"type,omitempty" bson:"type,omitempty" toml:"type"`
	Value float64            `json:"value,omitempty" bson:"value,omitempty" toml:"value"`
}

// IsZero reports whether no regularization is configured.
func (r Regularization) IsZero() bool { return r.Type == "" && r.Value == 0 }

// Layer is one layer of the architecture. Integer hyperparameters use 0
// for "unset".
type Layer struct {
	ID              string          `json:"id,omitempty" bson:"id,omitempty"`
	Name            string          `json:"name,omitempty" bson:"name,omitempty"`
	Neurons         int             `json:"neurons" bson:"neurons"`
	Filter          int             `json:"filter,omitempty" bson:"filter,omitempty"`
	Kernel          int             `json:"kernel,omitempty" bson:"kernel,omitempty"`
	Padding         int             `json:"padding,omitempty" bson:"padding,omitempty"`
	Strides         int             `json:"strides,omitempty" bson:"strides,omitempty"`
	Activation      Activation      `json:"activation,omitempty" bson:"activation,omitempty"`
	Regularization  Regularization  `json:"regularization,omitzero" bson:"regularization,omitempty"`
	BiasInitializer BiasInitializer `json:"biasInitializer,omitempty" bson:"bias_initializer,omitempty"`
	SkipConnections [2]string       `json:"skipConnections,omitzero" bson:"skip_connections,omitempty"`
}

// NewLayer returns a layer with n neurons and a fresh ID.
func NewLayer(n int) Layer {
	return Layer{ID: NewID(), Neurons: n}
}

// NewID returns a new stable layer identifier.
func NewID() string {
	return uuid.NewString()
}

// Label returns the display name, or "Layer N" for the 1-based position
// when the layer is unnamed.
func (l *Layer) Label(index int) string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("Layer %d", index+1)
}

// HasHyperparameters reports whether any field beyond the neuron count,
// name and ID is set. Layers without hyperparameters export losslessly in
// the simple integer format.
func (l *Layer) HasHyperparameters() bool {
	return l.Filter != 0 || l.Kernel != 0 || l.Padding != 0 || l.Strides != 0 ||
		l.Activation != "" || !l.Regularization.IsZero() || l.BiasInitializer != "" ||
		l.SkipConnections != [2]string{}
}

// Validate checks the layer in isolation. The ceiling on total neurons is
// an architecture-level rule checked by [Architecture.Validate].
func (l *Layer) Validate() error {
	if l.Neurons < 1 {
		return errors.New(errors.ErrCodeBelowMinimum, "layer needs at least one neuron, got %d", l.Neurons)
	}
	if err := errors.ValidateName(l.Name); err != nil {
		return err
	}
	for _, p := range []struct {
		name string
		v    int
	}{{"filter", l.Filter}, {"kernel", l.Kernel}, {"padding", l.Padding}, {"strides", l.Strides}} {
		if p.v < 0 {
			return errors.New(errors.ErrCodeInvalidLayer, "%s must not be negative, got %d", p.name, p.v)
		}
	}
	if l.Activation != "" && !slices.Contains(Activations, l.Activation) {
		return errors.New(errors.ErrCodeInvalidLayer, "unknown activation %q (must be relu, sigmoid, tanh or softmax)", l.Activation)
	}
	switch l.Regularization.Type {
	case "", RegularizationL1, RegularizationL2, RegularizationNone:
	default:
		return errors.New(errors.ErrCodeInvalidLayer, "unknown regularization %q (must be l1, l2 or none)", l.Regularization.Type)
	}
	if l.Regularization.Value < 0 {
		return errors.New(errors.ErrCodeInvalidLayer, "regularization value must not be negative, got %g", l.Regularization.Value)
	}
	switch l.BiasInitializer {
	case "", BiasXavier, BiasHe, BiasZero, BiasRandom:
	default:
		return errors.New(errors.ErrCodeInvalidLayer, "unknown bias initializer %q (must be xavier, he, zero or random)", l.BiasInitializer)
	}
	for _, ref := range l.SkipConnections {
		if err := errors.ValidateName(ref); err != nil {
			return err
		}
	}
	return nil
}
