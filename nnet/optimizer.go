package nnet

import (
	"math"

	"github.com/pkg/errors"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// Adam hyperparameters
const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// Optimizer updates a parameter array from its accumulated gradient.
type Optimizer interface {
	Update(w, grad *num.Array)
	TypeString() string
}

// NewOptimizer returns the optimizer for the given config id.
func NewOptimizer(name string, eta float64) (Optimizer, error) {
	switch name {
	case "sgd":
		return &sgd{eta: float32(eta)}, nil
	case "adam":
		return &adam{eta: eta, state: map[*num.Array]*adamState{}}, nil
	default:
		return nil, errors.Errorf("unknown optimizer: %s", name)
	}
}

// plain gradient descent
type sgd struct {
	eta float32
}

func (o *sgd) TypeString() string { return "sgd" }

func (o *sgd) Update(w, grad *num.Array) {
	num.Axpy(-o.eta, grad, w)
}

// adam optimizer with bias corrected first and second moment estimates
type adam struct {
	eta   float64
	state map[*num.Array]*adamState
}

type adamState struct {
	m, v []float64
	step int
}

func (o *adam) TypeString() string { return "adam" }

func (o *adam) Update(w, grad *num.Array) {
	s := o.state[w]
	if s == nil {
		s = &adamState{m: make([]float64, len(w.Data)), v: make([]float64, len(w.Data))}
		o.state[w] = s
	}
	s.step++
	c1 := 1 - math.Pow(adamBeta1, float64(s.step))
	c2 := 1 - math.Pow(adamBeta2, float64(s.step))
	for i, g64 := range grad.Data {
		g := float64(g64)
		s.m[i] = adamBeta1*s.m[i] + (1-adamBeta1)*g
		s.v[i] = adamBeta2*s.v[i] + (1-adamBeta2)*g*g
		mHat := s.m[i] / c1
		vHat := s.v[i] / c2
		w.Data[i] -= float32(o.eta * mHat / (math.Sqrt(vHat) + adamEps))
	}
}
