// Package nnet contains routines for constructing, training and testing the
// pneumonia classification network.
package nnet

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// Network type represents the layered neural network model.
type Network struct {
	Config
	Layers  []Layer
	inShape []int
}

// New function creates a new network from the layer configuration. The input
// shape is ImageSize x ImageSize x 3.
func New(conf Config) *Network {
	n := &Network{Config: conf, inShape: []int{conf.ImageSize, conf.ImageSize, 3}}
	rng := rand.New(rand.NewSource(seed(conf.RandSeed)))
	shape := n.inShape
	for _, l := range conf.Layers {
		layer := l.Unmarshal()
		shape = layer.Init(shape, rng)
		n.Layers = append(n.Layers, layer)
	}
	return n
}

// InShape returns the input shape excluding the batch dimension.
func (n *Network) InShape() []int { return n.inShape }

// Initialise network weights
func (n *Network) InitWeights(rng *rand.Rand) {
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			l.InitParams(rng)
		}
	}
}

// Accessor for output layer
func (n *Network) OutLayer() OutputLayer {
	return n.Layers[len(n.Layers)-1].(OutputLayer)
}

// Feed forward the input to get the predicted output. When train is set
// dropout layers are active, otherwise the pass is deterministic.
func (n *Network) Fprop(input *num.Array, train bool) *num.Array {
	pred := input
	for i, layer := range n.Layers {
		pred = layer.Fprop(pred, train)
		if n.DebugLevel >= 2 {
			fmt.Printf("layer %d output\n%s\n", i, pred)
		}
	}
	return pred
}

// Bprop back propagates the gradient through all of the layers, returning
// the gradient with respect to the input.
func (n *Network) Bprop(grad *num.Array) *num.Array {
	for i := len(n.Layers) - 1; i >= 0; i-- {
		grad = n.Layers[i].Bprop(grad)
	}
	return grad
}

// BpropTo back propagates the gradient from the output down to, but not
// including, the given layer and returns the gradient with respect to that
// layer's output. Used by the gradcam explainer.
func (n *Network) BpropTo(layer int, grad *num.Array) *num.Array {
	for i := len(n.Layers) - 1; i > layer; i-- {
		grad = n.Layers[i].Bprop(grad)
	}
	return grad
}

// LastConv returns the index of the last convolution layer, or -1 if the
// network has none.
func (n *Network) LastConv() int {
	for i := len(n.Layers) - 1; i >= 0; i-- {
		if _, ok := n.Layers[i].(*conv); ok {
			return i
		}
	}
	return -1
}

// Predict runs a forward pass in inference mode and returns the predicted
// probabilities, one per input sample.
func (n *Network) Predict(input *num.Array) *num.Array {
	return n.Fprop(input, false)
}

// Evaluate computes the mean loss and classification accuracy over the
// dataset without updating any weights.
func (n *Network) Evaluate(dset *Dataset) (loss, accuracy float64, err error) {
	dset.NextEpoch()
	samples := 0
	correct := 0
	for batch := 0; batch < dset.Batches; batch++ {
		x, y, e := dset.NextBatch()
		if e != nil {
			return 0, 0, e
		}
		nb := x.Dims[0]
		yPred := n.Predict(x)
		loss += n.OutLayer().Loss(y, yPred) * float64(nb)
		for i := 0; i < nb; i++ {
			if (yPred.Data[i] > 0.5) == (y.Data[i] > 0.5) {
				correct++
			}
		}
		samples += nb
	}
	return loss / float64(samples), float64(correct) / float64(samples), nil
}

// Print network description
func (n *Network) String() string {
	s := make([]string, len(n.Layers))
	for i, layer := range n.Layers {
		s[i] = fmt.Sprintf("%2d: %-30s %v", i, layer.ToString(), layer.OutShape())
	}
	return fmt.Sprintf("%s\n== Shapes ==\n%s", n.Config, strings.Join(s, "\n"))
}

// seed returns the given random number seed, or one based on the clock if
// seed <= 0.
func seed(s int64) int64 {
	if s <= 0 {
		return time.Now().UTC().UnixNano()
	}
	return s
}
