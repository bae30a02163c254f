package nnet

import (
	"math/rand"
	"testing"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// small network used by the training tests: one conv block and a sigmoid head
func toyConfig() Config {
	return Config{
		DataSet:   "toy",
		ImageSize: 8,
		BatchSize: 4,
		Epochs:    30,
		Optimizer: "adam",
		Loss:      "binary_crossentropy",
		Eta:       0.01,
		Shuffle:   true,
		RandSeed:  42,
	}.AddLayers(
		Conv{Nfeats: 4, Size: 3},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		Flatten{},
		Linear{Nout: 1},
		Activation{Atype: "sigmoid"},
	)
}

// synthetic separable set: class 0 images are dark, class 1 images bright
func toyData(n int, rng *rand.Rand) Data {
	shape := []int{8, 8, 3}
	nfeat := num.Prod(shape)
	labels := make([]int32, n)
	inputs := make([]float32, n*nfeat)
	for i := 0; i < n; i++ {
		lo := float32(0)
		if i%2 == 1 {
			labels[i] = 1
			lo = 0.7
		}
		for j := 0; j < nfeat; j++ {
			inputs[i*nfeat+j] = lo + 0.3*rng.Float32()
		}
	}
	return NewData(img.Classes, shape, labels, inputs)
}

func sameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNetworkShapes(t *testing.T) {
	net := New(DefaultConfig())
	if len(net.Layers) != 15 {
		t.Fatalf("expected 15 layers, got %d", len(net.Layers))
	}
	expect := [][]int{
		{126, 126, 32}, {126, 126, 32}, {63, 63, 32},
		{61, 61, 64}, {61, 61, 64}, {30, 30, 64},
		{28, 28, 128}, {28, 28, 128}, {14, 14, 128},
		{25088}, {128}, {128}, {128}, {1}, {1},
	}
	for i, layer := range net.Layers {
		got := layer.OutShape()
		if !sameDims(got, expect[i]) {
			t.Errorf("layer %d: out shape %v, want %v", i, got, expect[i])
		}
	}
	if ix := net.LastConv(); ix != 6 {
		t.Errorf("last conv layer = %d, want 6", ix)
	}
}

func TestOutputRange(t *testing.T) {
	net := New(toyConfig())
	net.InitWeights(rand.New(rand.NewSource(1)))
	x := num.NewArray(3, 8, 8, 3)
	rng := rand.New(rand.NewSource(2))
	for i := range x.Data {
		x.Data[i] = rng.Float32()
	}
	out := net.Predict(x)
	if !sameDims(out.Dims, []int{3, 1}) {
		t.Fatalf("output shape = %v", out.Dims)
	}
	for i, p := range out.Data {
		if p < 0 || p > 1 {
			t.Errorf("sample %d: probability %v out of range", i, p)
		}
	}
}

func TestPredictDeterministic(t *testing.T) {
	net := New(toyConfig())
	net.InitWeights(rand.New(rand.NewSource(1)))
	x := num.NewArray(2, 8, 8, 3)
	for i := range x.Data {
		x.Data[i] = float32(i%7) / 7
	}
	a := net.Predict(x).Data[0]
	b := net.Predict(x).Data[0]
	if a != b {
		t.Errorf("inference not deterministic: %v != %v", a, b)
	}
}

func TestDropoutEvalPassthrough(t *testing.T) {
	conf := Config{ImageSize: 4, RandSeed: 1}.AddLayers(
		Flatten{}, Dropout{Ratio: 0.5},
	)
	net := New(conf)
	x := num.NewArray(1, 4, 4, 3)
	for i := range x.Data {
		x.Data[i] = 1
	}
	out := net.Fprop(x, false)
	for i, v := range out.Data {
		if v != 1 {
			t.Fatalf("eval mode altered value %d: %v", i, v)
		}
	}
	out = net.Fprop(x, true)
	zeros := 0
	for _, v := range out.Data {
		if v == 0 {
			zeros++
		}
	}
	if zeros == 0 {
		t.Error("train mode dropped no activations")
	}
}

// compare the backpropagated weight gradients against finite differences of
// the loss for a sample of the output layer weights
func TestGradients(t *testing.T) {
	net := New(toyConfig())
	net.InitWeights(rand.New(rand.NewSource(3)))
	rng := rand.New(rand.NewSource(4))
	n := 4
	x := num.NewArray(n, 8, 8, 3)
	for i := range x.Data {
		x.Data[i] = rng.Float32()
	}
	y := num.NewArrayFrom([]float32{0, 1, 1, 0}, n, 1)

	loss := func() float64 {
		return net.OutLayer().Loss(y, net.Fprop(x, false))
	}
	yPred := net.Fprop(x, false)
	grad := num.NewArrayLike(yPred)
	for i := range grad.Data {
		grad.Data[i] = (yPred.Data[i] - y.Data[i]) / float32(n)
	}
	net.Bprop(grad)

	var out ParamLayer
	for _, layer := range net.Layers {
		if l, ok := layer.(*linear); ok {
			out = l
		}
	}
	w, _ := out.Params()
	dw, _ := out.ParamGrads()
	const eps = 1e-2
	for _, ix := range []int{0, 7, 19, 31} {
		saved := w.Data[ix]
		w.Data[ix] = saved + eps
		lp := loss()
		w.Data[ix] = saved - eps
		lm := loss()
		w.Data[ix] = saved
		numeric := (lp - lm) / (2 * eps)
		analytic := float64(dw.Data[ix])
		if diff := numeric - analytic; diff > 0.01 || diff < -0.01 {
			t.Errorf("weight %d: numeric grad %v, analytic %v", ix, numeric, analytic)
		}
	}
}
