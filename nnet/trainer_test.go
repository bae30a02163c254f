package nnet

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

func arrayOf(vals ...float32) *num.Array {
	return num.NewArrayFrom(vals, len(vals))
}

func TestTrain(t *testing.T) {
	conf := toyConfig()
	rng := rand.New(rand.NewSource(conf.RandSeed))
	data := toyData(16, rng)
	net := New(conf)
	net.InitWeights(rng)
	dset := NewDataset(data, conf.BatchSize, 0, nil, rng)
	test := NewTestBase().Init(conf, map[string]Data{"train": data, "val": data}, rng)

	if err := Train(net, dset, test); err != nil {
		t.Fatal(err)
	}
	if len(test.Stats) == 0 {
		t.Fatal("no stats recorded")
	}
	first := test.Stats[0]
	last := test.Stats[len(test.Stats)-1]
	t.Logf("epoch  1: %s", first.Format())
	t.Logf("epoch %2d: %s", last.Epoch, last.Format())
	if last.Loss >= first.Loss {
		t.Errorf("loss did not decrease: %v -> %v", first.Loss, last.Loss)
	}
	if last.TrainAcc < 0.9 {
		t.Errorf("train accuracy = %v", last.TrainAcc)
	}
	if last.ValidAcc < 0.9 {
		t.Errorf("val accuracy = %v", last.ValidAcc)
	}
}

func TestTrainSeeded(t *testing.T) {
	run := func() float64 {
		conf := toyConfig()
		conf.Epochs = 3
		rng := rand.New(rand.NewSource(conf.RandSeed))
		data := toyData(8, rng)
		net := New(conf)
		net.InitWeights(rng)
		dset := NewDataset(data, conf.BatchSize, 0, nil, rng)
		test := NewTestBase().Init(conf, map[string]Data{}, rng)
		if err := Train(net, dset, test); err != nil {
			t.Fatal(err)
		}
		return test.Stats[len(test.Stats)-1].Loss
	}
	if a, b := run(), run(); a != b {
		t.Errorf("training not reproducible for fixed seed: %v != %v", a, b)
	}
}

func TestMinLossStop(t *testing.T) {
	conf := toyConfig()
	conf.MinLoss = 100 // stops after the first epoch
	rng := rand.New(rand.NewSource(1))
	data := toyData(8, rng)
	net := New(conf)
	net.InitWeights(rng)
	dset := NewDataset(data, conf.BatchSize, 0, nil, rng)
	test := NewTestBase().Init(conf, map[string]Data{}, rng)
	if err := Train(net, dset, test); err != nil {
		t.Fatal(err)
	}
	if len(test.Stats) != 1 {
		t.Errorf("trained for %d epochs, want 1", len(test.Stats))
	}
}

func TestTrainingDivergence(t *testing.T) {
	conf := toyConfig()
	rng := rand.New(rand.NewSource(1))
	data := toyData(8, rng)
	net := New(conf)
	net.InitWeights(rng)
	// poison one weight so the forward pass is no longer finite
	for _, layer := range net.Layers {
		if l, ok := layer.(ParamLayer); ok {
			w, _ := l.Params()
			w.Data[0] = float32(math.NaN())
			break
		}
	}
	dset := NewDataset(data, conf.BatchSize, 0, nil, rng)
	test := NewTestBase().Init(conf, map[string]Data{}, rng)
	err := Train(net, dset, test)
	var divErr *TrainingDivergenceError
	if !errors.As(err, &divErr) {
		t.Fatalf("expected TrainingDivergenceError, got %v", err)
	}
	if divErr.Epoch != 1 {
		t.Errorf("diverged at epoch %d, want 1", divErr.Epoch)
	}
}

func TestUnknownOptimizer(t *testing.T) {
	if _, err := NewOptimizer("rmsprop", 0.01); err == nil {
		t.Error("expected error for unknown optimizer")
	}
}

func TestSGDUpdate(t *testing.T) {
	opt, err := NewOptimizer("sgd", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	w := arrayOf(1, 2, 3)
	g := arrayOf(1, -1, 0.5)
	opt.Update(w, g)
	want := []float32{0.9, 2.1, 2.95}
	for i, v := range want {
		if d := w.Data[i] - v; d > 1e-6 || d < -1e-6 {
			t.Errorf("w[%d] = %v, want %v", i, w.Data[i], v)
		}
	}
}

func TestAdamUpdate(t *testing.T) {
	opt, err := NewOptimizer("adam", 0.001)
	if err != nil {
		t.Fatal(err)
	}
	w := arrayOf(1, 1)
	g := arrayOf(0.5, -0.5)
	opt.Update(w, g)
	// first step: mHat/sqrt(vHat) = sign(g), so the update is close to eta
	if d := float64(w.Data[0]) - (1 - 0.001); math.Abs(d) > 1e-5 {
		t.Errorf("w[0] = %v", w.Data[0])
	}
	if d := float64(w.Data[1]) - (1 + 0.001); math.Abs(d) > 1e-5 {
		t.Errorf("w[1] = %v", w.Data[1])
	}
	// state is kept per parameter array across steps
	opt.Update(w, g)
	if w.Data[0] >= float32(1-0.001) {
		t.Errorf("w[0] did not keep decreasing: %v", w.Data[0])
	}
}
