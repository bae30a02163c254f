package nnet

import (
	"math/rand"
	"testing"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		prob  float32
		label string
	}{
		{0.0, "NORMAL"},
		{0.2, "NORMAL"},
		{0.5, "NORMAL"},
		{0.50001, "PNEUMONIA"},
		{0.8, "PNEUMONIA"},
		{1.0, "PNEUMONIA"},
	}
	for _, c := range cases {
		p := Classify(c.prob)
		if p.Label != c.label {
			t.Errorf("Classify(%v) = %s, want %s", c.prob, p.Label, c.label)
		}
		if p.Probability != c.prob {
			t.Errorf("Classify(%v) probability = %v", c.prob, p.Probability)
		}
	}
}

func TestPredictor(t *testing.T) {
	net := New(toyConfig())
	net.InitWeights(rand.New(rand.NewSource(1)))
	p := NewPredictor(net)
	m := img.NewRGB(8, 8)
	for i := range m.Pix {
		m.Pix[i] = 0.5
	}
	pred := p.Predict(m)
	if pred.Probability < 0 || pred.Probability > 1 {
		t.Errorf("probability %v out of range", pred.Probability)
	}
	if pred.Label != "NORMAL" && pred.Label != "PNEUMONIA" {
		t.Errorf("label = %q", pred.Label)
	}
}

func TestPredictorBatch(t *testing.T) {
	net := New(toyConfig())
	net.InitWeights(rand.New(rand.NewSource(2)))
	p := NewPredictor(net)
	rng := rand.New(rand.NewSource(3))
	images := make([]*img.RGBImage, 3)
	for i := range images {
		images[i] = img.NewRGB(8, 8)
		for j := range images[i].Pix {
			images[i].Pix[j] = rng.Float32()
		}
	}
	probs, err := p.Batch(images)
	if err != nil {
		t.Fatal(err)
	}
	if len(probs) != 3 {
		t.Fatalf("got %d rows", len(probs))
	}
	for i, row := range probs {
		if len(row) != 2 {
			t.Fatalf("row %d has %d columns", i, len(row))
		}
		if s := row[0] + row[1]; s < 0.999 || s > 1.001 {
			t.Errorf("row %d sums to %v", i, s)
		}
		// batch rows agree with single image prediction
		single := p.Predict(images[i])
		if d := row[1] - single.Probability; d > 1e-6 || d < -1e-6 {
			t.Errorf("row %d: batch prob %v, single %v", i, row[1], single.Probability)
		}
	}

	if probs, err = p.Batch(nil); err != nil || probs != nil {
		t.Errorf("empty batch: %v %v", probs, err)
	}
}
