package explain

import (
	"math"
	"testing"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
)

// predictor which scores class 1 by the brightness of a single pixel, so
// only the superpixel region containing it can influence the output
func pixelPredictor(x, y int) PredictFunc {
	return func(images []*img.RGBImage) ([][]float32, error) {
		probs := make([][]float32, len(images))
		for i, m := range images {
			p := m.RGBAt(x, y).R
			probs[i] = []float32{1 - p, p}
		}
		return probs, nil
	}
}

func testLime() *Lime {
	l := NewLime()
	l.GridSize = 4
	l.NumSamples = 128
	l.Seed = 1
	return l
}

func whiteImage(size int) *img.RGBImage {
	m := img.NewRGB(size, size)
	for i := range m.Pix {
		m.Pix[i] = 1
	}
	return m
}

func TestExplainFindsRegion(t *testing.T) {
	// pixel (10,10) in a 32x32 image with a 4x4 grid lies in region 5
	m := whiteImage(32)
	l := testLime()
	e, err := l.Explain(m, pixelPredictor(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Weights) != 2 {
		t.Fatalf("got %d classes", len(e.Weights))
	}
	if len(e.Weights[1]) != 16 {
		t.Fatalf("got %d regions", len(e.Weights[1]))
	}
	top := e.TopRegions(1, 1, true)
	if len(top) != 1 || top[0] != 5 {
		t.Errorf("top region for class 1 = %v, want [5]", top)
	}
	// the same region pushes class 0 down
	w0 := e.Weights[0][5]
	if w0 >= 0 {
		t.Errorf("class 0 weight for region 5 = %v, want negative", w0)
	}
	// unrelated regions carry negligible weight
	for r, w := range e.Weights[1] {
		if r != 5 && math.Abs(w) > math.Abs(e.Weights[1][5])/2 {
			t.Errorf("region %d weight %v rivals region 5 (%v)", r, w, e.Weights[1][5])
		}
	}
}

func TestExplainSeeded(t *testing.T) {
	m := whiteImage(32)
	run := func() [][]float64 {
		e, err := testLime().Explain(m, pixelPredictor(20, 3))
		if err != nil {
			t.Fatal(err)
		}
		return e.Weights
	}
	a, b := run(), run()
	for c := range a {
		for r := range a[c] {
			if a[c][r] != b[c][r] {
				t.Fatalf("weights differ at class %d region %d: %v != %v", c, r, a[c][r], b[c][r])
			}
		}
	}
}

func TestExplainTooFewSamples(t *testing.T) {
	l := testLime()
	l.NumSamples = 10
	if _, err := l.Explain(whiteImage(32), pixelPredictor(0, 0)); err == nil {
		t.Error("expected error for too few samples")
	}
}

func TestMask(t *testing.T) {
	m := whiteImage(32)
	e, err := testLime().Explain(m, pixelPredictor(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	mask := e.Mask(1, 1, true)
	count := 0
	for _, v := range mask.Pix {
		if v == 1 {
			count++
		}
	}
	// one 8x8 grid cell selected
	if count != 64 {
		t.Errorf("mask covers %d pixels, want 64", count)
	}
	if mask.Pix[10*32+10] != 1 {
		t.Error("mask does not cover the predictive pixel")
	}
}

func TestOverlay(t *testing.T) {
	m := whiteImage(32)
	e, err := testLime().Explain(m, pixelPredictor(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	out := e.Overlay(1, 1, true)
	if out.Width != 32 || out.Height != 32 {
		t.Fatalf("overlay size %dx%d", out.Width, out.Height)
	}
	// pixels outside the kept region are dimmed
	c := out.RGBAt(0, 0)
	if c.R != 0.3 || c.G != 0.3 || c.B != 0.3 {
		t.Errorf("outside pixel = %v", c)
	}
	for i, v := range out.Pix {
		if v < 0 || v > 1 {
			t.Fatalf("pixel %d out of range: %v", i, v)
		}
	}
}

func TestRidge(t *testing.T) {
	// y = 2*x0 + x1, fit over all 8 binary masks with uniform weights
	var X [][]float64
	var y []float64
	for b := 0; b < 8; b++ {
		row := []float64{float64(b & 1), float64(b >> 1 & 1), float64(b >> 2 & 1)}
		X = append(X, row)
		y = append(y, 2*row[0]+row[1])
	}
	w := ones(len(X))
	coef, err := ridge(X, y, w, 0.001)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2, 1, 0}
	for i, v := range want {
		if math.Abs(coef[i]-v) > 0.01 {
			t.Errorf("coef[%d] = %v, want %v", i, coef[i], v)
		}
	}
}
