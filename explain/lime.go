// Package explain implements the two model interpretability techniques
// applied to classifier predictions: lime perturbs superpixel regions and
// fits a local linear surrogate, gradcam derives a spatial heatmap from the
// gradients at a convolution layer.
package explain

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
)

// PredictFunc scores a batch of preprocessed images and returns one row of
// class probabilities per image.
type PredictFunc func(images []*img.RGBImage) ([][]float32, error)

// Number of images scored per prediction call.
const predictBatch = 32

// Lime holds the perturbation sampling parameters.
type Lime struct {
	GridSize    int     // superpixel grid cells per side
	NumSamples  int     // number of perturbed samples
	HideColor   float32 // fill value for hidden regions
	KernelWidth float64 // locality kernel width
	Ridge       float64 // surrogate regularisation strength
	Seed        int64   // rng seed, <= 0 picks one from the clock
}

// NewLime returns an explainer with the default parameters.
func NewLime() *Lime {
	return &Lime{
		GridSize:    8,
		NumSamples:  1000,
		HideColor:   0,
		KernelWidth: 0.25,
		Ridge:       1.0,
	}
}

// Explanation maps each superpixel region to a surrogate coefficient per
// class. Positive coefficients mark regions which push the prediction
// towards that class.
type Explanation struct {
	Image    *img.RGBImage
	GridSize int
	Weights  [][]float64 // [class][region]
}

// Explain samples perturbed versions of the image, scores them with the
// prediction function and fits a weighted ridge surrogate per class.
// Results are reproducible for a fixed seed.
func (l *Lime) Explain(m *img.RGBImage, predict PredictFunc) (*Explanation, error) {
	nreg := l.GridSize * l.GridSize
	if l.NumSamples < nreg {
		return nil, errors.Errorf("lime: need at least %d samples for %d regions", nreg, nreg)
	}
	rng := rand.New(rand.NewSource(seed(l.Seed)))

	// sample region masks, the first sample being the unperturbed image
	masks := make([][]float64, l.NumSamples)
	masks[0] = ones(nreg)
	for i := 1; i < l.NumSamples; i++ {
		mask := make([]float64, nreg)
		for r := range mask {
			if rng.Intn(2) == 1 {
				mask[r] = 1
			}
		}
		masks[i] = mask
	}

	probs, err := l.score(m, masks, predict)
	if err != nil {
		return nil, err
	}
	nclass := len(probs[0])

	// locality weight from the fraction of hidden regions
	weights := make([]float64, l.NumSamples)
	for i, mask := range masks {
		hidden := 1 - sum(mask)/float64(nreg)
		weights[i] = math.Exp(-hidden * hidden / (l.KernelWidth * l.KernelWidth))
	}

	e := &Explanation{Image: m, GridSize: l.GridSize, Weights: make([][]float64, nclass)}
	for c := 0; c < nclass; c++ {
		y := make([]float64, l.NumSamples)
		for i := range y {
			y[i] = float64(probs[i][c])
		}
		coef, err := ridge(masks, y, weights, l.Ridge)
		if err != nil {
			return nil, errors.Wrap(err, "lime surrogate fit")
		}
		e.Weights[c] = coef
	}
	return e, nil
}

// score generates the perturbed images and collects the model probabilities
// in fixed size batches.
func (l *Lime) score(m *img.RGBImage, masks [][]float64, predict PredictFunc) ([][]float32, error) {
	probs := make([][]float32, 0, len(masks))
	batch := make([]*img.RGBImage, 0, predictBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		p, err := predict(batch)
		if err != nil {
			return err
		}
		if len(p) != len(batch) {
			return errors.Errorf("lime: predict returned %d rows for %d images", len(p), len(batch))
		}
		probs = append(probs, p...)
		batch = batch[:0]
		return nil
	}
	for _, mask := range masks {
		batch = append(batch, l.perturb(m, mask))
		if len(batch) == predictBatch {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return probs, nil
}

// perturb fills the hidden regions of the image with the hide color.
func (l *Lime) perturb(m *img.RGBImage, mask []float64) *img.RGBImage {
	dst := m.Clone()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if mask[l.region(m, x, y)] == 0 {
				pos := (y*m.Width + x) * 3
				dst.Pix[pos] = l.HideColor
				dst.Pix[pos+1] = l.HideColor
				dst.Pix[pos+2] = l.HideColor
			}
		}
	}
	return dst
}

// region maps a pixel to its superpixel grid cell.
func (l *Lime) region(m *img.RGBImage, x, y int) int {
	cw := (m.Width + l.GridSize - 1) / l.GridSize
	ch := (m.Height + l.GridSize - 1) / l.GridSize
	return (y/ch)*l.GridSize + x/cw
}

// TopRegions returns up to n region ids for the given class ranked by
// surrogate coefficient. With positiveOnly set, regions with non-positive
// coefficients are excluded.
func (e *Explanation) TopRegions(class, n int, positiveOnly bool) []int {
	w := e.Weights[class]
	regions := make([]int, len(w))
	for i := range regions {
		regions[i] = i
	}
	sort.Slice(regions, func(i, j int) bool {
		return w[regions[i]] > w[regions[j]]
	})
	top := []int{}
	for _, r := range regions {
		if len(top) == n || (positiveOnly && w[r] <= 0) {
			break
		}
		top = append(top, r)
	}
	return top
}

// Mask returns a binary image which is 1 inside the top n regions.
func (e *Explanation) Mask(class, n int, positiveOnly bool) *img.GrayImage {
	m := e.Image
	keep := map[int]bool{}
	for _, r := range e.TopRegions(class, n, positiveOnly) {
		keep[r] = true
	}
	l := Lime{GridSize: e.GridSize}
	dst := img.NewGrayImage(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if keep[l.region(m, x, y)] {
				dst.Pix[y*m.Width+x] = 1
			}
		}
	}
	return dst
}

// Overlay dims the image outside the top n regions and draws the region
// boundaries, for visual inspection of the explanation.
func (e *Explanation) Overlay(class, n int, positiveOnly bool) *img.RGBImage {
	m := e.Image
	mask := e.Mask(class, n, positiveOnly)
	dst := m.Clone()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			pos := (y*m.Width + x) * 3
			v := mask.Pix[y*m.Width+x]
			if v == 0 {
				dst.Pix[pos] *= 0.3
				dst.Pix[pos+1] *= 0.3
				dst.Pix[pos+2] *= 0.3
			} else if onBoundary(mask, x, y) {
				dst.Pix[pos] = 1
				dst.Pix[pos+1] = 1
				dst.Pix[pos+2] = 0
			}
		}
	}
	return dst
}

func onBoundary(mask *img.GrayImage, x, y int) bool {
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || nx >= mask.Width || ny < 0 || ny >= mask.Height {
			continue
		}
		if mask.Pix[ny*mask.Width+nx] == 0 {
			return true
		}
	}
	return false
}

// ridge solves the weighted ridge regression (X'WX + aI) b = X'Wy.
func ridge(X [][]float64, y, w []float64, alpha float64) ([]float64, error) {
	n := len(X[0])
	m := mat.NewSymDense(n, nil)
	v := mat.NewVecDense(n, nil)
	for s, row := range X {
		ws := w[s]
		for i := 0; i < n; i++ {
			if row[i] == 0 {
				continue
			}
			for j := i; j < n; j++ {
				if row[j] != 0 {
					m.SetSym(i, j, m.At(i, j)+ws*row[i]*row[j])
				}
			}
			v.SetVec(i, v.AtVec(i)+ws*row[i]*y[s])
		}
	}
	for i := 0; i < n; i++ {
		m.SetSym(i, i, m.At(i, i)+alpha)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(m); !ok {
		return nil, errors.New("normal matrix is not positive definite")
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, v); err != nil {
		return nil, err
	}
	return sol.RawVector().Data, nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func sum(v []float64) float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	return total
}

func seed(s int64) int64 {
	if s <= 0 {
		return time.Now().UTC().UnixNano()
	}
	return s
}
