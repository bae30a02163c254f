package img

import (
	"math/rand"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Types of image transformations
type TransType int

const NoTrans TransType = 0

const (
	HorizFlip TransType = 1 << iota
	Pan
	Zoom
)

// AugmentTrans is the transform set applied to training samples.
var AugmentTrans = HorizFlip | Pan | Zoom

var transTypeNames = map[TransType]string{
	HorizFlip: "HorizFlip",
	Pan:       "Pan",
	Zoom:      "Zoom",
}

func (t TransType) String() string {
	if t == NoTrans {
		return "None"
	}
	s := []string{}
	for key, name := range transTypeNames {
		if t&key != 0 {
			s = append(s, name)
		}
	}
	sort.Strings(s)
	return strings.Join(s, " ")
}

// Augmentation parameters
var (
	FlipProb  = 0.5
	PanPixels = 4
	MaxZoom   = 0.1
)

// Transformer applies randomised affine perturbations to training images.
// Each worker thread has its own rng so that batches can be augmented in
// parallel while remaining reproducible for a fixed seed.
type Transformer struct {
	Trans TransType
	rng   []*rand.Rand
}

// Create a new transformer object which applies a sequence of image transformations
func NewTransformer(trans TransType, rng *rand.Rand) *Transformer {
	threads := runtime.GOMAXPROCS(0)
	t := &Transformer{Trans: trans}
	for i := 0; i < threads; i++ {
		t.rng = append(t.rng, rand.New(rand.NewSource(rng.Int63())))
	}
	return t
}

// Threads returns the number of worker threads the transformer supports.
func (t *Transformer) Threads() int { return len(t.rng) }

// Perform one or more image transforms
func (t *Transformer) Transform(m *RGBImage, thread int) *RGBImage {
	rng := t.rng[thread]
	if t.Trans&HorizFlip != 0 && rng.Float64() < FlipProb {
		m = transform(m, func(x, y int) (float32, float32) {
			return float32(m.Width - x - 1), float32(y)
		})
	}
	if t.Trans&Pan != 0 {
		ox := rng.Intn(2*PanPixels+1) - PanPixels
		oy := rng.Intn(2*PanPixels+1) - PanPixels
		if ox != 0 || oy != 0 {
			m = transform(m, func(x, y int) (float32, float32) {
				return float32(wrap(x-ox, m.Width)), float32(wrap(y-oy, m.Height))
			})
		}
	}
	if t.Trans&Zoom != 0 {
		scale := 1 + float32(MaxZoom)*(2*rng.Float32()-1)
		if scale != 1 {
			cx, cy := float32(m.Width-1)/2, float32(m.Height-1)/2
			m = transform(m, func(x, y int) (float32, float32) {
				return cx + (float32(x)-cx)/scale, cy + (float32(y)-cy)/scale
			})
		}
	}
	return m
}

// decodeBatch decodes, preprocesses and optionally augments a batch of
// images in parallel.
func (d *Data) decodeBatch(index []int, t *Transformer) ([]*RGBImage, error) {
	threads := runtime.GOMAXPROCS(0)
	if t != nil {
		threads = t.Threads()
	}
	dst := make([]*RGBImage, len(index))
	errs := make([]error, threads)
	var wg sync.WaitGroup
	queue := make(chan int, len(index))
	for thread := 0; thread < threads; thread++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := range queue {
				m, err := d.Image(index[i])
				if err != nil {
					errs[thread] = err
					continue
				}
				if t != nil {
					m = t.Transform(m, thread)
				}
				dst[i] = m
			}
		}(thread)
	}
	for i := range index {
		queue <- i
	}
	close(queue)
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// transform resamples the image through the given source coordinate mapping
// using bilinear interpolation.
func transform(src *RGBImage, fn func(x, y int) (float32, float32)) *RGBImage {
	dst := NewRGB(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			sx, sy := fn(x, y)
			ix, iy := int(sx), int(sy)
			xf, yf := sx-float32(ix), sy-float32(iy)
			c00 := src.RGBAt(ix, iy)
			c10 := src.RGBAt(ix+1, iy)
			c01 := src.RGBAt(ix, iy+1)
			c11 := src.RGBAt(ix+1, iy+1)
			dst.Set(x, y, RGB{
				R: lerp2(c00.R, c10.R, c01.R, c11.R, xf, yf),
				G: lerp2(c00.G, c10.G, c01.G, c11.G, xf, yf),
				B: lerp2(c00.B, c10.B, c01.B, c11.B, xf, yf),
			})
		}
	}
	return dst
}

func lerp2(v00, v10, v01, v11, xf, yf float32) float32 {
	top := v00*(1-xf) + v10*xf
	bot := v01*(1-xf) + v11*xf
	return top*(1-yf) + bot*yf
}

func wrap(x, dx int) int {
	if x < 0 {
		return -x - 1
	}
	if x >= dx {
		return 2*dx - x - 1
	}
	return x
}
