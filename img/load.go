package img

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/stats"
)

var (
	// Splits are the expected dataset subdirectories.
	Splits = []string{"train", "val", "test"}
	// Classes are the expected label directories within each split.
	// The network output is the probability of the second class.
	Classes = []string{"NORMAL", "PNEUMONIA"}
)

var imageExts = map[string]bool{".jpeg": true, ".jpg": true, ".png": true}

// Data holds one split of the dataset as a list of image files with labels.
// Images are decoded lazily when a batch is requested.
type Data struct {
	Class  []string
	Dims   []int
	Labels []int32
	Files  []string
}

// LoadAll loads the train, val and test splits from the dataset root.
func LoadAll(root string, imageSize int) (map[string]*Data, error) {
	d := make(map[string]*Data)
	for _, split := range Splits {
		data, err := LoadSplit(root, split, imageSize)
		if err != nil {
			return nil, err
		}
		d[split] = data
	}
	return d, nil
}

// LoadSplit scans one split directory and returns the sample list. Files are
// sorted per class so that the ordering is stable across runs. Returns a
// DatasetLayoutError if the split or a class directory is absent or empty.
func LoadSplit(root, split string, imageSize int) (*Data, error) {
	dir := filepath.Join(root, split)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, &DatasetLayoutError{Root: root, Missing: split}
	}
	d := &Data{Class: Classes, Dims: []int{imageSize, imageSize, 3}}
	for ci, class := range Classes {
		classDir := filepath.Join(dir, class)
		if fi, err := os.Stat(classDir); err != nil || !fi.IsDir() {
			return nil, &DatasetLayoutError{Root: root, Missing: filepath.Join(split, class)}
		}
		entries, err := os.ReadDir(classDir)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", classDir)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			files = append(files, filepath.Join(classDir, e.Name()))
		}
		if len(files) == 0 {
			return nil, &DatasetLayoutError{Root: root, Missing: filepath.Join(split, class), Empty: true}
		}
		sort.Strings(files)
		for _, f := range files {
			d.Files = append(d.Files, f)
			d.Labels = append(d.Labels, int32(ci))
		}
	}
	return d, nil
}

// DecodeFile reads and decodes a single image file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	defer f.Close()
	m, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	return m, nil
}

// Len function returns number of images
func (d *Data) Len() int { return len(d.Labels) }

// Classes returns the class names
func (d *Data) Classes() []string { return d.Class }

// Shape returns height, width, channels
func (d *Data) Shape() []int { return d.Dims }

// Label returns classification for given images
func (d *Data) Label(index []int, label []int32) {
	for i, ix := range index {
		label[i] = d.Labels[ix]
	}
}

// Image decodes and preprocesses image number ix without augmentation.
func (d *Data) Image(ix int) (*RGBImage, error) {
	m, err := DecodeFile(d.Files[ix])
	if err != nil {
		return nil, err
	}
	return Preprocess(m, d.Dims[0]), nil
}

// Input decodes the given images and copies the preprocessed pixel data into
// buf. When a transformer is supplied each image is augmented after resizing.
// Decoding runs across a pool of worker goroutines.
func (d *Data) Input(index []int, buf []float32, t *Transformer) error {
	nfeat := d.nfeat()
	images, err := d.decodeBatch(index, t)
	if err != nil {
		return err
	}
	for i, m := range images {
		copy(buf[i*nfeat:], m.Pix)
	}
	return nil
}

// Stats decodes up to maxSamples images and returns the per channel pixel
// mean and standard deviation. A file which fails to decode returns the
// error rather than silently distorting the statistics.
func (d *Data) Stats(maxSamples int) (mean, std []float32, err error) {
	n := d.Len()
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	stat := [3]*stats.Average{new(stats.Average), new(stats.Average), new(stats.Average)}
	for ix := 0; ix < n; ix++ {
		m, err := d.Image(ix)
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < len(m.Pix); i += 3 {
			for ch := 0; ch < 3; ch++ {
				stat[ch].Add(float64(m.Pix[i+ch]))
			}
		}
	}
	mean = make([]float32, 3)
	std = make([]float32, 3)
	for ch, s := range stat {
		mean[ch] = float32(s.Mean)
		std[ch] = float32(s.StdDev)
	}
	return mean, std, nil
}

func (d *Data) String() string {
	counts := make([]int, len(d.Class))
	for _, l := range d.Labels {
		counts[l]++
	}
	s := make([]string, len(d.Class))
	for i, c := range d.Class {
		s[i] = fmt.Sprintf("%s=%d", c, counts[i])
	}
	return strings.Join(s, " ")
}

func (d *Data) nfeat() int {
	n := 1
	for _, dim := range d.Dims {
		n *= dim
	}
	return n
}
