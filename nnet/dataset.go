package nnet

import (
	"math/rand"
	"sync"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// Data interface type represents the raw data for a training or test set.
// Input may decode images lazily and apply augmentation via the transformer.
type Data interface {
	Len() int
	Classes() []string
	Shape() []int
	Label(index []int, label []int32)
	Input(index []int, buf []float32, t *img.Transformer) error
}

// Dataset type wraps a data split with batching and shuffling. Batches are
// decoded in the background while the previous batch is being processed.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	Batches   int
	trans     *img.Transformer
	xBuffer   [2][]float32
	yBuffer   [2][]float32
	labels    [2][]int32
	size      [2]int
	loadErr   [2]error
	indexes   []int
	buf       int
	batch     int
	rng       *rand.Rand
	sync.WaitGroup
}

// Create a new Dataset, allocate batch buffers and set the batch size.
// If trans is not nil each loaded batch is augmented.
func NewDataset(data Data, batchSize, maxSamples int, trans *img.Transformer, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), trans: trans, rng: rng}
	if maxSamples > 0 && d.Samples > maxSamples {
		d.Samples = maxSamples
	}
	if batchSize <= 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	// an empty data set yields zero batches rather than dividing by zero
	if d.BatchSize > 0 {
		d.Batches = (d.Samples + d.BatchSize - 1) / d.BatchSize
	}
	nfeat := num.Prod(data.Shape())
	for i := range d.xBuffer {
		d.xBuffer[i] = make([]float32, nfeat*d.BatchSize)
		d.yBuffer[i] = make([]float32, d.BatchSize)
		d.labels[i] = make([]int32, d.BatchSize)
	}
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	return d
}

// kick off load of next batch of data in background
func (d *Dataset) loadBatch() {
	d.Add(1)
	go func() {
		defer d.Done()
		buf := d.buf
		start := d.batch * d.BatchSize
		end := start + d.BatchSize
		if end > d.Samples {
			end = d.Samples
		}
		index := d.indexes[start:end]
		d.size[buf] = len(index)
		d.loadErr[buf] = d.Input(index, d.xBuffer[buf], d.trans)
		d.Label(index, d.labels[buf])
		for i, l := range d.labels[buf][:len(index)] {
			d.yBuffer[buf][i] = float32(l)
		}
	}()
}

// Get next batch of data. x has shape (n, height, width, channels) and y
// holds the class labels as floats with shape (n, 1).
func (d *Dataset) NextBatch() (x, y *num.Array, err error) {
	d.Wait()
	buf := d.buf
	if err = d.loadErr[buf]; err != nil {
		return nil, nil, err
	}
	n := d.size[buf]
	nfeat := num.Prod(d.Shape())
	x = num.NewArrayFrom(d.xBuffer[buf][:n*nfeat], append([]int{n}, d.Shape()...)...)
	y = num.NewArrayFrom(d.yBuffer[buf][:n], n, 1)
	d.batch = (d.batch + 1) % d.Batches
	d.buf = (d.buf + 1) % 2
	d.loadBatch()
	return x, y, nil
}

// Called at the start of each epoch to begin loading from the first batch.
func (d *Dataset) NextEpoch() {
	d.Wait()
	d.batch = 0
	d.loadBatch()
}

// Shuffle the sample ordering
func (d *Dataset) Shuffle() {
	d.Wait()
	d.indexes = d.rng.Perm(d.Samples)
}

// memory resident data set
type memData struct {
	class  []string
	dims   []int
	labels []int32
	inputs []float32
}

// NewData creates an in memory data set which implements the Data interface.
func NewData(classes []string, shape []int, labels []int32, inputs []float32) Data {
	return &memData{class: classes, dims: shape, labels: labels, inputs: inputs}
}

func (d *memData) Len() int { return len(d.labels) }

func (d *memData) Classes() []string { return d.class }

func (d *memData) Shape() []int { return d.dims }

func (d *memData) Label(index []int, label []int32) {
	for i, ix := range index {
		label[i] = d.labels[ix]
	}
}

func (d *memData) Input(index []int, buf []float32, t *img.Transformer) error {
	nfeat := num.Prod(d.dims)
	for i, ix := range index {
		copy(buf[i*nfeat:], d.inputs[ix*nfeat:(ix+1)*nfeat])
	}
	return nil
}
