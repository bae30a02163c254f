package nnet

import (
	"math/rand"
	"testing"
)

func TestDatasetBatches(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := toyData(5, rng)
	dset := NewDataset(data, 2, 0, nil, rng)
	if dset.Batches != 3 {
		t.Fatalf("batches = %d, want 3", dset.Batches)
	}
	dset.NextEpoch()
	sizes := []int{}
	seen := 0
	for batch := 0; batch < dset.Batches; batch++ {
		x, y, err := dset.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		n := x.Dims[0]
		if !sameDims(x.Dims, []int{n, 8, 8, 3}) {
			t.Errorf("batch %d: x dims %v", batch, x.Dims)
		}
		if !sameDims(y.Dims, []int{n, 1}) {
			t.Errorf("batch %d: y dims %v", batch, y.Dims)
		}
		for i := 0; i < n; i++ {
			// toyData labels alternate over the unshuffled ordering
			if want := float32((seen + i) % 2); y.Data[i] != want {
				t.Errorf("batch %d sample %d: label %v, want %v", batch, i, y.Data[i], want)
			}
		}
		sizes = append(sizes, n)
		seen += n
	}
	if sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}
	if seen != 5 {
		t.Errorf("saw %d samples, want 5", seen)
	}
}

func TestDatasetEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := toyData(0, rng)
	dset := NewDataset(data, 32, 0, nil, rng)
	if dset.Samples != 0 || dset.Batches != 0 {
		t.Errorf("samples = %d batches = %d, want 0 0", dset.Samples, dset.Batches)
	}
	dset.NextEpoch()
	dset.Wait()
}

func TestDatasetMaxSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := toyData(10, rng)
	dset := NewDataset(data, 4, 6, nil, rng)
	if dset.Samples != 6 {
		t.Errorf("samples = %d, want 6", dset.Samples)
	}
	if dset.Batches != 2 {
		t.Errorf("batches = %d, want 2", dset.Batches)
	}
}

func TestDatasetShuffle(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := toyData(16, rng)
	dset := NewDataset(data, 16, 0, nil, rng)
	dset.Shuffle()
	dset.NextEpoch()
	_, y, err := dset.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	// all samples still present exactly once after shuffling
	counts := [2]int{}
	for _, l := range y.Data {
		counts[int(l)]++
	}
	if counts[0] != 8 || counts[1] != 8 {
		t.Errorf("label counts after shuffle = %v", counts)
	}
}
