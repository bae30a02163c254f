package nnet

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// model artifact: the layer configuration plus the learned parameters for
// each param layer in network order.
type modelData struct {
	Conf    Config
	Weights [][]float32
	Biases  [][]float32
}

// Save writes the network architecture and weights to a single artifact
// file. The write goes via a temp file so a partial write never replaces a
// previous artifact.
func (n *Network) Save(path string) error {
	data := modelData{Conf: n.Config}
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			w, b := l.Params()
			data.Weights = append(data.Weights, w.Data)
			data.Biases = append(data.Biases, b.Data)
		}
	}
	f, err := os.Create(path + ".tmp")
	if err != nil {
		return errors.Wrap(err, "save model")
	}
	if err = gob.NewEncoder(f).Encode(&data); err != nil {
		f.Close()
		return errors.Wrap(err, "save model")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "save model")
	}
	return os.Rename(path+".tmp", path)
}

// LoadModel reads a persisted model artifact and reconstructs the trained
// network. Returns a ModelLoadError if the file is missing or corrupt.
func LoadModel(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	defer f.Close()
	var data modelData
	if err = gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	net := New(data.Conf)
	i := 0
	for _, layer := range net.Layers {
		l, ok := layer.(ParamLayer)
		if !ok {
			continue
		}
		if i >= len(data.Weights) {
			return nil, &ModelLoadError{Path: path, Err: errors.New("missing layer parameters")}
		}
		w, b := l.Params()
		if len(data.Weights[i]) != len(w.Data) || len(data.Biases[i]) != len(b.Data) {
			return nil, &ModelLoadError{Path: path, Err: errors.Errorf("layer %d parameter shape mismatch", i)}
		}
		copy(w.Data, data.Weights[i])
		copy(b.Data, data.Biases[i])
		i++
	}
	if i != len(data.Weights) {
		return nil, &ModelLoadError{Path: path, Err: errors.New("extra layer parameters")}
	}
	return net, nil
}
