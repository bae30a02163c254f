package nnet

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Training configuration settings
type Config struct {
	DataSet    string
	ImageSize  int
	BatchSize  int
	Epochs     int
	Optimizer  string
	Loss       string
	Augment    bool
	Eta        float64
	Shuffle    bool
	MaxSamples int
	LogEvery   int
	StopAfter  int
	MinLoss    float64
	RandSeed   int64
	DebugLevel int
	Layers     []LayerConfig
}

// DefaultConfig returns the pneumonia classifier configuration: three
// conv+pool blocks followed by a dense head with a single sigmoid output
// giving the probability of the PNEUMONIA class.
func DefaultConfig() Config {
	return Config{
		DataSet:   "chest_xray",
		ImageSize: 128,
		BatchSize: 32,
		Epochs:    10,
		Optimizer: "adam",
		Loss:      "binary_crossentropy",
		Augment:   true,
		Eta:       0.001,
		Shuffle:   true,
	}.AddLayers(
		Conv{Nfeats: 32, Size: 3},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		Conv{Nfeats: 64, Size: 3},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		Conv{Nfeats: 128, Size: 3},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		Flatten{},
		Linear{Nout: 128},
		Activation{Atype: "relu"},
		Dropout{Ratio: 0.2},
		Linear{Nout: 1},
		Activation{Atype: "sigmoid"},
	)
}

// Load network config from json file
func LoadConfig(path string) (c Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	err = json.NewDecoder(f).Decode(&c)
	return c, err
}

// Append layers to the config struct
func (c Config) AddLayers(layers ...ConfigLayer) Config {
	for _, l := range layers {
		c.Layers = append(c.Layers, l.Marshal())
	}
	return c
}

// Save config to JSON file
func (c Config) Save(path string) error {
	f, err := os.Create(path + ".tmp")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(c); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(path+".tmp", path)
}

func (c Config) String() string {
	str := []string{
		"== Config ==",
		fmt.Sprintf("%-14s: %v", "DataSet", c.DataSet),
		fmt.Sprintf("%-14s: %v", "ImageSize", c.ImageSize),
		fmt.Sprintf("%-14s: %v", "BatchSize", c.BatchSize),
		fmt.Sprintf("%-14s: %v", "Epochs", c.Epochs),
		fmt.Sprintf("%-14s: %v", "Optimizer", c.Optimizer),
		fmt.Sprintf("%-14s: %v", "Loss", c.Loss),
		fmt.Sprintf("%-14s: %v", "Augment", c.Augment),
		fmt.Sprintf("%-14s: %v", "Eta", c.Eta),
		fmt.Sprintf("%-14s: %v", "RandSeed", c.RandSeed),
	}
	if c.Layers != nil {
		str = append(str, "== Network ==")
		for i, layer := range c.Layers {
			str = append(str, fmt.Sprintf("%2d: %s", i, layer))
		}
	}
	return strings.Join(str, "\n")
}
