package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/nnet"
)

func main() {
	model := flag.String("model", "pneumonia_detection_model.gob", "model artifact path")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: predict [opts] <image> [image...]")
		os.Exit(1)
	}

	pred, err := nnet.LoadPredictor(*model)
	if err != nil {
		slog.Error("load model", "error", err)
		os.Exit(1)
	}
	for _, path := range flag.Args() {
		p, err := pred.PredictFile(path)
		if err != nil {
			slog.Error("predict", "image", path, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s (p=%.4f)\n", path, p.Label, p.Probability)
	}
}
