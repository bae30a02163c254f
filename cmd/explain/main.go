package main

import (
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/explain"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/nnet"
)

func main() {
	model := flag.String("model", "pneumonia_detection_model.gob", "model artifact path")
	method := flag.String("method", "gradcam", "explanation method: lime or gradcam")
	out := flag.String("out", "explanation.png", "output overlay image")
	seed := flag.Int64("seed", 0, "lime sampling seed")
	samples := flag.Int("samples", 1000, "lime perturbation samples")
	features := flag.Int("features", 5, "lime regions to highlight")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: explain [opts] <image>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	pred, err := nnet.LoadPredictor(*model)
	if err != nil {
		slog.Error("load model", "error", err)
		os.Exit(1)
	}
	src, err := img.DecodeFile(path)
	if err != nil {
		slog.Error("decode image", "error", err)
		os.Exit(1)
	}
	m := img.Preprocess(src, pred.Net.ImageSize)
	p := pred.Predict(m)
	slog.Info("prediction", "image", path, "label", p.Label, "probability", p.Probability)

	var overlay *img.RGBImage
	switch *method {
	case "lime":
		lime := explain.NewLime()
		lime.Seed = *seed
		lime.NumSamples = *samples
		exp, err := lime.Explain(m, pred.Batch)
		if err != nil {
			slog.Error("lime", "error", err)
			os.Exit(1)
		}
		class := 0
		if p.Label == img.Classes[1] {
			class = 1
		}
		overlay = exp.Overlay(class, *features, true)
	case "gradcam":
		heat, err := explain.NewGradCAM().Explain(pred.Net, m)
		if err != nil {
			slog.Error("gradcam", "error", err)
			os.Exit(1)
		}
		overlay = explain.OverlayHeatmap(m, heat, 0.4)
	default:
		slog.Error("unknown method", "method", *method)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		slog.Error("create output", "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, overlay); err != nil {
		slog.Error("encode png", "error", err)
		os.Exit(1)
	}
	slog.Info("wrote explanation", "path", *out, "method", *method)
}
