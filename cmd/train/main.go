package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/nnet"
)

// runConfig is the optional YAML run manifest giving the file locations.
type runConfig struct {
	DataDir   string `yaml:"data_dir"`
	ModelPath string `yaml:"model_path"`
	NetConfig string `yaml:"net_config"`
}

func loadRunConfig() runConfig {
	cfg := runConfig{DataDir: "chest_xray", ModelPath: "pneumonia_detection_model.gob"}
	path := "train.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		path = envPath
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			slog.Error("parse run config", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded run config", "path", path)
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if path := os.Getenv("MODEL_PATH"); path != "" {
		cfg.ModelPath = path
	}
	return cfg
}

func main() {
	run := loadRunConfig()
	conf := nnet.DefaultConfig()
	if run.NetConfig != "" {
		var err error
		if conf, err = nnet.LoadConfig(run.NetConfig); err != nil {
			slog.Error("load net config", "error", err)
			os.Exit(1)
		}
	}
	conf.DataSet = run.DataDir

	// override config settings from command line
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.IntVar(&conf.Epochs, "epochs", conf.Epochs, "max epochs")
	flag.IntVar(&conf.MaxSamples, "samples", conf.MaxSamples, "max samples")
	flag.IntVar(&conf.BatchSize, "batch", conf.BatchSize, "batch size")
	flag.IntVar(&conf.DebugLevel, "debug", conf.DebugLevel, "debug logging level")
	flag.BoolVar(&conf.Augment, "augment", conf.Augment, "augment training images")
	flag.StringVar(&run.ModelPath, "model", run.ModelPath, "model artifact path")
	plotPath := flag.String("plot", "training_history.svg", "training curve plot, empty to disable")
	flag.Parse()

	rng := rand.New(rand.NewSource(conf.RandSeed))
	if conf.RandSeed <= 0 {
		rng = rand.New(rand.NewSource(int64(os.Getpid())))
	}

	data, err := img.LoadAll(conf.DataSet, conf.ImageSize)
	if err != nil {
		slog.Error("load dataset", "error", err)
		os.Exit(1)
	}
	for _, split := range img.Splits {
		slog.Info("dataset split", "split", split, "samples", data[split].Len(), "classes", data[split].String())
	}
	mean, std, err := data["train"].Stats(100)
	if err != nil {
		slog.Error("dataset stats", "error", err)
		os.Exit(1)
	}
	slog.Info("train pixel stats", "mean", fmt.Sprintf("%.3f", mean), "stddev", fmt.Sprintf("%.3f", std))

	var trans *img.Transformer
	if conf.Augment {
		trans = img.NewTransformer(img.AugmentTrans, rng)
	}
	trainData := nnet.NewDataset(data["train"], conf.BatchSize, conf.MaxSamples, trans, rng)

	net := nnet.New(conf)
	fmt.Println(net)
	net.InitWeights(rng)

	tester := nnet.NewTestLogger(conf, map[string]nnet.Data{
		"train": data["train"],
		"val":   data["val"],
	}, rng)
	if err := nnet.Train(net, trainData, tester); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
	if *plotPath != "" {
		if err := nnet.SavePlot(tester.Stats, *plotPath); err != nil {
			slog.Error("save training plot", "error", err)
			os.Exit(1)
		}
		slog.Info("saved training plot", "path", *plotPath)
	}

	testData := nnet.NewDataset(data["test"], conf.BatchSize, 0, nil, rng)
	loss, acc, err := net.Evaluate(testData)
	if err != nil {
		slog.Error("evaluate test split", "error", err)
		os.Exit(1)
	}
	slog.Info("test metrics", "loss", fmt.Sprintf("%.4f", loss), "accuracy", fmt.Sprintf("%.2f%%", acc*100))

	if err := net.Save(run.ModelPath); err != nil {
		slog.Error("save model", "error", err)
		os.Exit(1)
	}
	slog.Info("saved model", "path", run.ModelPath)
}
