package nnet

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/stats"
)

const emaN = 10

// Training statistics for one epoch
type Stats struct {
	Epoch     int
	Loss      float64
	TrainAcc  float64
	ValidLoss float64
	ValidAcc  float64
	ValidAvg  float64
	BestSince int
	Elapsed   time.Duration
}

func (s Stats) Format() string {
	return fmt.Sprintf("loss =%7.4f  train acc =%6.2f%%  val loss =%7.4f  val acc =%6.2f%%",
		s.Loss, s.TrainAcc*100, s.ValidLoss, s.ValidAcc*100)
}

// Tester interface to evaluate the performance after each epoch, Test method returns true if training should stop.
type Tester interface {
	Test(net *Network, epoch int, loss float64, start time.Time) (bool, error)
}

// Tester which evaluates the loss and accuracy for the train and validation
// splits and updates the stats history.
type TestBase struct {
	Data  map[string]*Dataset
	Stats []Stats
}

// Create a new base class which implements the Tester interface.
func NewTestBase() *TestBase {
	return &TestBase{Stats: []Stats{}}
}

// Initialise the evaluation datasets. Augmentation is never applied here so
// that metrics are not distorted.
func (t *TestBase) Init(conf Config, data map[string]Data, rng *rand.Rand) *TestBase {
	t.Data = make(map[string]*Dataset)
	for key, d := range data {
		if d.Len() == 0 {
			continue
		}
		t.Data[key] = NewDataset(d, conf.BatchSize, conf.MaxSamples, nil, rng)
	}
	return t
}

// Reset stats prior to new run
func (t *TestBase) Reset() {
	t.Stats = t.Stats[:0]
}

// Test performance of the network, called from the Train function on completion of each epoch.
func (t *TestBase) Test(net *Network, epoch int, loss float64, start time.Time) (bool, error) {
	s := Stats{Epoch: epoch, Loss: loss, BestSince: -1}
	if dset, ok := t.Data["train"]; ok {
		_, acc, err := net.Evaluate(dset)
		if err != nil {
			return false, err
		}
		s.TrainAcc = acc
	}
	if dset, ok := t.Data["val"]; ok {
		vloss, vacc, err := net.Evaluate(dset)
		if err != nil {
			return false, err
		}
		s.ValidLoss, s.ValidAcc = vloss, vacc
		avgVal := 0.0
		if epoch > 1 {
			avgVal = t.Stats[epoch-2].ValidAvg
		}
		avgVal = stats.EMA(avgVal).Add(1-vacc, emaN)
		s.ValidAvg = avgVal
		// number of epochs since the average validation error last improved
		for ep := epoch - 1; ep >= 1; ep-- {
			if t.Stats[ep-1].ValidAvg > avgVal {
				s.BestSince = epoch - ep - 1
				break
			}
		}
	}
	s.Elapsed = time.Since(start)
	t.Stats = append(t.Stats, s)
	done := epoch >= net.Epochs || loss <= net.MinLoss ||
		(net.StopAfter > 0 && s.BestSince >= net.StopAfter)
	return done, nil
}

// Tester which logs stats to stdout and keeps the per epoch history.
type TestLogger struct {
	*TestBase
}

// Create a new tester which logs stats to stdout.
func NewTestLogger(conf Config, data map[string]Data, rng *rand.Rand) *TestLogger {
	return &TestLogger{TestBase: NewTestBase().Init(conf, data, rng)}
}

func (t *TestLogger) Test(net *Network, epoch int, loss float64, start time.Time) (bool, error) {
	done, err := t.TestBase.Test(net, epoch, loss, start)
	if err != nil {
		return done, err
	}
	s := t.Stats[len(t.Stats)-1]
	if done || net.LogEvery == 0 || epoch%net.LogEvery == 0 {
		msg := fmt.Sprintf("epoch %3d:  %s", epoch, s.Format())
		if s.BestSince >= 0 {
			msg += fmt.Sprintf(" [%d]", s.BestSince)
		}
		fmt.Println(msg)
	}
	if done {
		fmt.Printf("run time: %s\n", s.Elapsed.Round(10*time.Millisecond))
	}
	return done, nil
}

// Train the network on the given training set by updating the weights until
// the tester reports that training is complete. Returns a
// TrainingDivergenceError if the loss is no longer finite.
func Train(net *Network, dset *Dataset, test Tester) error {
	opt, err := NewOptimizer(net.Optimizer, net.Eta)
	if err != nil {
		return err
	}
	done := false
	start := time.Now()
	for epoch := 1; epoch <= net.Epochs && !done; epoch++ {
		loss, err := TrainEpoch(net, opt, dset)
		if err != nil {
			return err
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return &TrainingDivergenceError{Epoch: epoch, Loss: loss}
		}
		if done, err = test.Test(net, epoch, loss, start); err != nil {
			return err
		}
	}
	return nil
}

// Perform one training epoch on the dataset, returns the mean loss over the
// epoch prior to each weight update.
func TrainEpoch(net *Network, opt Optimizer, dset *Dataset) (float64, error) {
	if net.Shuffle {
		dset.Shuffle()
	}
	dset.NextEpoch()
	lossTotal := 0.0
	samples := 0
	for batch := 0; batch < dset.Batches; batch++ {
		x, y, err := dset.NextBatch()
		if err != nil {
			return 0, err
		}
		n := x.Dims[0]
		yPred := net.Fprop(x, true)
		loss := net.OutLayer().Loss(y, yPred)
		lossTotal += loss * float64(n)
		samples += n
		// gradient at the output logit averaged over the batch
		grad := num.NewArrayLike(yPred)
		for i := range grad.Data {
			grad.Data[i] = (yPred.Data[i] - y.Data[i]) / float32(n)
		}
		net.Bprop(grad)
		for _, layer := range net.Layers {
			if l, ok := layer.(ParamLayer); ok {
				w, b := l.Params()
				dw, db := l.ParamGrads()
				opt.Update(w, dw)
				opt.Update(b, db)
			}
		}
		if net.DebugLevel >= 1 {
			fmt.Printf("batch %3d: loss =%7.4f\n", batch, loss)
		}
	}
	return lossTotal / float64(samples), nil
}
