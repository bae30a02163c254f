package nnet

import "fmt"

// ModelLoadError is returned when a persisted model artifact is missing or
// does not decode to a valid network.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// TrainingDivergenceError is returned when the training loss becomes NaN or
// infinite. Training aborts without persisting the model.
type TrainingDivergenceError struct {
	Epoch int
	Loss  float64
}

func (e *TrainingDivergenceError) Error() string {
	return fmt.Sprintf("training diverged at epoch %d: loss=%v", e.Epoch, e.Loss)
}
