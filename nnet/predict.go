package nnet

import (
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// Prediction is the result of classifying a single image.
type Prediction struct {
	Probability float32
	Label       string
}

// Classify converts the network output probability to a label. The label is
// PNEUMONIA if the probability is strictly greater than 0.5, else NORMAL.
func Classify(prob float32) Prediction {
	label := img.Classes[0]
	if prob > 0.5 {
		label = img.Classes[1]
	}
	return Prediction{Probability: prob, Label: label}
}

// Predictor classifies single images using a trained network. The network
// weights are treated as read only.
type Predictor struct {
	Net *Network
}

// NewPredictor wraps an already constructed network.
func NewPredictor(net *Network) *Predictor {
	return &Predictor{Net: net}
}

// LoadPredictor loads a persisted model artifact.
func LoadPredictor(path string) (*Predictor, error) {
	net, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	return &Predictor{Net: net}, nil
}

// PredictFile decodes, preprocesses and classifies the image at the given
// path. No augmentation is applied.
func (p *Predictor) PredictFile(path string) (Prediction, error) {
	m, err := img.DecodeFile(path)
	if err != nil {
		return Prediction{}, err
	}
	return p.Predict(img.Preprocess(m, p.Net.ImageSize)), nil
}

// Predict classifies a single preprocessed image.
func (p *Predictor) Predict(m *img.RGBImage) Prediction {
	t := m.Tensor()
	x := t.Reshape(append([]int{1}, t.Dims...)...)
	out := p.Net.Predict(x)
	return Classify(out.Data[0])
}

// Batch runs inference on a batch of preprocessed images and returns a
// probability matrix with one row per image and one column per class. This
// is the prediction function signature the lime explainer consumes.
func (p *Predictor) Batch(images []*img.RGBImage) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}
	shape := p.Net.InShape()
	nfeat := num.Prod(shape)
	x := num.NewArray(append([]int{len(images)}, shape...)...)
	for i, m := range images {
		copy(x.Data[i*nfeat:(i+1)*nfeat], m.Pix)
	}
	out := p.Net.Predict(x)
	probs := make([][]float32, len(images))
	for i := range probs {
		pn := out.Data[i]
		probs[i] = []float32{1 - pn, pn}
	}
	return probs, nil
}
