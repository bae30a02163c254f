package explain

import (
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/img"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/nnet"
	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// GradCAM computes a gradient weighted class activation heatmap from a
// convolution layer of a trained network. The result is deterministic for
// fixed weights and input.
type GradCAM struct {
	Layer int // target layer index, -1 selects the last convolution
}

// NewGradCAM targets the last convolution block.
func NewGradCAM() *GradCAM {
	return &GradCAM{Layer: -1}
}

// Explain runs a forward pass on the image, back propagates the class score
// gradient to the target layer and returns the heatmap upsampled to the
// input resolution with values normalised to the range 0-1.
func (g *GradCAM) Explain(net *nnet.Network, m *img.RGBImage) (*img.GrayImage, error) {
	target := g.Layer
	if target < 0 {
		target = net.LastConv()
	}
	if target < 0 || target >= len(net.Layers) {
		return nil, errors.Errorf("gradcam: no convolution layer to target")
	}
	shape := net.Layers[target].OutShape()
	if len(shape) != 3 {
		return nil, errors.Errorf("gradcam: layer %d output shape %v is not spatial", target, shape)
	}
	t := m.Tensor()
	x := t.Reshape(append([]int{1}, t.Dims...)...)
	out := net.Fprop(x, false)

	// gradient of the class score at the output logit
	ones := num.NewArrayLike(out)
	num.Fill(ones, 1)
	grad := net.BpropTo(target, ones)
	act := net.Layers[target].Output()
	oh, ow, nf := shape[0], shape[1], shape[2]

	// channel importance weights from global average pooled gradients
	weights := make([]float32, nf)
	for i := 0; i < oh*ow; i++ {
		for f := 0; f < nf; f++ {
			weights[f] += grad.Data[i*nf+f]
		}
	}
	for f := range weights {
		weights[f] /= float32(oh * ow)
	}

	// weighted sum of activation maps followed by relu
	heat := img.NewGrayImage(ow, oh)
	var max float32
	for i := 0; i < oh*ow; i++ {
		var v float32
		for f := 0; f < nf; f++ {
			v += weights[f] * act.Data[i*nf+f]
		}
		if v < 0 {
			v = 0
		}
		heat.Pix[i] = v
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for i := range heat.Pix {
			heat.Pix[i] /= max
		}
	}
	resized := resize.Resize(uint(m.Width), uint(m.Height), heat, resize.Bilinear)
	return img.GrayFromImage(resized), nil
}

// OverlayHeatmap blends the heatmap over the image using a red to blue
// colormap scaled by alpha.
func OverlayHeatmap(m *img.RGBImage, heat *img.GrayImage, alpha float32) *img.RGBImage {
	dst := m.Clone()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			h := heat.Pix[y*m.Width+x]
			pos := (y*m.Width + x) * 3
			dst.Pix[pos] = (1-alpha)*dst.Pix[pos] + alpha*h
			dst.Pix[pos+2] = (1-alpha)*dst.Pix[pos+2] + alpha*(1-h)
		}
	}
	return dst
}
