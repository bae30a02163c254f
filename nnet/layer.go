package nnet

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

// Layer interface type represents one layer of the neural net. Init is given
// the input shape excluding the batch dimension and returns the output shape.
// Fprop and Bprop operate on arrays with the batch as the leading dimension.
type Layer interface {
	Init(inShape []int, rng *rand.Rand) []int
	InShape() []int
	OutShape() []int
	Fprop(in *num.Array, train bool) *num.Array
	Bprop(grad *num.Array) *num.Array
	Output() *num.Array
	ToString() string
}

// ParamLayer is a layer with weight and bias parameters
type ParamLayer interface {
	Layer
	InitParams(rng *rand.Rand)
	Params() (W, B *num.Array)
	ParamGrads() (dW, dB *num.Array)
	SetParams(W, B *num.Array)
}

// OutputLayer is the final layer in the stack
type OutputLayer interface {
	Layer
	Loss(y, yPred *num.Array) float64
}

// Layer configuration details
type LayerConfig struct {
	Type string
	Data json.RawMessage
}

type ConfigLayer interface {
	Marshal() LayerConfig
}

// Unmarshal JSON data and construct new layer
func (l LayerConfig) Unmarshal() Layer {
	switch l.Type {
	case "conv":
		cfg := new(Conv)
		unmarshal(l.Data, cfg)
		return &conv{Conv: *cfg}
	case "maxPool":
		cfg := new(MaxPool)
		unmarshal(l.Data, cfg)
		return &maxPool{MaxPool: *cfg}
	case "linear":
		cfg := new(Linear)
		unmarshal(l.Data, cfg)
		return &linear{Linear: *cfg}
	case "activation":
		cfg := new(Activation)
		unmarshal(l.Data, cfg)
		switch cfg.Atype {
		case "relu":
			return &relu{Activation: *cfg}
		case "sigmoid":
			return &sigmoid{Activation: *cfg}
		default:
			panic(fmt.Sprintf("activation type %s invalid", cfg.Atype))
		}
	case "dropout":
		cfg := new(Dropout)
		unmarshal(l.Data, cfg)
		return &dropout{Dropout: *cfg}
	case "flatten":
		return &flatten{}
	default:
		panic("invalid layer type: " + l.Type)
	}
}

func (l LayerConfig) String() string {
	return l.Unmarshal().ToString()
}

// Convolutional layer, implements ParamLayer interface.
type Conv struct {
	Nfeats, Size, Stride, Pad int
}

func (c Conv) Marshal() LayerConfig {
	if c.Stride == 0 {
		c.Stride = 1
	}
	return LayerConfig{Type: "conv", Data: marshal(c)}
}

func (c Conv) ToString() string {
	return fmt.Sprintf("conv %+v", c)
}

// Max pooling layer, should follow conv layer.
type MaxPool struct {
	Size, Stride int
}

func (c MaxPool) Marshal() LayerConfig {
	if c.Stride == 0 {
		c.Stride = c.Size
	}
	return LayerConfig{Type: "maxPool", Data: marshal(c)}
}

func (c MaxPool) ToString() string {
	return fmt.Sprintf("maxPool %+v", c)
}

// Linear fully connected layer, implements ParamLayer interface.
type Linear struct {
	Nout int
}

func (c Linear) Marshal() LayerConfig {
	return LayerConfig{Type: "linear", Data: marshal(c)}
}

func (c Linear) ToString() string {
	return fmt.Sprintf("linear %+v", c)
}

// Sigmoid or relu activation layer. The sigmoid activation is the output
// layer and implements the OutputLayer interface.
type Activation struct {
	Atype string
}

func (c Activation) Marshal() LayerConfig {
	return LayerConfig{Type: "activation", Data: marshal(c)}
}

func (c Activation) ToString() string {
	return fmt.Sprintf("activation %+v", c)
}

// Dropout layer randomly zeroes activations during training only.
type Dropout struct {
	Ratio float64
}

func (c Dropout) Marshal() LayerConfig {
	return LayerConfig{Type: "dropout", Data: marshal(c)}
}

func (c Dropout) ToString() string {
	return fmt.Sprintf("dropout %+v", c)
}

// Flatten layer reshapes the input to 2 dimensions.
type Flatten struct{}

func (c Flatten) Marshal() LayerConfig {
	return LayerConfig{Type: "flatten"}
}

// convolution layer implementation using im2col + gemm
type conv struct {
	Conv
	layerBase
	paramBase
	oh, ow int
	cols   *num.Array
	dcols  *num.Array
}

func (l *conv) Init(inShape []int, rng *rand.Rand) []int {
	if len(inShape) != 3 {
		panic("Conv: expect 3 dimensional input")
	}
	if l.Stride == 0 {
		l.Stride = 1
	}
	h, w, c := inShape[0], inShape[1], inShape[2]
	l.oh = num.ConvSize(h, l.Size, l.Stride, l.Pad)
	l.ow = num.ConvSize(w, l.Size, l.Stride, l.Pad)
	l.inShape = inShape
	l.outShape = []int{l.oh, l.ow, l.Nfeats}
	k := l.Size * l.Size * c
	l.paramBase = newParams([]int{k, l.Nfeats}, []int{l.Nfeats})
	l.cols = num.NewArray(l.oh*l.ow, k)
	l.dcols = num.NewArray(l.oh*l.ow, k)
	return l.outShape
}

func (l *conv) Fprop(in *num.Array, train bool) *num.Array {
	l.src = in
	n := in.Dims[0]
	h, w, c := l.inShape[0], l.inShape[1], l.inShape[2]
	nfeat := l.oh * l.ow * l.Nfeats
	if l.dst == nil || l.dst.Dims[0] != n {
		l.dst = num.NewArray(append([]int{n}, l.outShape...)...)
	}
	for s := 0; s < n; s++ {
		num.Im2col(in.Data[s*h*w*c:(s+1)*h*w*c], h, w, c, l.Size, l.Size, l.Stride, l.Pad, l.cols.Data)
		out := num.NewArrayFrom(l.dst.Data[s*nfeat:(s+1)*nfeat], l.oh*l.ow, l.Nfeats)
		num.Gemm(1, 0, l.cols, l.w, out, false, false)
		for i := 0; i < l.oh*l.ow; i++ {
			for f := 0; f < l.Nfeats; f++ {
				out.Data[i*l.Nfeats+f] += l.b.Data[f]
			}
		}
	}
	return l.dst
}

func (l *conv) Bprop(grad *num.Array) *num.Array {
	n := grad.Dims[0]
	h, w, c := l.inShape[0], l.inShape[1], l.inShape[2]
	nfeat := l.oh * l.ow * l.Nfeats
	if l.dsrc == nil || l.dsrc.Dims[0] != n {
		l.dsrc = num.NewArray(append([]int{n}, l.inShape...)...)
	}
	num.Fill(l.dsrc, 0)
	num.Fill(l.dw, 0)
	num.Fill(l.db, 0)
	for s := 0; s < n; s++ {
		num.Im2col(l.src.Data[s*h*w*c:(s+1)*h*w*c], h, w, c, l.Size, l.Size, l.Stride, l.Pad, l.cols.Data)
		g := num.NewArrayFrom(grad.Data[s*nfeat:(s+1)*nfeat], l.oh*l.ow, l.Nfeats)
		num.Gemm(1, 1, l.cols, g, l.dw, true, false)
		for i := 0; i < l.oh*l.ow; i++ {
			for f := 0; f < l.Nfeats; f++ {
				l.db.Data[f] += g.Data[i*l.Nfeats+f]
			}
		}
		num.Gemm(1, 0, g, l.w, l.dcols, false, true)
		num.Col2im(l.dcols.Data, h, w, c, l.Size, l.Size, l.Stride, l.Pad, l.dsrc.Data[s*h*w*c:(s+1)*h*w*c])
	}
	return l.dsrc
}

// max pooling layer implementation
type maxPool struct {
	MaxPool
	layerBase
	argmax []int
}

func (l *maxPool) Init(inShape []int, rng *rand.Rand) []int {
	if len(inShape) != 3 {
		panic("MaxPool: expect 3 dimensional input")
	}
	if l.Stride == 0 {
		l.Stride = l.Size
	}
	h, w, c := inShape[0], inShape[1], inShape[2]
	l.inShape = inShape
	l.outShape = []int{num.ConvSize(h, l.Size, l.Stride, 0), num.ConvSize(w, l.Size, l.Stride, 0), c}
	return l.outShape
}

func (l *maxPool) Fprop(in *num.Array, train bool) *num.Array {
	l.src = in
	n := in.Dims[0]
	h, w, c := l.inShape[0], l.inShape[1], l.inShape[2]
	nfeat := num.Prod(l.outShape)
	if l.dst == nil || l.dst.Dims[0] != n {
		l.dst = num.NewArray(append([]int{n}, l.outShape...)...)
		l.argmax = make([]int, n*nfeat)
	}
	for s := 0; s < n; s++ {
		num.MaxPool(in.Data[s*h*w*c:(s+1)*h*w*c], h, w, c, l.Size, l.Stride,
			l.dst.Data[s*nfeat:(s+1)*nfeat], l.argmax[s*nfeat:(s+1)*nfeat])
	}
	return l.dst
}

func (l *maxPool) Bprop(grad *num.Array) *num.Array {
	n := grad.Dims[0]
	nin := num.Prod(l.inShape)
	nfeat := num.Prod(l.outShape)
	if l.dsrc == nil || l.dsrc.Dims[0] != n {
		l.dsrc = num.NewArray(append([]int{n}, l.inShape...)...)
	}
	num.Fill(l.dsrc, 0)
	for s := 0; s < n; s++ {
		num.MaxPoolD(grad.Data[s*nfeat:(s+1)*nfeat], l.argmax[s*nfeat:(s+1)*nfeat],
			l.dsrc.Data[s*nin:(s+1)*nin])
	}
	return l.dsrc
}

// linear layer implementation
type linear struct {
	Linear
	layerBase
	paramBase
	nin int
}

func (l *linear) Init(inShape []int, rng *rand.Rand) []int {
	if len(inShape) != 1 {
		panic("Linear: expect flattened input")
	}
	l.nin = inShape[0]
	l.inShape = inShape
	l.outShape = []int{l.Nout}
	l.paramBase = newParams([]int{l.nin, l.Nout}, []int{l.Nout})
	return l.outShape
}

func (l *linear) Fprop(in *num.Array, train bool) *num.Array {
	l.src = in
	n := in.Dims[0]
	if l.dst == nil || l.dst.Dims[0] != n {
		l.dst = num.NewArray(n, l.Nout)
	}
	for s := 0; s < n; s++ {
		copy(l.dst.Data[s*l.Nout:(s+1)*l.Nout], l.b.Data)
	}
	num.Gemm(1, 1, in, l.w, l.dst, false, false)
	return l.dst
}

func (l *linear) Bprop(grad *num.Array) *num.Array {
	n := grad.Dims[0]
	if l.dsrc == nil || l.dsrc.Dims[0] != n {
		l.dsrc = num.NewArray(n, l.nin)
	}
	num.Gemm(1, 0, l.src, grad, l.dw, true, false)
	num.Fill(l.db, 0)
	for s := 0; s < n; s++ {
		for j := 0; j < l.Nout; j++ {
			l.db.Data[j] += grad.Data[s*l.Nout+j]
		}
	}
	num.Gemm(1, 0, grad, l.w, l.dsrc, false, true)
	return l.dsrc
}

// relu activation layer
type relu struct {
	Activation
	layerBase
}

func (l *relu) Init(inShape []int, rng *rand.Rand) []int {
	l.inShape = inShape
	l.outShape = inShape
	return inShape
}

func (l *relu) Fprop(in *num.Array, train bool) *num.Array {
	l.src = in
	if l.dst == nil || l.dst.Dims[0] != in.Dims[0] {
		l.dst = num.NewArrayLike(in)
	}
	num.Relu(in, l.dst)
	return l.dst
}

func (l *relu) Bprop(grad *num.Array) *num.Array {
	if l.dsrc == nil || l.dsrc.Dims[0] != grad.Dims[0] {
		l.dsrc = num.NewArrayLike(grad)
	}
	num.ReluD(l.src, grad, l.dsrc)
	return l.dsrc
}

// sigmoid output layer: combined with the binary cross entropy loss the
// gradient at the logit is yPred - y, so Bprop passes the gradient through.
type sigmoid struct {
	Activation
	layerBase
}

func (l *sigmoid) Init(inShape []int, rng *rand.Rand) []int {
	l.inShape = inShape
	l.outShape = inShape
	return inShape
}

func (l *sigmoid) Fprop(in *num.Array, train bool) *num.Array {
	l.src = in
	if l.dst == nil || l.dst.Dims[0] != in.Dims[0] {
		l.dst = num.NewArrayLike(in)
	}
	num.Sigmoid(in, l.dst)
	return l.dst
}

func (l *sigmoid) Bprop(grad *num.Array) *num.Array {
	l.dsrc = grad
	return l.dsrc
}

func (l *sigmoid) Loss(y, yPred *num.Array) float64 {
	return num.BinaryCrossEntropy(y, yPred)
}

// dropout layer implementation with inverted scaling
type dropout struct {
	Dropout
	layerBase
	rng       *rand.Rand
	buf       *num.Array
	dbuf      *num.Array
	mask      []float32
	lastTrain bool
}

func (l *dropout) Init(inShape []int, rng *rand.Rand) []int {
	l.inShape = inShape
	l.outShape = inShape
	l.rng = rng
	return inShape
}

func (l *dropout) Fprop(in *num.Array, train bool) *num.Array {
	l.src = in
	l.lastTrain = train
	if !train {
		l.dst = in
		return in
	}
	if l.buf == nil || len(l.buf.Data) != len(in.Data) {
		l.buf = num.NewArrayLike(in)
		l.mask = make([]float32, len(in.Data))
	}
	keep := float32(1 - l.Ratio)
	for i, v := range in.Data {
		if l.rng.Float32() < keep {
			l.mask[i] = 1 / keep
		} else {
			l.mask[i] = 0
		}
		l.buf.Data[i] = v * l.mask[i]
	}
	l.dst = l.buf
	return l.dst
}

func (l *dropout) Bprop(grad *num.Array) *num.Array {
	if !l.lastTrain {
		l.dsrc = grad
		return grad
	}
	if l.dbuf == nil || len(l.dbuf.Data) != len(grad.Data) {
		l.dbuf = num.NewArrayLike(grad)
	}
	for i, g := range grad.Data {
		l.dbuf.Data[i] = g * l.mask[i]
	}
	l.dsrc = l.dbuf
	return l.dsrc
}

// flatten layer implementation
type flatten struct {
	layerBase
	srcDims []int
}

func (l *flatten) ToString() string { return "flatten" }

func (l *flatten) Init(inShape []int, rng *rand.Rand) []int {
	l.inShape = inShape
	l.outShape = []int{num.Prod(inShape)}
	return l.outShape
}

func (l *flatten) Fprop(in *num.Array, train bool) *num.Array {
	l.srcDims = in.Dims
	l.dst = in.Reshape(in.Dims[0], -1)
	return l.dst
}

func (l *flatten) Bprop(grad *num.Array) *num.Array {
	l.dsrc = grad.Reshape(l.srcDims...)
	return l.dsrc
}

// common layer state
type layerBase struct {
	inShape  []int
	outShape []int
	src      *num.Array
	dst      *num.Array
	dsrc     *num.Array
}

func (l *layerBase) InShape() []int { return l.inShape }

func (l *layerBase) OutShape() []int { return l.outShape }

func (l *layerBase) Output() *num.Array { return l.dst }

// weight and bias parameters
type paramBase struct {
	w, b   *num.Array
	dw, db *num.Array
}

func newParams(wShape, bShape []int) paramBase {
	return paramBase{
		w:  num.NewArray(wShape...),
		b:  num.NewArray(bShape...),
		dw: num.NewArray(wShape...),
		db: num.NewArray(bShape...),
	}
}

func (p paramBase) Params() (W, B *num.Array) {
	return p.w, p.b
}

func (p paramBase) ParamGrads() (dW, dB *num.Array) {
	return p.dw, p.db
}

func (p paramBase) SetParams(W, B *num.Array) {
	num.Copy(p.w, W)
	num.Copy(p.b, B)
}

// Weights are drawn from a normal distribution scaled by 1/sqrt(nin),
// biases start at zero.
func (p paramBase) InitParams(rng *rand.Rand) {
	nin := p.w.Dims[0]
	scale := float32(1 / math.Sqrt(float64(nin)))
	for i := range p.w.Data {
		p.w.Data[i] = float32(rng.NormFloat64()) * scale
	}
	num.Fill(p.b, 0)
}

func marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func unmarshal(data json.RawMessage, v interface{}) {
	err := json.Unmarshal(data, v)
	if err != nil {
		panic(err)
	}
}
