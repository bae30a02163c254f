package num

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Fill sets all elements of a to the given scalar.
func Fill(a *Array, scalar float32) {
	for i := range a.Data {
		a.Data[i] = scalar
	}
}

// Copy copies src to dst which must be the same size.
func Copy(dst, src *Array) {
	if len(dst.Data) != len(src.Data) {
		panic("num: Copy size mismatch")
	}
	copy(dst.Data, src.Data)
}

// Axpy calculates y += alpha*x
func Axpy(alpha float32, x, y *Array) {
	if len(x.Data) != len(y.Data) {
		panic("num: Axpy size mismatch")
	}
	for i, v := range x.Data {
		y.Data[i] += alpha * v
	}
}

// Scale calculates x *= alpha
func Scale(alpha float32, x *Array) {
	for i := range x.Data {
		x.Data[i] *= alpha
	}
}

// Sum returns the sum over all elements.
func Sum(a *Array) float32 {
	var total float32
	for _, v := range a.Data {
		total += v
	}
	return total
}

// Gemm calculates C = alpha*A*B + beta*C treating the arrays as 2 dimensional
// matrices. aTrans and bTrans transpose the respective input.
func Gemm(alpha, beta float32, mA, mB, mC *Array, aTrans, bTrans bool) {
	a := general(mA)
	b := general(mB)
	c := general(mC)
	tA, tB := blas.NoTrans, blas.NoTrans
	if aTrans {
		tA = blas.Trans
	}
	if bTrans {
		tB = blas.Trans
	}
	blas32.Gemm(tA, tB, alpha, a, b, beta, c)
}

func general(a *Array) blas32.General {
	rows := a.Dims[0]
	cols := len(a.Data) / rows
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: a.Data}
}

// Relu applies the rectifier function y = max(x, 0)
func Relu(x, y *Array) {
	for i, v := range x.Data {
		if v > 0 {
			y.Data[i] = v
		} else {
			y.Data[i] = 0
		}
	}
}

// ReluD calculates y = grad where x > 0 else 0
func ReluD(x, grad, y *Array) {
	for i, v := range x.Data {
		if v > 0 {
			y.Data[i] = grad.Data[i]
		} else {
			y.Data[i] = 0
		}
	}
}

// Sigmoid applies the logistic function y = 1/(1+exp(-x))
func Sigmoid(x, y *Array) {
	for i, v := range x.Data {
		y.Data[i] = sigmoid(v)
	}
}

// SigmoidD calculates y = grad * s(x) * (1-s(x))
func SigmoidD(x, grad, y *Array) {
	for i, v := range x.Data {
		s := sigmoid(v)
		y.Data[i] = grad.Data[i] * s * (1 - s)
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// BinaryCrossEntropy returns the mean loss -y*log(p) - (1-y)*log(1-p) over
// the batch where y holds the target labels and p the predicted probabilities.
func BinaryCrossEntropy(y, p *Array) float64 {
	const eps = 1e-7
	var total float64
	for i, yi := range y.Data {
		pi := math.Min(math.Max(float64(p.Data[i]), eps), 1-eps)
		total -= float64(yi)*math.Log(pi) + (1-float64(yi))*math.Log(1-pi)
	}
	return total / float64(len(y.Data))
}
