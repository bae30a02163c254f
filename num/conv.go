package num

// ConvSize returns the output spatial size for a convolution or pooling op.
func ConvSize(in, kernel, stride, pad int) int {
	return (in+2*pad-kernel)/stride + 1
}

// Im2col expands one image in HWC layout into a matrix with one row per output
// position and one column per kernel element so that the convolution reduces
// to a matrix multiply. dst must have size ConvSize(h)*ConvSize(w) x kh*kw*c.
func Im2col(src []float32, h, w, c, kh, kw, stride, pad int, dst []float32) {
	oh := ConvSize(h, kh, stride, pad)
	ow := ConvSize(w, kw, stride, pad)
	pos := 0
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			for ky := 0; ky < kh; ky++ {
				y := oy*stride + ky - pad
				for kx := 0; kx < kw; kx++ {
					x := ox*stride + kx - pad
					if y < 0 || y >= h || x < 0 || x >= w {
						for ch := 0; ch < c; ch++ {
							dst[pos] = 0
							pos++
						}
					} else {
						copy(dst[pos:pos+c], src[(y*w+x)*c:(y*w+x)*c+c])
						pos += c
					}
				}
			}
		}
	}
}

// Col2im scatters gradients from the im2col matrix layout back to image
// layout, accumulating into dst of size h*w*c.
func Col2im(cols []float32, h, w, c, kh, kw, stride, pad int, dst []float32) {
	oh := ConvSize(h, kh, stride, pad)
	ow := ConvSize(w, kw, stride, pad)
	pos := 0
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			for ky := 0; ky < kh; ky++ {
				y := oy*stride + ky - pad
				for kx := 0; kx < kw; kx++ {
					x := ox*stride + kx - pad
					if y < 0 || y >= h || x < 0 || x >= w {
						pos += c
						continue
					}
					for ch := 0; ch < c; ch++ {
						dst[(y*w+x)*c+ch] += cols[pos]
						pos++
					}
				}
			}
		}
	}
}

// MaxPool applies max pooling to one image in HWC layout writing the pooled
// output to dst and the index of each maximum to argmax for backprop.
func MaxPool(src []float32, h, w, c, size, stride int, dst []float32, argmax []int) {
	oh := ConvSize(h, size, stride, 0)
	ow := ConvSize(w, size, stride, 0)
	pos := 0
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			for ch := 0; ch < c; ch++ {
				best := -1
				var max float32
				for ky := 0; ky < size; ky++ {
					y := oy*stride + ky
					if y >= h {
						continue
					}
					for kx := 0; kx < size; kx++ {
						x := ox*stride + kx
						if x >= w {
							continue
						}
						ix := (y*w+x)*c + ch
						if best < 0 || src[ix] > max {
							best, max = ix, src[ix]
						}
					}
				}
				dst[pos] = max
				argmax[pos] = best
				pos++
			}
		}
	}
}

// MaxPoolD scatters the pooled gradient back to the input positions recorded
// in argmax, accumulating into dst which should be zeroed by the caller.
func MaxPoolD(grad []float32, argmax []int, dst []float32) {
	for i, ix := range argmax {
		if ix >= 0 {
			dst[ix] += grad[i]
		}
	}
}
