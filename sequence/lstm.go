package sequence

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// network is a single layer LSTM over a univariate sequence followed by a dense output
// on the final hidden state. Parameters live in one flat slice so the optimizer and
// snapshotting treat them uniformly:
//
//	w  [4h x (1+h)] gate weights over [x_t, h_{t-1}], gate order input, forget, cell, output
//	b  [4h]         gate biases
//	wy [h]          output weights
//	by [1]          output bias
type network struct {
	hidden int
	params []float64
}

func newNetwork(hidden int, rng *rand.Rand) *network {
	n := &network{hidden: hidden}
	n.params = make([]float64, n.size())

	limit := 1.0 / math.Sqrt(float64(hidden))
	w, b, wy, _ := n.split(n.params)
	for i := range w {
		w[i] = (2*rng.Float64() - 1) * limit
	}
	// bias the forget gate open at start
	for i := hidden; i < 2*hidden; i++ {
		b[i] = 1.0
	}
	for i := range wy {
		wy[i] = (2*rng.Float64() - 1) * limit
	}
	return n
}

func (n *network) size() int {
	h := n.hidden
	return 4*h*(1+h) + 4*h + h + 1
}

func (n *network) split(p []float64) (w, b, wy, by []float64) {
	h := n.hidden
	nw := 4 * h * (1 + h)
	w = p[:nw]
	b = p[nw : nw+4*h]
	wy = p[nw+4*h : nw+5*h]
	by = p[nw+5*h:]
	return
}

func (n *network) clone() *network {
	return &network{hidden: n.hidden, params: append([]float64(nil), n.params...)}
}

// trace keeps the per step activations of a forward pass for backpropagation
type trace struct {
	x    []float64
	gate [][]float64 // activated i, f, g, o per step
	c    [][]float64
	h    [][]float64
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// forward runs the sequence where step t reads x(t). The trace is only filled when
// non-nil.
func (n *network) forward(steps int, x func(int) float64, tr *trace) float64 {
	h := n.hidden
	w, b, wy, by := n.split(n.params)
	cols := 1 + h

	hPrev := make([]float64, h)
	cPrev := make([]float64, h)
	z := make([]float64, 4*h)
	for t := 0; t < steps; t++ {
		xt := x(t)
		for r := 0; r < 4*h; r++ {
			row := w[r*cols : (r+1)*cols]
			z[r] = b[r] + row[0]*xt + floats.Dot(row[1:], hPrev)
		}

		gate := make([]float64, 4*h)
		cNext := make([]float64, h)
		hNext := make([]float64, h)
		for j := 0; j < h; j++ {
			ig := sigmoid(z[j])
			fg := sigmoid(z[h+j])
			gg := math.Tanh(z[2*h+j])
			og := sigmoid(z[3*h+j])
			gate[j], gate[h+j], gate[2*h+j], gate[3*h+j] = ig, fg, gg, og

			cNext[j] = fg*cPrev[j] + ig*gg
			hNext[j] = og * math.Tanh(cNext[j])
		}
		if tr != nil {
			tr.x = append(tr.x, xt)
			tr.gate = append(tr.gate, gate)
			tr.c = append(tr.c, cNext)
			tr.h = append(tr.h, hNext)
		}
		hPrev, cPrev = hNext, cNext
	}
	return floats.Dot(wy, hPrev) + by[0]
}

// backward accumulates into grad the gradient of the loss with respect to the
// parameters given dy, the loss gradient at the output.
func (n *network) backward(tr *trace, dy float64, grad []float64) {
	h := n.hidden
	w, _, wy, _ := n.split(n.params)
	gw, gb, gwy, gby := n.split(grad)
	cols := 1 + h
	steps := len(tr.x)

	last := tr.h[steps-1]
	floats.AddScaled(gwy, dy, last)
	gby[0] += dy

	dh := make([]float64, h)
	floats.AddScaled(dh, dy, wy)
	dc := make([]float64, h)
	dz := make([]float64, 4*h)
	zeros := make([]float64, h)

	for t := steps - 1; t >= 0; t-- {
		gate := tr.gate[t]
		cPrev, hPrev := zeros, zeros
		if t > 0 {
			cPrev, hPrev = tr.c[t-1], tr.h[t-1]
		}

		for j := 0; j < h; j++ {
			ig, fg, gg, og := gate[j], gate[h+j], gate[2*h+j], gate[3*h+j]
			tc := math.Tanh(tr.c[t][j])

			do := dh[j] * tc
			dc[j] += dh[j] * og * (1 - tc*tc)

			dz[j] = dc[j] * gg * ig * (1 - ig)
			dz[h+j] = dc[j] * cPrev[j] * fg * (1 - fg)
			dz[2*h+j] = dc[j] * ig * (1 - gg*gg)
			dz[3*h+j] = do * og * (1 - og)

			dc[j] *= fg
		}

		for j := range dh {
			dh[j] = 0
		}
		for r := 0; r < 4*h; r++ {
			if dz[r] == 0 {
				continue
			}
			row := w[r*cols : (r+1)*cols]
			grow := gw[r*cols : (r+1)*cols]
			grow[0] += dz[r] * tr.x[t]
			floats.AddScaled(grow[1:], dz[r], hPrev)
			gb[r] += dz[r]
			floats.AddScaled(dh, dz[r], row[1:])
		}
	}
}

// adam is the Adam optimizer over a flat parameter slice
type adam struct {
	lr, beta1, beta2, eps float64
	m, v                  []float64
	t                     int
}

func newAdam(size int, lr float64) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     make([]float64, size),
		v:     make([]float64, size),
	}
}

func (a *adam) step(params, grad []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, g := range grad {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		mHat := a.m[i] / c1
		vHat := a.v[i] / c2
		params[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// clip rescales grad so its L2 norm is at most maxNorm. A zero maxNorm disables it.
func clip(grad []float64, maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	norm := floats.Norm(grad, 2)
	if norm > maxNorm {
		floats.Scale(maxNorm/norm, grad)
	}
}
