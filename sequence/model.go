// Package sequence learns short range autocorrelation in a series with a small
// recurrent network and rolls it forward autoregressively.
package sequence

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/neurolytix/go-forecaster/errs"
)

var ErrUninitializedModel = errors.New("uninitialized sequence model")

// Model is a recurrent one step ahead regressor over windows of SequenceLength values.
// A fitted model is read-only and safe for concurrent predictions.
type Model struct {
	opt   *Options
	state *fitState
}

// fitState is everything Fit produces. It is replaced as a whole on refit.
type fitState struct {
	scaler Scaler
	net    *network

	// window holds the last SequenceLength scaled training values
	window []float64

	degenerate bool
	losses     []float64
	trainRMSE  float64
	n          int
}

func New(opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Model{opt: opt}, nil
}

// MinObservations is the shortest series that trains a network
func (m *Model) MinObservations() int {
	if m == nil || m.opt == nil {
		return DefaultSequenceLength + 2
	}
	return m.opt.SequenceLength + 2
}

// Fit trains the network on values. NaN values are dropped. With fewer than
// SequenceLength+2 values the model is fitted but degenerate and predicts zeros; a
// constant series needs no training and predicts its constant.
func (m *Model) Fit(values []float64) error {
	if m == nil {
		return ErrUninitializedModel
	}

	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}

	s := &fitState{
		scaler: NewScaler(clean),
		n:      len(clean),
	}
	if len(clean) < m.MinObservations() {
		slog.Warn("sequence model has insufficient history, predicting zero",
			"reason", "insufficient_history",
			"observations", len(clean),
			"required", m.MinObservations(),
		)
		s.degenerate = true
		m.state = s
		return nil
	}

	scaled := s.scaler.TransformAll(clean)
	seqLen := m.opt.SequenceLength
	s.window = append([]float64(nil), scaled[len(scaled)-seqLen:]...)

	if s.scaler.Range() == 0 {
		slog.Debug("constant series, skipping sequence training", "value", s.scaler.Min)
		m.state = s
		return nil
	}

	s.net, s.losses = m.train(scaled)

	// one step ahead in-sample error in original units
	var sse float64
	for i := seqLen; i < len(scaled); i++ {
		yhat := s.net.forward(seqLen, func(t int) float64 { return scaled[i-seqLen+t] }, nil)
		d := s.scaler.Inverse(yhat) - clean[i]
		sse += d * d
	}
	s.trainRMSE = math.Sqrt(sse / float64(len(scaled)-seqLen))

	slog.Debug("fit sequence model",
		"observations", s.n,
		"epochs", len(s.losses),
		"train_rmse", s.trainRMSE,
	)
	m.state = s
	return nil
}

// train runs minibatch Adam over every window and restores the weights of the epoch
// with the lowest training loss.
func (m *Model) train(scaled []float64) (*network, []float64) {
	opt := m.opt
	seqLen := opt.SequenceLength
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed))

	net := newNetwork(opt.HiddenSize, rng)
	optim := newAdam(net.size(), opt.LearningRate)
	grad := make([]float64, net.size())

	numSamples := len(scaled) - seqLen
	order := make([]int, numSamples)
	for i := range order {
		order[i] = i
	}

	best := net.clone()
	bestLoss := math.Inf(1)
	wait := 0
	var losses []float64

	for epoch := 0; epoch < opt.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var epochLoss float64
		for bStart := 0; bStart < numSamples; bStart += opt.BatchSize {
			bEnd := min(bStart+opt.BatchSize, numSamples)
			batch := float64(bEnd - bStart)
			for i := range grad {
				grad[i] = 0
			}
			for _, idx := range order[bStart:bEnd] {
				tr := &trace{}
				window := scaled[idx : idx+seqLen]
				yhat := net.forward(seqLen, func(t int) float64 { return window[t] }, tr)
				d := yhat - scaled[idx+seqLen]
				epochLoss += d * d
				net.backward(tr, 2*d/batch, grad)
			}
			clip(grad, opt.ClipNorm)
			optim.step(net.params, grad)
		}
		epochLoss /= float64(numSamples)
		losses = append(losses, epochLoss)

		if epochLoss < bestLoss {
			bestLoss = epochLoss
			best = net.clone()
			wait = 0
			continue
		}
		wait++
		if wait >= opt.Patience {
			slog.Debug("early stopping sequence training", "epoch", epoch, "best_loss", bestLoss)
			break
		}
	}
	return best, losses
}

// Predict rolls the model forward horizon steps. Each prediction is written into a
// fixed ring of SequenceLength slots over the oldest value, so later steps consume
// earlier predictions.
func (m *Model) Predict(horizon int) ([]float64, error) {
	if m == nil {
		return nil, ErrUninitializedModel
	}
	s := m.state
	if s == nil {
		return nil, errs.ErrNotFitted
	}
	if horizon < 1 {
		return nil, fmt.Errorf("horizon %d must be positive, %w", horizon, errs.ErrConfiguration)
	}

	res := make([]float64, horizon)
	if s.degenerate {
		return res, nil
	}
	if s.net == nil {
		for i := range res {
			res[i] = s.scaler.Min
		}
		return res, nil
	}

	seqLen := len(s.window)
	ring := make([]float64, seqLen)
	copy(ring, s.window)
	head := 0
	for step := 0; step < horizon; step++ {
		yhat := s.net.forward(seqLen, func(t int) float64 { return ring[(head+t)%seqLen] }, nil)
		res[step] = s.scaler.Inverse(yhat)
		ring[head] = yhat
		head = (head + 1) % seqLen
	}
	return res, nil
}

func (m *Model) Fitted() bool {
	return m != nil && m.state != nil
}

// Degenerate reports whether the last fit had too little history to train
func (m *Model) Degenerate() bool {
	return m != nil && m.state != nil && m.state.degenerate
}

// Scaler returns the normalization captured at fit time
func (m *Model) Scaler() Scaler {
	if m == nil || m.state == nil {
		return Scaler{}
	}
	return m.state.scaler
}

// Losses returns the mean squared training loss per epoch on the scaled values
func (m *Model) Losses() []float64 {
	if m == nil || m.state == nil {
		return nil
	}
	return append([]float64(nil), m.state.losses...)
}

// TrainRMSE is the one step ahead in-sample root mean squared error in original units
func (m *Model) TrainRMSE() float64 {
	if m == nil || m.state == nil {
		return 0
	}
	return m.state.trainRMSE
}
