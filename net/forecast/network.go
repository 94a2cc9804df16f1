// Package forecast assembles the encoder, fusion, decoder and risk head into
// the multi-modal forecasting network.
package forecast

import "fmt"
import "math/rand"
import "sort"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/layer"
import "github.com/neurlang/climapredict/layer/dropout"
import "github.com/neurlang/climapredict/layer/full"
import "github.com/neurlang/climapredict/layer/lstm"

// Network is the forecasting model. Forward and Backward mutate per-batch
// caches and must be driven by a single goroutine; Infer and Predict only read
// the weights and are safe for concurrent use once training is over.
type Network struct {
	arch Architecture

	satellite [2]*lstm.LSTM
	sensor    [2]*lstm.LSTM
	static    *full.Full
	fusion    *full.Full
	dropout   *dropout.Dropout
	decoder   *lstm.LSTM
	project   *full.Full
	riskHide  *full.Full
	risk      *full.Full

	params []*layer.Param

	// state of the last Forward
	batch    int
	training bool
}

// MustNew creates a new network, panicking on an invalid architecture
func MustNew(arch Architecture, seed int64) *Network {
	n, err := New(arch, seed)
	if err != nil {
		panic(err.Error())
	}
	return n
}

// New builds the network with weights drawn from a generator seeded with seed.
func New(arch Architecture, seed int64) (*Network, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	n := &Network{arch: arch}

	n.satellite[0] = lstm.MustNew("satellite_lstm_1", climate.SatelliteFeatures, arch.SatelliteUnits[0], true, rng)
	n.satellite[1] = lstm.MustNew("satellite_lstm_2", arch.SatelliteUnits[0], arch.SatelliteUnits[1], false, rng)
	n.sensor[0] = lstm.MustNew("sensor_lstm_1", climate.SensorFeatures, arch.SensorUnits[0], true, rng)
	n.sensor[1] = lstm.MustNew("sensor_lstm_2", arch.SensorUnits[0], arch.SensorUnits[1], false, rng)
	n.static = full.MustNew("static_dense", climate.StaticFeatures, arch.StaticUnits, layer.ReLU, rng)
	n.fusion = full.MustNew("fusion_dense", arch.Concat(), arch.FusionUnits, layer.ReLU, rng)
	n.dropout = dropout.MustNew(arch.Dropout, uint32(seed))
	n.decoder = lstm.MustNew("decoder_lstm", arch.FusionUnits, arch.DecoderUnits, true, rng)
	n.project = full.MustNew("forecast_dense", arch.DecoderUnits, arch.Variables, layer.Linear, rng)
	n.riskHide = full.MustNew("risk_dense_1", arch.FusionUnits, arch.RiskUnits, layer.ReLU, rng)
	n.risk = full.MustNew("risk_dense_2", arch.RiskUnits, arch.Horizon, layer.Sigmoid, rng)

	for _, l := range n.layers() {
		n.params = append(n.params, l.Params()...)
	}
	sort.Slice(n.params, func(i, j int) bool {
		return n.params[i].Name < n.params[j].Name
	})
	return n, nil
}

func (n *Network) layers() []layer.Layer {
	return []layer.Layer{
		n.satellite[0], n.satellite[1],
		n.sensor[0], n.sensor[1],
		n.static, n.fusion,
		n.decoder, n.project,
		n.riskHide, n.risk,
	}
}

// Arch returns the architecture the network was built with.
func (n *Network) Arch() Architecture {
	return n.arch
}

// Params returns every trainable parameter sorted by name.
func (n *Network) Params() []*layer.Param {
	return n.params
}

// ZeroGrad clears every accumulated gradient.
func (n *Network) ZeroGrad() {
	for _, p := range n.params {
		p.ZeroGrad()
	}
}

// Size reports the number of scalar weights.
func (n *Network) Size() (total int) {
	for _, p := range n.params {
		total += p.Size()
	}
	return
}

// SeedForecastBias sets the forecast projection bias to per-variable offsets,
// typically the training-set means, so the first epochs start near the data.
func (n *Network) SeedForecastBias(mean [climate.Variables]float64) {
	copy(n.project.Bias().W.RawRowView(0), mean[:])
}

// Forward runs a batch and caches what Backward needs. With training set the
// fusion dropout is active.
func (n *Network) Forward(in climate.Inputs, training bool) (Result, error) {
	b, err := in.Validate()
	if err != nil {
		return nil, err
	}
	n.batch, n.training = b, training

	sat := n.satellite[1].Forward(n.satellite[0].Forward(in.Satellite))[0]
	sen := n.sensor[1].Forward(n.sensor[0].Forward(in.Sensor))[0]
	st := n.static.Forward(in.Static)

	fused := n.fusion.Forward(concat(sat, sen, st))
	if training {
		fused = n.dropout.Forward(fused)
	}

	steps := n.decoder.Forward(repeat(fused, n.arch.Horizon))
	grid := n.project.Forward(stack(steps))

	return Result{
		Forecast: dayMajor(grid, b, n.arch.Horizon),
		Risk:     n.risk.Forward(n.riskHide.Forward(fused)),
	}, nil
}

// Backward propagates the loss gradient with respect to every output of the
// last Forward and accumulates the parameter gradients.
func (n *Network) Backward(grads Result) error {
	if n.batch == 0 {
		return fmt.Errorf("forecast: Backward called before Forward")
	}
	for _, o := range Outputs() {
		g, ok := grads[o]
		if !ok || g == nil {
			return fmt.Errorf("forecast: missing gradient for output %s", o)
		}
		if r, c := g.Dims(); r != n.batch || c != o.Width() {
			return &climate.ShapeMismatchError{Name: o.String() + " gradient", Want: []int{n.batch, o.Width()}, Got: []int{r, c}}
		}
	}

	dgrid := n.project.Backward(unDayMajor(grads[Forecast], n.batch, n.arch.Horizon))
	dfused := mat.NewDense(n.batch, n.arch.FusionUnits, nil)
	for _, dx := range n.decoder.Backward(unstack(dgrid, n.batch)) {
		dfused.Add(dfused, dx)
	}
	dfused.Add(dfused, n.riskHide.Backward(n.risk.Backward(grads[Risk])))

	if n.training {
		dfused = n.dropout.Backward(dfused)
	}
	dcat := n.fusion.Backward(dfused)

	a := n.arch
	dsat := dcat.Slice(0, n.batch, 0, a.SatelliteUnits[1]).(*mat.Dense)
	dsen := dcat.Slice(0, n.batch, a.SatelliteUnits[1], a.SatelliteUnits[1]+a.SensorUnits[1]).(*mat.Dense)
	dst := dcat.Slice(0, n.batch, a.SatelliteUnits[1]+a.SensorUnits[1], a.Concat()).(*mat.Dense)

	n.satellite[0].Backward(n.satellite[1].Backward([]*mat.Dense{mat.DenseCopyOf(dsat)}))
	n.sensor[0].Backward(n.sensor[1].Backward([]*mat.Dense{mat.DenseCopyOf(dsen)}))
	n.static.Backward(mat.DenseCopyOf(dst))
	return nil
}

// Infer runs a batch without dropout or caching.
func (n *Network) Infer(in climate.Inputs) (Result, error) {
	b, err := in.Validate()
	if err != nil {
		return nil, err
	}
	sat := n.satellite[1].Infer(n.satellite[0].Infer(in.Satellite))[0]
	sen := n.sensor[1].Infer(n.sensor[0].Infer(in.Sensor))[0]
	fused := n.fusion.Infer(concat(sat, sen, n.static.Infer(in.Static)))

	grid := n.project.Infer(stack(n.decoder.Infer(repeat(fused, n.arch.Horizon))))
	return Result{
		Forecast: dayMajor(grid, b, n.arch.Horizon),
		Risk:     n.risk.Infer(n.riskHide.Infer(fused)),
	}, nil
}

// Predict runs a batch and returns per-sample forecast grids and risk vectors.
func (n *Network) Predict(in climate.Inputs) ([][climate.Horizon][climate.Variables]float64, [][climate.Horizon]float64, error) {
	res, err := n.Infer(in)
	if err != nil {
		return nil, nil, err
	}
	return Unpack(res)
}

// Unpack converts batch outputs into per-sample arrays.
func Unpack(res Result) ([][climate.Horizon][climate.Variables]float64, [][climate.Horizon]float64, error) {
	f, r := res[Forecast], res[Risk]
	if f == nil || r == nil {
		return nil, nil, fmt.Errorf("forecast: incomplete result")
	}
	b, _ := f.Dims()
	grids := make([][climate.Horizon][climate.Variables]float64, b)
	risks := make([][climate.Horizon]float64, b)
	for i := 0; i < b; i++ {
		row := f.RawRowView(i)
		for d := 0; d < climate.Horizon; d++ {
			copy(grids[i][d][:], row[d*climate.Variables:(d+1)*climate.Variables])
		}
		copy(risks[i][:], r.RawRowView(i))
	}
	return grids, risks, nil
}

func concat(ms ...*mat.Dense) *mat.Dense {
	r, _ := ms[0].Dims()
	width := 0
	for _, m := range ms {
		_, c := m.Dims()
		width += c
	}
	o := mat.NewDense(r, width, nil)
	for i := 0; i < r; i++ {
		row, at := o.RawRowView(i), 0
		for _, m := range ms {
			at += copy(row[at:], m.RawRowView(i))
		}
	}
	return o
}

func repeat(m *mat.Dense, times int) []*mat.Dense {
	o := make([]*mat.Dense, times)
	for i := range o {
		o[i] = m
	}
	return o
}

// stack puts timestep matrices on top of each other: row t·b+i is sample i at step t.
func stack(steps []*mat.Dense) *mat.Dense {
	b, c := steps[0].Dims()
	o := mat.NewDense(len(steps)*b, c, nil)
	for t, s := range steps {
		for i := 0; i < b; i++ {
			o.SetRow(t*b+i, s.RawRowView(i))
		}
	}
	return o
}

func unstack(m *mat.Dense, b int) []*mat.Dense {
	r, c := m.Dims()
	o := make([]*mat.Dense, r/b)
	for t := range o {
		o[t] = mat.NewDense(b, c, nil)
		for i := 0; i < b; i++ {
			o[t].SetRow(i, m.RawRowView(t*b+i))
		}
	}
	return o
}

// dayMajor turns a stacked (horizon·b)×v grid into b×(horizon·v) rows, day 0 first.
func dayMajor(grid *mat.Dense, b, horizon int) *mat.Dense {
	_, v := grid.Dims()
	o := mat.NewDense(b, horizon*v, nil)
	for i := 0; i < b; i++ {
		row := o.RawRowView(i)
		for d := 0; d < horizon; d++ {
			copy(row[d*v:(d+1)*v], grid.RawRowView(d*b+i))
		}
	}
	return o
}

func unDayMajor(m *mat.Dense, b, horizon int) *mat.Dense {
	_, c := m.Dims()
	v := c / horizon
	o := mat.NewDense(horizon*b, v, nil)
	for i := 0; i < b; i++ {
		row := m.RawRowView(i)
		for d := 0; d < horizon; d++ {
			copy(o.RawRowView(d*b+i), row[d*v:(d+1)*v])
		}
	}
	return o
}
