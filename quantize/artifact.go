package quantize

import "bufio"
import "bytes"
import "encoding/binary"
import "errors"
import "fmt"
import "io"
import "os"
import "path/filepath"
import "sort"

import "github.com/klauspost/compress/zstd"

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/layer"
import "github.com/neurlang/climapredict/net/forecast"

// Magic opens every artifact.
const Magic = "CPQ1"

// Version is the payload layout version written by Encode.
const Version uint16 = 1

// DefaultBudget is the soft artifact size limit.
const DefaultBudget int64 = 50 << 20

// bounds on decoded sizes, far above anything Export writes
const (
	maxTensors  = 1 << 12
	maxElements = 1 << 26
	maxName     = 1 << 10
)

var order = binary.LittleEndian

// ErrFormat reports an artifact that cannot be decoded.
var ErrFormat = errors.New("not a climapredict artifact")

// Model is the decoded content of an artifact with weights expanded to float64.
type Model struct {
	Architecture forecast.Architecture
	Scaler       climate.Scaler
	Tensors      []layer.Tensor
}

// Network rebuilds the network held by the artifact.
func (m *Model) Network() (*forecast.Network, error) {
	n, err := forecast.New(m.Architecture, 0)
	if err != nil {
		return nil, err
	}
	if err := n.SetParams(m.Tensors); err != nil {
		return nil, err
	}
	return n, nil
}

// Encode writes the artifact for arch, scaler and tensors to w. Tensors are
// written in name order, so equal weights always give equal bytes.
func Encode(w io.Writer, arch forecast.Architecture, scaler climate.Scaler, tensors []layer.Tensor) error {
	ts := make([]layer.Tensor, len(tensors))
	copy(ts, tensors)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })

	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	e := encoder{w: bw}

	e.bytes([]byte(Magic))
	e.put(Version)
	for _, v := range []int{
		arch.SatelliteUnits[0], arch.SatelliteUnits[1],
		arch.SensorUnits[0], arch.SensorUnits[1],
		arch.StaticUnits, arch.FusionUnits, arch.DecoderUnits, arch.RiskUnits,
		arch.Horizon, arch.Variables,
	} {
		e.put(int32(v))
	}
	e.put(arch.Dropout)
	for _, s := range []climate.Standard{scaler.Satellite, scaler.Sensor, scaler.Static} {
		e.floats(s.Mean)
		e.floats(s.Std)
	}
	e.put(uint32(len(ts)))
	for _, t := range ts {
		q := Quantize(t)
		e.put(uint16(len(q.Name)))
		e.bytes([]byte(q.Name))
		e.put(uint32(q.Rows))
		e.put(uint32(q.Cols))
		if q.Int8 {
			e.put(uint8(1))
			e.put(q.Scale)
			e.put(q.Q)
		} else {
			e.put(uint8(0))
			e.put(q.F)
		}
	}
	if e.err == nil {
		e.err = bw.Flush()
	}
	if e.err != nil {
		zw.Close()
		return e.err
	}
	return zw.Close()
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) put(v any) {
	if e.err == nil {
		e.err = binary.Write(e.w, order, v)
	}
}

func (e *encoder) bytes(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) floats(v []float64) {
	f := make([]float32, len(v))
	for i := range v {
		f[i] = float32(v[i])
	}
	e.put(uint32(len(f)))
	e.put(f)
}

// Decode reads an artifact written by Encode.
func Decode(r io.Reader) (*Model, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	d := decoder{r: bufio.NewReader(zr)}

	magic := make([]byte, len(Magic))
	d.get(magic)
	if d.err != nil || string(magic) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	var version uint16
	d.get(&version)
	if d.err == nil && version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}

	var m Model
	var dims [10]int32
	var dropout float64
	d.get(&dims)
	d.get(&dropout)
	a := &m.Architecture
	a.SatelliteUnits = [2]int{int(dims[0]), int(dims[1])}
	a.SensorUnits = [2]int{int(dims[2]), int(dims[3])}
	a.StaticUnits, a.FusionUnits, a.DecoderUnits, a.RiskUnits = int(dims[4]), int(dims[5]), int(dims[6]), int(dims[7])
	a.Horizon, a.Variables = int(dims[8]), int(dims[9])
	a.Dropout = dropout

	for _, s := range []*climate.Standard{&m.Scaler.Satellite, &m.Scaler.Sensor, &m.Scaler.Static} {
		s.Mean = d.floats()
		s.Std = d.floats()
	}

	var count uint32
	d.get(&count)
	if d.err == nil && count > maxTensors {
		return nil, fmt.Errorf("%w: %d tensors", ErrFormat, count)
	}
	for i := uint32(0); i < count && d.err == nil; i++ {
		var nameLen uint16
		d.get(&nameLen)
		if nameLen > maxName {
			return nil, fmt.Errorf("%w: tensor name of %d bytes", ErrFormat, nameLen)
		}
		name := make([]byte, nameLen)
		d.get(name)
		var rows, cols uint32
		var kind uint8
		d.get(&rows)
		d.get(&cols)
		d.get(&kind)
		if d.err != nil {
			break
		}
		n := uint64(rows) * uint64(cols)
		if n > maxElements || kind > 1 {
			return nil, fmt.Errorf("%w: tensor %s header", ErrFormat, name)
		}
		q := Quantized{Name: string(name), Rows: int(rows), Cols: int(cols), Int8: kind == 1}
		if q.Int8 {
			d.get(&q.Scale)
			q.Q = make([]int8, n)
			d.get(q.Q)
		} else {
			q.F = make([]float32, n)
			d.get(q.F)
		}
		if d.err == nil {
			d.err = q.validate()
		}
		m.Tensors = append(m.Tensors, q.Tensor())
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, d.err)
	}
	if err := m.Architecture.Validate(); err != nil {
		return nil, err
	}
	if err := m.Scaler.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) get(v any) {
	if d.err == nil {
		d.err = binary.Read(d.r, order, v)
	}
}

func (d *decoder) floats() []float64 {
	var n uint32
	d.get(&n)
	if d.err != nil || n == 0 {
		return nil
	}
	if n > maxElements {
		d.err = fmt.Errorf("vector of %d floats", n)
		return nil
	}
	f := make([]float32, n)
	d.get(f)
	o := make([]float64, n)
	for i := range f {
		o[i] = float64(f[i])
	}
	return o
}

// Read decodes the artifact at path.
func Read(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return m, nil
}

// Artifact describes a written artifact.
type Artifact struct {
	Path string
	Size int64

	// Warning is set when Size exceeds the budget. The artifact is written regardless.
	Warning *ExportSizeWarning
}

// ExportSizeWarning reports an artifact over its soft size budget.
type ExportSizeWarning struct {
	Size, Budget int64
}

func (w *ExportSizeWarning) Error() string {
	return fmt.Sprintf("artifact is %.2f MB, over the %.2f MB budget", mb(w.Size), mb(w.Budget))
}

func mb(n int64) float64 {
	return float64(n) / (1 << 20)
}

// CheckSize returns a warning when size exceeds budget. A non-positive budget disables the check.
func CheckSize(size, budget int64) *ExportSizeWarning {
	if budget > 0 && size > budget {
		return &ExportSizeWarning{Size: size, Budget: budget}
	}
	return nil
}

// Export quantizes net and writes it with scaler to path: the payload goes to a
// temporary file that is synced and renamed over path.
func Export(net *forecast.Network, scaler climate.Scaler, path string, budget int64) (Artifact, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, net.Arch(), scaler, net.Tensors()); err != nil {
		return Artifact{}, fmt.Errorf("encode artifact: %w", err)
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return Artifact{}, err
	}
	size := int64(buf.Len())
	return Artifact{Path: path, Size: size, Warning: CheckSize(size, budget)}, nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}
