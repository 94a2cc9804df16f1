package climate

import "github.com/neurlang/climapredict/datasets"

// Source selects where samples come from. Exactly one of Path or Synthetic must be set;
// synthetic data is never substituted for a missing file.
type Source struct {
	Path string

	// Synthetic, when positive, requests that many generated samples instead of a file.
	Synthetic int

	// SyntheticSeed seeds the generator.
	SyntheticSeed int64
}

// Load reads or generates the samples named by src.
func (src Source) Load() ([]Sample, error) {
	switch {
	case src.Path != "" && src.Synthetic > 0:
		return nil, &DataFormatError{Err: errAmbiguousSource}
	case src.Path != "":
		return LoadCSV(src.Path)
	case src.Synthetic > 0:
		return Synthetic(src.Synthetic, src.SyntheticSeed), nil
	}
	return nil, &DataFormatError{Err: ErrNoSource}
}

// Prepared is a dataset split into model-ready partitions.
type Prepared struct {
	Train      Split
	Validation Split
	Scaler     Scaler

	// ForecastMean is the per-variable mean of the training targets.
	ForecastMean [Variables]float64

	train, validation []Sample
}

// Prepare loads src and splits it.
func Prepare(src Source, seed uint32) (*Prepared, error) {
	samples, err := src.Load()
	if err != nil {
		return nil, err
	}
	return PrepareSamples(samples, seed)
}

// PrepareSamples splits samples 80/20 with the seeded split, fits the scaler on
// the training partition and stacks both partitions.
func PrepareSamples(samples []Sample, seed uint32) (*Prepared, error) {
	if len(samples) < 2 {
		return nil, &DataFormatError{Err: ErrTooFewSamples}
	}
	trainIdx, valIdx := datasets.Split(len(samples), seed, datasets.ValidationRatio)
	if len(trainIdx) == 0 || len(valIdx) == 0 {
		return nil, &DataFormatError{Err: ErrTooFewSamples}
	}
	train := pick(samples, trainIdx)
	validation := pick(samples, valIdx)

	p := &Prepared{
		ForecastMean: ForecastMean(train),
		train:        train,
		validation:   validation,
	}
	if err := p.WithScaler(FitScaler(train)); err != nil {
		return nil, err
	}
	return p, nil
}

// WithScaler restacks both partitions with s, used when resuming a run whose
// checkpoint carries its own scaler.
func (p *Prepared) WithScaler(s Scaler) error {
	if err := s.Validate(); err != nil {
		return err
	}
	train, err := Stack(p.train, s)
	if err != nil {
		return err
	}
	validation, err := Stack(p.validation, s)
	if err != nil {
		return err
	}
	p.Train, p.Validation, p.Scaler = train, validation, s
	return nil
}

func pick(samples []Sample, idx []int) []Sample {
	o := make([]Sample, len(idx))
	for i, j := range idx {
		o[i] = samples[j]
	}
	return o
}
