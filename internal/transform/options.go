// Package transform maps legacy rows onto application records.
//
// Every function here is pure: it takes a snapshot of legacy data plus the
// values looked up on its behalf and returns the record to write, or reports
// that nothing should be mirrored. Reading and writing happen in the engine.
package transform

import "errors"

// Defaults for Options.
const (
	DefaultStandardClassificationID = 1
	DefaultTemplateSource           = "LCO"
	DefaultSpectrumSuffix           = ".ascii"
)

// ErrMalformed marks a legacy row or sidecar that cannot be mapped.
var ErrMalformed = errors.New("malformed legacy data")

// Options holds the tunable vocabulary of the mapping.
type Options struct {
	// StandardClassificationID is the classification of standard stars, whose
	// data points are never mirrored.
	StandardClassificationID int64
	// DefaultTemplateSource is the template provider recorded for difference
	// imaging when the filename does not name one.
	DefaultTemplateSource string
	// SpectrumSuffix replaces ".fits" to form the sidecar file name.
	SpectrumSuffix string
}

// DefaultOptions returns the production vocabulary.
func DefaultOptions() Options {
	return Options{
		StandardClassificationID: DefaultStandardClassificationID,
		DefaultTemplateSource:    DefaultTemplateSource,
		SpectrumSuffix:           DefaultSpectrumSuffix,
	}
}

func (o Options) withDefaults() Options {
	if o.StandardClassificationID == 0 {
		o.StandardClassificationID = DefaultStandardClassificationID
	}
	if o.DefaultTemplateSource == "" {
		o.DefaultTemplateSource = DefaultTemplateSource
	}
	if o.SpectrumSuffix == "" {
		o.SpectrumSuffix = DefaultSpectrumSuffix
	}
	return o
}
