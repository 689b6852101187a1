package domain

import (
	"math"
	"strconv"
)

// MetricType enumerates the Prometheus metric types a descriptor may carry.
type MetricType string

const (
	// Gauge represents a floating-point value that can move up or down.
	Gauge MetricType = "gauge"
	// Counter represents a monotonically increasing value.
	Counter MetricType = "counter"
	// Untyped is used for values whose semantics are unknown to the exporter.
	Untyped MetricType = "untyped"
)

const (
	// DefaultValue is what a key reports when nothing is stored for it.
	DefaultValue = "NaN"
	// DefaultPrefix is the global key prefix used by cache backends.
	DefaultPrefix = "PHPProm:"
)

// Descriptor describes a metric known to the registry.
type Descriptor struct {
	Metric       string `json:"metric"`
	Label        string `json:"label"`
	Help         string `json:"help"`
	Type         string `json:"type"`
	DefaultValue string `json:"defaultValue"`
}

// Sample is one measurement read back from a store. Found is false when
// the key had no stored value and Default is reported instead.
type Sample struct {
	Default string
	Value   float64
	Found   bool
}

// Measured returns a sample holding a stored value.
func Measured(v float64) Sample {
	return Sample{Value: v, Found: true}
}

// Missing returns a sample that reports def.
func Missing(def string) Sample {
	return Sample{Default: def}
}

// String renders the stored value, or the literal default when absent.
func (s Sample) String() string {
	if s.Found {
		return strconv.FormatFloat(s.Value, 'f', -1, 64)
	}
	return s.Default
}

// Float returns the stored value, or the default parsed as a float.
// Defaults that do not parse yield NaN.
func (s Sample) Float() float64 {
	if s.Found {
		return s.Value
	}
	v, err := strconv.ParseFloat(s.Default, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// MarshalJSON encodes the sample as a JSON number when stored and as the
// default string otherwise.
func (s Sample) MarshalJSON() ([]byte, error) {
	if s.Found && !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) {
		return []byte(strconv.FormatFloat(s.Value, 'f', -1, 64)), nil
	}
	return []byte(strconv.Quote(s.String())), nil
}
