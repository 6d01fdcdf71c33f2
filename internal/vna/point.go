package vna

import (
	"encoding/json"
	"fmt"
)

// ComplexValue is the wire shape of one complex measurement value.
type ComplexValue struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// Complex returns the value as a complex128.
func (v ComplexValue) Complex() complex128 {
	return complex(v.Real, v.Imag)
}

// StreamPoint is one decoded push-telemetry record: the 0-based index of the
// point within its sweep, the reference impedance, and the measured complex
// values keyed by S-parameter name. Points are ephemeral; the reassembly
// logic consumes and discards them.
type StreamPoint struct {
	Index              int                     `json:"pointIndex"`
	ReferenceImpedance float64                 `json:"referenceImpedance"`
	Measurements       map[string]ComplexValue `json:"measurements"`
}

// S11 returns the reflection measurement at port 1, if present.
func (p *StreamPoint) S11() (complex128, bool) {
	v, ok := p.Measurements["S11"]
	return v.Complex(), ok
}

func parsePoint(line string) (StreamPoint, error) {
	var p StreamPoint
	if err := json.Unmarshal([]byte(line), &p); err != nil {
		return StreamPoint{}, fmt.Errorf("decoding point record: %w", err)
	}
	if p.Index < 0 {
		return StreamPoint{}, fmt.Errorf("negative point index: %d", p.Index)
	}
	return p, nil
}
