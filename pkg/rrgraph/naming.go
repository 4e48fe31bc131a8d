package rrgraph

import (
	"math"
	"strconv"
)

// Percent converts a rate in [0, 1] to the truncated integer percentage used
// in output names. The small tolerance keeps rates such as 0.57, whose binary
// representation sits just below the decimal value, from naming 56.
func Percent(rate float64) int {
	return int(math.Floor(rate*100 + 1e-9))
}

// OutputName returns the file name of a base-thinned graph:
// rr_graph_<circuit>_<edge_pct>.xml.
func OutputName(circuit string, edgeRate float64) string {
	return "rr_graph_" + circuit + "_" + strconv.Itoa(Percent(edgeRate)) + ".xml"
}

// MuxOutputName returns the file name of a graph thinned by the fan-in/fan-out
// variant: rr_graph_<circuit>_<edge_pct>_mux_<mux_pct>.xml.
func MuxOutputName(circuit string, edgeRate, muxRate float64) string {
	return "rr_graph_" + circuit + "_" + strconv.Itoa(Percent(edgeRate)) +
		"_mux_" + strconv.Itoa(Percent(muxRate)) + ".xml"
}
