package segmenter

import (
	"math"

	"github.com/teatak/freqseg/dictionary"
)

// RouteNode is the best log probability from a position to the end of the
// text and the end index of the first word on that path.
type RouteNode struct {
	LogProb float64
	End     int
}

// Route has one node per position plus a terminal node at len(runes).
type Route []RouteNode

// SolveRoute finds the maximum probability path through dag, right to left.
// Unregistered or zero-frequency words score as frequency 1. On equal scores
// the longer word wins.
func SolveRoute(runes []rune, dag DAG, ft *dictionary.FrequencyTable) Route {
	n := len(runes)
	route := make(Route, n+1)
	route[n] = RouteNode{LogProb: 0, End: 0}
	logTotal := math.Log(float64(max(ft.Total(), 1)))

	for idx := n - 1; idx >= 0; idx-- {
		best := RouteNode{LogProb: math.Inf(-1), End: idx}
		for _, x := range dag[idx] {
			freq, _ := ft.Frequency(string(runes[idx : x+1]))
			if freq <= 0 {
				freq = 1
			}
			prob := math.Log(float64(freq)) - logTotal + route[x+1].LogProb
			if prob > best.LogProb || (prob == best.LogProb && x > best.End) {
				best = RouteNode{LogProb: prob, End: x}
			}
		}
		route[idx] = best
	}
	return route
}
