package segmenter

import (
	"github.com/teatak/freqseg/dictionary"
)

// DAG holds, for every start index, the inclusive end indices of the
// dictionary words starting there, in ascending order. An index with no word
// maps to itself.
type DAG [][]int

// BuildDAG builds the segmentation graph of runes against ft. Extension from
// a start index stops at the first substring that is neither a word nor a
// prefix of one.
func BuildDAG(runes []rune, ft *dictionary.FrequencyTable) DAG {
	n := len(runes)
	dag := make(DAG, n)
	for k := 0; k < n; k++ {
		var ends []int
		for i := k; i < n; i++ {
			freq, ok := ft.Frequency(string(runes[k : i+1]))
			if !ok {
				break
			}
			if freq > 0 {
				ends = append(ends, i)
			}
		}
		if len(ends) == 0 {
			ends = []int{k}
		}
		dag[k] = ends
	}
	return dag
}
