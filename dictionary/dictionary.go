// Package dictionary builds the word frequency table used by the segmenter.
//
// Every loaded word is stored with its frequency and every proper prefix of it
// is stored with a frequency of 0 unless already present, so that a single map
// lookup answers both "is this a word" and "can a word still start here".
package dictionary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// FrequencyTable holds word frequencies, prefix placeholders and the total of
// all loaded frequencies. A table is read-only once Build returns it.
type FrequencyTable struct {
	freq   map[string]int
	total  int
	words  int
	maxLen int
}

func newFrequencyTable() *FrequencyTable {
	return &FrequencyTable{
		freq: make(map[string]int),
	}
}

// Build reads every line of src and returns the resulting table.
// Format: word frequency [ignored...] (whitespace separated)
func Build(ctx context.Context, src Source) (_ *FrequencyTable, err error) {
	r, err := src.Open(ctx)
	if err != nil {
		return nil, &ResourceError{Source: src.Name(), Op: "open", Err: err}
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = &ResourceError{Source: src.Name(), Op: "close", Err: cerr}
		}
	}()

	ft := newFrequencyTable()
	seen := make(map[string]struct{})
	lineno := 0
	for r.Scan() {
		lineno++
		if err := ctx.Err(); err != nil {
			return nil, &ResourceError{Source: src.Name(), Op: "read", Err: err}
		}
		line := strings.TrimSpace(r.Text())
		if line == "" {
			continue
		}
		word, freq, perr := parseLine(line)
		if perr != nil {
			return nil, &FormatError{Source: src.Name(), Line: lineno, Text: line, Err: perr}
		}
		if _, ok := seen[word]; !ok {
			seen[word] = struct{}{}
			ft.words++
		}
		ft.add(word, freq)
	}
	if err := r.Err(); err != nil {
		return nil, &ResourceError{Source: src.Name(), Op: "read", Err: err}
	}
	return ft, nil
}

func parseLine(line string) (string, int, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", 0, errMissingFrequency
	}
	freq, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, err
	}
	if freq < 0 {
		return "", 0, fmt.Errorf("negative frequency %d", freq)
	}
	return parts[0], freq, nil
}

// add registers word with freq, overwriting an earlier value, and registers
// its proper prefixes with 0 where absent. Total accumulates every call, so a
// repeated word contributes each of its frequencies.
func (ft *FrequencyTable) add(word string, freq int) {
	ft.freq[word] = freq
	ft.total += freq

	n := 0
	for i := range word {
		if i > 0 {
			if _, ok := ft.freq[word[:i]]; !ok {
				ft.freq[word[:i]] = 0
			}
		}
		n++
	}
	if n > ft.maxLen {
		ft.maxLen = n
	}
}

// Frequency returns the frequency of a word or prefix and whether it is
// registered at all. Prefix placeholders report 0 and true.
func (ft *FrequencyTable) Frequency(word string) (int, bool) {
	val, ok := ft.freq[word]
	return val, ok
}

// Contains reports whether word was loaded with a positive frequency.
func (ft *FrequencyTable) Contains(word string) bool {
	return ft.freq[word] > 0
}

// Total returns the sum of all loaded frequencies.
func (ft *FrequencyTable) Total() int {
	return ft.total
}

// Len returns the number of keys, prefixes included.
func (ft *FrequencyTable) Len() int {
	return len(ft.freq)
}

// Words returns the number of distinct words read from the source.
func (ft *FrequencyTable) Words() int {
	return ft.words
}

// MaxLen returns the length in runes of the longest loaded word.
func (ft *FrequencyTable) MaxLen() int {
	return ft.maxLen
}
