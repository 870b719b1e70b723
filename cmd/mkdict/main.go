package main

import (
	"bufio"
	"cmp"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/logger"
	"github.com/teatak/freqseg/util"
)

func main() {
	inputPath := flag.String("input", "", "Path to the segmented corpus file (space separated)")
	outputPath := flag.String("output", "dictionary.txt", "Path to save the generated dictionary")
	flag.Parse()

	log := logger.Must(config.LoggingConfig{Level: "info", Format: "console", OutputPaths: []string{"stderr"}})
	defer log.Sync()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Please provide an input file using -input flag")
		os.Exit(2)
	}

	file, err := os.Open(*inputPath)
	if err != nil {
		log.Fatal("opening input file", zap.Error(err))
	}
	defer file.Close()

	counts, err := countWords(file)
	if err != nil {
		log.Fatal("reading corpus", zap.String("path", *inputPath), zap.Error(err))
	}
	log.Info("counted corpus", zap.Int("unique_words", len(counts)))

	outFile, err := os.Create(*outputPath)
	if err != nil {
		log.Fatal("creating output file", zap.Error(err))
	}
	defer outFile.Close()

	if err := writeDictionary(outFile, counts); err != nil {
		log.Fatal("writing dictionary", zap.Error(err))
	}
	log.Info("dictionary saved", zap.String("path", *outputPath))
}

// countWords counts whitespace separated tokens, ignoring tokens made only
// of punctuation.
func countWords(r io.Reader) (map[string]int, error) {
	counts := make(map[string]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, word := range strings.Fields(scanner.Text()) {
			if util.IsPunctuation(word) {
				continue
			}
			counts[word]++
		}
	}
	return counts, scanner.Err()
}

type entry struct {
	word  string
	count int
}

// writeDictionary writes "word count" lines, most frequent first.
func writeDictionary(w io.Writer, counts map[string]int) error {
	entries := make([]entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, entry{k, v})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.word, b.word)
	})

	writer := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(writer, "%s %d\n", e.word, e.count); err != nil {
			return err
		}
	}
	return writer.Flush()
}
