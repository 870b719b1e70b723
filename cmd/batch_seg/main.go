package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/dictionary"
	"github.com/teatak/freqseg/logger"
	"github.com/teatak/freqseg/segmenter"
)

func main() {
	inputPath := flag.String("input", "data/text.txt", "Input file path")
	outputPath := flag.String("output", "data/corpus.txt", "Output corpus file path")
	dictPath := flag.String("dict", "data/dictionary.txt", "Dictionary path")
	flag.Parse()

	log := logger.Must(config.LoggingConfig{Level: "info", Format: "console", OutputPaths: []string{"stderr"}})
	defer log.Sync()

	ctx := context.Background()
	seg := segmenter.New(dictionary.NewFileSource(*dictPath), segmenter.WithLogger(log))
	if err := seg.Initialize(ctx); err != nil {
		log.Fatal("loading dictionary", zap.String("path", *dictPath), zap.Error(err))
	}

	inFile, err := os.Open(*inputPath)
	if err != nil {
		log.Fatal("opening input file", zap.Error(err))
	}
	defer inFile.Close()

	outFile, err := os.Create(*outputPath)
	if err != nil {
		log.Fatal("creating output file", zap.Error(err))
	}
	defer outFile.Close()

	count, err := segmentLines(ctx, seg, inFile, outFile, func(n int) {
		log.Info("progress", zap.Int("lines", n))
	})
	if err != nil {
		log.Fatal("segmenting corpus", zap.Int("lines", count), zap.Error(err))
	}
	log.Info("done", zap.Int("lines", count), zap.String("output", *outputPath))
}

// segmentLines writes one line of space separated tokens per non-blank
// input line and returns the number of lines written.
func segmentLines(ctx context.Context, seg *segmenter.Segmenter, r io.Reader, w io.Writer, progress func(int)) (int, error) {
	writer := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts, err := seg.Cut(ctx, line)
		if err != nil {
			return count, err
		}
		if _, err := fmt.Fprintln(writer, strings.Join(parts, " ")); err != nil {
			return count, err
		}
		count++
		if progress != nil && count%1000 == 0 {
			progress(count)
		}
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	return count, writer.Flush()
}
