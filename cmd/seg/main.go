package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/internal/bootstrap"
	"github.com/teatak/freqseg/logger"
	"github.com/teatak/freqseg/segmenter"
)

func main() {
	function := flag.String("func", "cut", "Segmentation function: cut (standard) or search (for search engine)")
	dictPath := flag.String("dict", "", "Path to dictionary file (overrides config)")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	mode, err := segmenter.ParseMode(*function)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dictPath != "" {
		cfg.Dictionary.Source = config.SourceFile
		cfg.Dictionary.Path = *dictPath
	}
	// Tokens go to stdout, so logs stay on stderr.
	cfg.Logging.OutputPaths = []string{"stderr"}
	log := logger.Must(cfg.Logging)
	defer log.Sync()

	ctx := context.Background()
	seg, closeSource, err := bootstrap.NewSegmenter(ctx, cfg, log)
	if err != nil {
		log.Fatal("creating segmenter", zap.Error(err))
	}
	defer closeSource()

	process := func(text string) {
		result, err := seg.Segment(ctx, text, mode)
		if err != nil {
			log.Fatal("segmentation failed", zap.Error(err))
		}
		fmt.Println(strings.Join(result, " / "))
	}

	if args := flag.Args(); len(args) > 0 {
		process(strings.Join(args, " "))
		return
	}

	fmt.Fprintln(os.Stderr, "Enter text to segment (Ctrl+D to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		process(text)
	}
	if err := scanner.Err(); err != nil {
		log.Error("reading stdin", zap.Error(err))
	}
}
