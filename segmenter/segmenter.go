package segmenter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/teatak/freqseg/dictionary"
)

// Mode defines the segmentation mode.
type Mode int

const (
	ModeCut    Mode = iota // ModeCut returns the maximum probability segmentation.
	ModeSearch             // ModeSearch adds dictionary sub-words of long tokens, for search engine indexing.
)

func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	default:
		return "cut"
	}
}

// ParseMode maps "cut" (or "") and "search" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "cut":
		return ModeCut, nil
	case "search":
		return ModeSearch, nil
	}
	return ModeCut, fmt.Errorf("unknown segmentation mode %q", s)
}

var errNoSource = errors.New("segmenter has no dictionary source")

// Observer receives engine events. metrics.Metrics implements it.
type Observer interface {
	DictionaryLoaded(elapsed time.Duration, ft *dictionary.FrequencyTable, err error)
	Segmented(mode string, elapsed time.Duration, tokens int)
}

type nopObserver struct{}

func (nopObserver) DictionaryLoaded(time.Duration, *dictionary.FrequencyTable, error) {}
func (nopObserver) Segmented(string, time.Duration, int)                             {}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger sets the logger used for dictionary loading.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Segmenter) {
		s.logger = logger
	}
}

// WithObserver sets the Observer notified of loads and segmentations.
func WithObserver(o Observer) Option {
	return func(s *Segmenter) {
		s.observer = o
	}
}

// Segmenter handles the text segmentation. The frequency table is loaded from
// the source on first use; concurrent first callers share a single load and a
// failed load is retried by the next call. A Segmenter is safe for concurrent
// use.
type Segmenter struct {
	src      dictionary.Source
	table    atomic.Pointer[dictionary.FrequencyTable]
	group    singleflight.Group
	logger   *zap.Logger
	observer Observer
}

// New creates a segmenter that loads its dictionary from src when first used.
func New(src dictionary.Source, opts ...Option) *Segmenter {
	s := &Segmenter{
		src:      src,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromTable creates an initialized segmenter over ft.
func NewFromTable(ft *dictionary.FrequencyTable, opts ...Option) *Segmenter {
	s := New(nil, opts...)
	s.table.Store(ft)
	return s
}

// Initialize loads the dictionary if it is not loaded yet. It is idempotent.
func (s *Segmenter) Initialize(ctx context.Context) error {
	_, err := s.ensure(ctx)
	return err
}

// Initialized reports whether the dictionary is loaded.
func (s *Segmenter) Initialized() bool {
	return s.table.Load() != nil
}

// Table returns the loaded frequency table, or nil before initialization.
func (s *Segmenter) Table() *dictionary.FrequencyTable {
	return s.table.Load()
}

func (s *Segmenter) ensure(ctx context.Context) (*dictionary.FrequencyTable, error) {
	if ft := s.table.Load(); ft != nil {
		return ft, nil
	}
	if s.src == nil {
		return nil, errNoSource
	}
	// The shared load is detached from the caller that starts it; each
	// caller only stops waiting when its own ctx is done.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.src.Name(), func() (interface{}, error) {
		if ft := s.table.Load(); ft != nil {
			return ft, nil
		}
		ft, err := s.load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.table.Store(ft)
		return ft, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("initializing segmenter: %w", res.Err)
		}
		return res.Val.(*dictionary.FrequencyTable), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("initializing segmenter: %w", ctx.Err())
	}
}

func (s *Segmenter) load(ctx context.Context) (*dictionary.FrequencyTable, error) {
	name := s.src.Name()
	s.logger.Info("loading dictionary", zap.String("source", name))
	start := time.Now()
	ft, err := dictionary.Build(ctx, s.src)
	elapsed := time.Since(start)
	s.observer.DictionaryLoaded(elapsed, ft, err)
	if err != nil {
		s.logger.Error("dictionary load failed", zap.String("source", name), zap.Error(err))
		return nil, err
	}
	s.logger.Info("dictionary loaded",
		zap.String("source", name),
		zap.Int("words", ft.Words()),
		zap.Int("entries", ft.Len()),
		zap.Int("total", ft.Total()),
		zap.Int("max_len", ft.MaxLen()),
		zap.Duration("elapsed", elapsed),
	)
	return ft, nil
}

// Tokens segments text and returns its tokens in order. Runs of single ASCII
// letters and digits are merged into one token. The returned sequence is
// computed lazily from the solved route.
func (s *Segmenter) Tokens(ctx context.Context, text string) (iter.Seq[string], error) {
	ft, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	runes := []rune(text)
	route := SolveRoute(runes, BuildDAG(runes, ft), ft)

	return func(yield func(string) bool) {
		var buf []rune
		for x := 0; x < len(runes); {
			y := route[x].End + 1
			word := runes[x:y]
			x = y
			if len(word) == 1 && isAlphaNum(word[0]) {
				buf = append(buf, word[0])
				continue
			}
			if len(buf) > 0 {
				if !yield(string(buf)) {
					return
				}
				buf = buf[:0]
			}
			if !yield(string(word)) {
				return
			}
		}
		if len(buf) > 0 {
			yield(string(buf))
		}
	}, nil
}

// Cut segments the text into a slice of strings.
func (s *Segmenter) Cut(ctx context.Context, text string) ([]string, error) {
	seq, err := s.Tokens(ctx, text)
	if err != nil {
		return nil, err
	}
	result := []string{}
	for word := range seq {
		result = append(result, word)
	}
	return result, nil
}

// CutSearch segments the text into a slice of strings, including fine-grained sub-words.
// Typical usage: for search engine indexing.
func (s *Segmenter) CutSearch(ctx context.Context, text string) ([]string, error) {
	words, err := s.Cut(ctx, text)
	if err != nil {
		return nil, err
	}
	ft := s.table.Load()
	result := []string{}
	for _, word := range words {
		result = appendSubWords(result, ft, word)
		result = append(result, word)
	}
	return result, nil
}

func appendSubWords(result []string, ft *dictionary.FrequencyTable, word string) []string {
	runes := []rune(word)
	// 英文或数字单词不进行子词切分 (如 PKU 不要切出 P/K/U)
	if len(runes) <= 2 || isPureAlphaNum(runes) {
		return result
	}
	for i := 0; i < len(runes); i++ {
		for j := i + 1; j <= len(runes); j++ {
			if j-i == len(runes) {
				continue
			}
			if sub := string(runes[i:j]); ft.Contains(sub) {
				result = append(result, sub)
			}
		}
	}
	return result
}

// Segment dispatches on mode and reports the call to the Observer.
func (s *Segmenter) Segment(ctx context.Context, text string, mode Mode) ([]string, error) {
	start := time.Now()
	var (
		tokens []string
		err    error
	)
	switch mode {
	case ModeSearch:
		tokens, err = s.CutSearch(ctx, text)
	default:
		tokens, err = s.Cut(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	s.observer.Segmented(mode.String(), time.Since(start), len(tokens))
	return tokens, nil
}
