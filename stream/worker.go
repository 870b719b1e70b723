// Package stream runs segmentation as a Kafka worker: requests are read from
// an input topic and the tokens are published to an output topic.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/segmenter"
)

var errMissingID = errors.New("decoding request: missing id")

// Request is the JSON value of an input message.
type Request struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

// Result is the JSON value of an output message, keyed by Request.ID.
type Result struct {
	ID     string   `json:"id"`
	Tokens []string `json:"tokens"`
}

// Segmenter is the part of segmenter.Segmenter the worker needs.
type Segmenter interface {
	Segment(ctx context.Context, text string, mode segmenter.Mode) ([]string, error)
}

// Publisher writes one message to the output topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Recorder receives per-message outcomes. metrics.Metrics implements it.
type Recorder interface {
	StreamMessage(result string)
}

type nopRecorder struct{}

func (nopRecorder) StreamMessage(string) {}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger for message handling.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithRecorder sets the Recorder of per-message outcomes.
func WithRecorder(r Recorder) Option {
	return func(w *Worker) {
		w.recorder = r
	}
}

// WithPublisher replaces the Kafka writer used for results.
func WithPublisher(p Publisher) Option {
	return func(w *Worker) {
		w.pub = p
	}
}

// Worker consumes segmentation requests and publishes results.
type Worker struct {
	reader   *kafka.Reader
	writer   *kafka.Writer
	seg      Segmenter
	pub      Publisher
	logger   *zap.Logger
	recorder Recorder
}

// NewWorker creates a Worker reading cfg.InputTopic as cfg.ConsumerGroup and
// writing to cfg.OutputTopic.
func NewWorker(cfg config.KafkaConfig, seg Segmenter, opts ...Option) *Worker {
	w := newWorker(seg, opts...)
	w.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.InputTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	if w.pub == nil {
		w.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.OutputTopic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		}
		w.pub = writerPublisher{w.writer}
	}
	w.logger = w.logger.With(zap.String("input_topic", cfg.InputTopic), zap.String("output_topic", cfg.OutputTopic))
	return w
}

func newWorker(seg Segmenter, opts ...Option) *Worker {
	w := &Worker{
		seg:      seg,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "segment-worker"))
	return w
}

// Run fetches, handles and commits messages until ctx is cancelled. A message
// whose handling fails is logged and not committed itself, but committing a
// later message of the same partition moves the group offset past it, so it
// is not redelivered. Publishing is already retried by the kafka.Writer.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopping", zap.Error(ctx.Err()))
				return nil
			}
			w.logger.Error("failed to fetch message", zap.Error(err))
			continue
		}
		if err := w.Handle(ctx, msg); err != nil {
			w.logger.Error("failed to process message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			w.logger.Error("failed to commit message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Handle segments one message and publishes the result. Undecodable
// requests are logged and dropped so they do not block the partition.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	req, err := decodeRequest(msg.Value)
	if err != nil {
		w.recorder.StreamMessage("invalid")
		w.logger.Warn("dropping invalid request",
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
			zap.Error(err),
		)
		return nil
	}
	mode, err := segmenter.ParseMode(req.Mode)
	if err != nil {
		w.recorder.StreamMessage("invalid")
		w.logger.Warn("dropping invalid request", zap.String("id", req.ID), zap.Error(err))
		return nil
	}

	tokens, err := w.seg.Segment(ctx, req.Text, mode)
	if err != nil {
		w.recorder.StreamMessage("error")
		return fmt.Errorf("segmenting request %s: %w", req.ID, err)
	}
	value, err := json.Marshal(Result{ID: req.ID, Tokens: tokens})
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := w.pub.Publish(ctx, []byte(req.ID), value); err != nil {
		w.recorder.StreamMessage("error")
		return err
	}
	w.recorder.StreamMessage("ok")
	w.logger.Debug("request segmented", zap.String("id", req.ID), zap.Int("tokens", len(tokens)))
	return nil
}

// Close closes the Kafka reader and writer.
func (w *Worker) Close() error {
	var firstErr error
	if w.reader != nil {
		firstErr = w.reader.Close()
	}
	if w.writer != nil {
		if err := w.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func decodeRequest(value []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(value, &req); err != nil {
		return req, fmt.Errorf("decoding request: %w", err)
	}
	if req.ID == "" {
		return req, errMissingID
	}
	return req, nil
}

type writerPublisher struct {
	w *kafka.Writer
}

func (p writerPublisher) Publish(ctx context.Context, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	return nil
}
