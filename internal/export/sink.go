package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/segmentio/kafka-go"
	"gocloud.dev/blob"

	"github.com/getsentry/calltracer/internal/storageutil"
)

// ErrUnsupportedSink is returned by OpenSink for an unknown URL scheme.
var ErrUnsupportedSink = errors.New("export: unsupported sink")

type (
	// Sink receives exported documents.
	Sink interface {
		Write(ctx context.Context, doc Document) error
		Close() error
	}

	// WriterSink encodes documents to an io.Writer it does not own.
	WriterSink struct {
		W io.Writer
	}

	// FileSink writes each document to Path, replacing what was there.
	FileSink struct {
		Path string
	}

	// BlobSink stores lz4 compressed documents under Prefix, one object per
	// session.
	BlobSink struct {
		Bucket *blob.Bucket
		Prefix string
		owned  bool
	}

	MessageWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	// KafkaSink publishes one message per document keyed by session id.
	KafkaSink struct {
		Writer MessageWriter
		Topic  string
	}

	// HTTPSink posts brotli compressed documents, typically to a collector.
	HTTPSink struct {
		URL    string
		Client heimdall.Doer
	}
)

func (s WriterSink) Write(_ context.Context, doc Document) error {
	return Encode(s.W, doc)
}

func (s WriterSink) Close() error {
	return nil
}

func (s FileSink) Write(_ context.Context, doc Document) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("export: can't create %s: %w", s.Path, err)
	}
	if err := Encode(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s FileSink) Close() error {
	return nil
}

// ReadFile decodes a document written by a FileSink.
func ReadFile(name string) (Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Decode(f)
}

// StoragePath is the object name of a session's document.
func StoragePath(prefix, sessionID string) string {
	return path.Join(prefix, sessionID+".json.lz4")
}

func (s BlobSink) Write(ctx context.Context, doc Document) error {
	return storageutil.CompressedWrite(ctx, s.Bucket, StoragePath(s.Prefix, doc.SessionID), doc)
}

// Close closes the bucket only when the sink opened it.
func (s BlobSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.Bucket.Close()
}

// ReadBlob reads a document stored by a BlobSink.
func ReadBlob(ctx context.Context, b *blob.Bucket, prefix, sessionID string) (Document, error) {
	var doc Document
	err := storageutil.UnmarshalCompressed(ctx, b, StoragePath(prefix, sessionID), &doc)
	return doc, err
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     kafka.CRC32Balancer{},
		BatchSize:    1,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (s KafkaSink) Write(ctx context.Context, doc Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	return s.Writer.WriteMessages(ctx, kafka.Message{
		Topic: s.Topic,
		Key:   []byte(doc.SessionID),
		Value: buf.Bytes(),
	})
}

func (s KafkaSink) Close() error {
	return s.Writer.Close()
}

func NewHTTPClient() *httpclient.Client {
	backoff := heimdall.NewConstantBackoff(100*time.Millisecond, 50*time.Millisecond)
	return httpclient.NewClient(
		httpclient.WithHTTPTimeout(10*time.Second),
		httpclient.WithRetryCount(3),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)
}

func (s HTTPSink) Write(ctx context.Context, doc Document) error {
	var body bytes.Buffer
	bw := brotli.NewWriter(&body)
	if err := Encode(bw, doc); err != nil {
		return err
	}
	if err := bw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "br")

	client := s.Client
	if client == nil {
		client = NewHTTPClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("export: can't post document: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("export: %s answered %s", s.URL, resp.Status)
	}
	return nil
}

func (s HTTPSink) Close() error {
	return nil
}

// OpenSink picks a sink from a destination:
//
//	-                             standard output
//	path or file:///path          a JSON file
//	mem://, gs://bucket/prefix    a blob bucket
//	kafka://broker1,broker2/topic a Kafka topic
//	http://host/traces            a collector
func OpenSink(ctx context.Context, destination string) (Sink, error) {
	if destination == "-" {
		return WriterSink{W: os.Stdout}, nil
	}
	u, err := url.Parse(destination)
	if err != nil {
		return nil, fmt.Errorf("export: invalid destination %q: %w", destination, err)
	}
	switch u.Scheme {
	case "":
		return FileSink{Path: destination}, nil
	case "file":
		return FileSink{Path: u.Host + u.Path}, nil
	case "mem", "gs":
		bucketURL := u.Scheme + "://" + u.Host
		if u.RawQuery != "" {
			bucketURL += "?" + u.RawQuery
		}
		b, err := storageutil.OpenBucket(ctx, bucketURL)
		if err != nil {
			return nil, err
		}
		return BlobSink{Bucket: b, Prefix: strings.TrimPrefix(u.Path, "/"), owned: true}, nil
	case "kafka":
		topic := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || topic == "" {
			return nil, fmt.Errorf("%w: expected kafka://brokers/topic, got %q", ErrUnsupportedSink, destination)
		}
		return KafkaSink{Writer: NewKafkaWriter(strings.Split(u.Host, ",")...), Topic: topic}, nil
	case "http", "https":
		return HTTPSink{URL: destination, Client: NewHTTPClient()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSink, u.Scheme)
}
