package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/analyzere/analyzere-go/config"
	debugctx "github.com/analyzere/analyzere-go/debugctx"
	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/internal/metrics"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

const (
	headerEntityLength = "Entity-Length"
	headerOffset       = "Offset"
	chunkContentType   = "application/offset+octet-stream"
)

// ProgressFunc receives a completion percentage, 10.0 meaning 10%.
type ProgressFunc func(percent float64)

// Session drives one resumable upload to a resource's data sub-path:
// Init, then SendChunk until the source is drained, then Commit and Poll.
// Run performs all of them. A Session is not safe for concurrent use.
type Session struct {
	requester    server.Requester
	materializer resource.Materializer
	metrics      *metrics.Recorder

	dataPath       string
	chunkSize      int64
	pollInterval   time.Duration
	uploadCallback ProgressFunc
	commitCallback ProgressFunc

	source      io.Reader
	length      int64
	lengthKnown bool
	offset      int64
	drained     bool
	state       State
}

type Option func(*Session) error

func WithChunkSize(size int64) Option {
	return func(s *Session) error {
		if size <= 0 {
			return validationError(fmt.Sprintf("chunk size must be positive, got %d", size))
		}
		if size > config.MaxChunkSize {
			return validationError(fmt.Sprintf("chunk size must be at most %d, got %d", int64(config.MaxChunkSize), size))
		}
		s.chunkSize = size
		return nil
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(s *Session) error {
		if interval < 0 {
			return validationError(fmt.Sprintf("poll interval must not be negative, got %s", interval))
		}
		s.pollInterval = interval
		return nil
	}
}

func WithUploadCallback(callback ProgressFunc) Option {
	return func(s *Session) error {
		if callback == nil {
			return validationError("provided upload callback is not callable")
		}
		s.uploadCallback = callback
		return nil
	}
}

func WithCommitCallback(callback ProgressFunc) Option {
	return func(s *Session) error {
		if callback == nil {
			return validationError("provided commit callback is not callable")
		}
		s.commitCallback = callback
		return nil
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Session) error {
		s.metrics = recorder
		return nil
	}
}

// NewSession prepares an upload of source to resourcePath + "/data". Options
// are validated here, before any request is made.
func NewSession(
	requester server.Requester,
	materializer resource.Materializer,
	resourcePath string,
	source io.Reader,
	opts ...Option,
) (*Session, error) {
	if requester == nil {
		return nil, validationError("upload requires a requester")
	}
	resourcePath = strings.TrimSuffix(strings.TrimSpace(resourcePath), "/")
	if resourcePath == "" {
		return nil, validationError("upload requires a resource path")
	}
	if source == nil {
		return nil, validationError("upload requires a source")
	}

	session := &Session{
		requester:      requester,
		materializer:   materializer,
		dataPath:       resourcePath + "/data",
		chunkSize:      config.DefaultChunkSize,
		pollInterval:   config.DefaultPollInterval,
		uploadCallback: func(float64) {},
		commitCallback: func(float64) {},
		source:         source,
		state:          Uninitiated,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *Session) State() State     { return s.state }
func (s *Session) Offset() int64    { return s.offset }
func (s *Session) DataPath() string { return s.dataPath }

// Length returns the total byte count and whether it is known.
func (s *Session) Length() (int64, bool) {
	return s.length, s.lengthKnown
}

// Run performs the whole upload and returns the terminal status.
func (s *Session) Run(ctx context.Context) (*Status, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	for {
		done, err := s.SendChunk(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	if err := s.Commit(ctx); err != nil {
		return nil, err
	}
	return s.Poll(ctx)
}

// Init opens the upload. Seekable sources declare their remaining length;
// other sources, including seekers that cannot report a position such as
// pipes, are streamed without one.
func (s *Session) Init(ctx context.Context) error {
	if s.state != Uninitiated {
		return s.outOfOrder("init")
	}

	headers := map[string]string{}
	if seeker, ok := s.source.(io.Seeker); ok {
		length, known, err := remainingLength(seeker)
		if err != nil {
			return faults.NewTypedError(faults.ValidationError, "failed to measure upload source", err)
		}
		if known {
			s.length = length
			s.lengthKnown = true
			headers[headerEntityLength] = strconv.FormatInt(length, 10)
		}
	}

	debugctx.Printf(ctx, "upload init path=%q length_known=%t length=%d", s.dataPath, s.lengthKnown, s.length)
	if _, err := s.requester.Execute(ctx, server.RequestSpec{
		Method:  http.MethodPost,
		Path:    s.dataPath,
		Headers: headers,
	}); err != nil {
		return err
	}

	s.state = Initiated
	return nil
}

// SendChunk uploads the next chunk. It reports true once the source is
// drained, after which Commit may be called.
func (s *Session) SendChunk(ctx context.Context) (bool, error) {
	if s.state != Initiated && s.state != Uploading {
		return false, s.outOfOrder("send chunk")
	}
	if s.drained {
		return true, nil
	}

	chunk := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.source, chunk)
	switch {
	case errors.Is(err, io.EOF):
		s.finishChunks()
		return true, nil
	case err != nil && !errors.Is(err, io.ErrUnexpectedEOF):
		return false, faults.NewTypedError(faults.ValidationError, "failed to read upload source", err)
	}
	last := errors.Is(err, io.ErrUnexpectedEOF)

	start := s.offset
	if _, err := s.requester.Execute(ctx, server.RequestSpec{
		Method: http.MethodPatch,
		Path:   s.dataPath,
		Headers: map[string]string{
			headerOffset:   strconv.FormatInt(start, 10),
			"Content-Type": chunkContentType,
		},
		RawBody: chunk[:n],
	}); err != nil {
		return false, err
	}

	s.offset += int64(n)
	s.state = Uploading
	s.metrics.ObserveUploadChunk(n)
	debugctx.Printf(ctx, "upload chunk path=%q offset=%d size=%d", s.dataPath, start, n)

	if s.lengthKnown && s.length > 0 {
		s.uploadCallback(float64(start) * 100.0 / float64(s.length))
	}
	if last {
		s.finishChunks()
		return true, nil
	}
	return false, nil
}

func (s *Session) finishChunks() {
	if s.drained {
		return
	}
	s.drained = true
	s.state = Uploading
	if s.lengthKnown {
		s.uploadCallback(100.0)
	}
}

// Commit finalizes the upload so the server starts processing it.
func (s *Session) Commit(ctx context.Context) error {
	if s.state != Uploading || !s.drained {
		return s.outOfOrder("commit")
	}

	debugctx.Printf(ctx, "upload commit path=%q bytes=%d", s.dataPath, s.offset)
	if _, err := s.requester.Execute(ctx, server.RequestSpec{
		Method: http.MethodPost,
		Path:   s.dataPath + "/commit",
	}); err != nil {
		return err
	}

	s.state = Committed
	return nil
}

var errStillProcessing = errors.New("upload still processing")

// Poll checks the upload status every poll interval until processing ends,
// reporting commit progress along the way. A failed processing run is
// returned as a status, not an error.
func (s *Session) Poll(ctx context.Context) (*Status, error) {
	if s.state != Committed {
		return nil, s.outOfOrder("poll")
	}

	var final *Status
	operation := func() error {
		status, err := s.FetchStatus(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if status.Terminal() {
			final = status
			return nil
		}
		s.commitCallback(status.CommitProgress)
		return errStillProcessing
	}
	notify := func(_ error, wait time.Duration) {
		debugctx.Printf(ctx, "upload processing path=%q next_check=%s", s.dataPath, wait)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(s.pollInterval), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctx.Err() != nil && !faults.IsCategory(err, faults.TransportError) {
			return nil, faults.NewTypedError(faults.TransportError, "interrupted while waiting for upload processing", err)
		}
		return nil, err
	}

	s.state = final.State()
	s.commitCallback(100.0)
	return final, nil
}

// FetchStatus reads the current upload status once.
func (s *Session) FetchStatus(ctx context.Context) (*Status, error) {
	status, err := FetchStatus(ctx, s.requester, s.materializer, s.dataPath)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveUploadPoll()
	return status, nil
}

// FetchStatus reads the upload status of the data sub-resource at dataPath.
func FetchStatus(
	ctx context.Context,
	requester server.Requester,
	materializer resource.Materializer,
	dataPath string,
) (*Status, error) {
	value, err := requester.Request(ctx, server.RequestSpec{
		Method: http.MethodGet,
		Path:   strings.TrimSuffix(dataPath, "/") + "/status",
	})
	if err != nil {
		return nil, err
	}

	obj, err := materializer.Object(value, nil)
	if err != nil {
		return nil, err
	}
	return decodeStatus(obj)
}

func (s *Session) outOfOrder(step string) error {
	return validationError(fmt.Sprintf("upload %s is not allowed in state %s", step, s.state))
}

// remainingLength reports false when the source refuses to report its
// position. Failures after the position is known are errors since the read
// offset may have moved.
func remainingLength(seeker io.Seeker) (int64, bool, error) {
	current, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false, nil
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false, err
	}
	if _, err := seeker.Seek(current, io.SeekStart); err != nil {
		return 0, false, err
	}
	return end - current, true, nil
}

// FromString wraps an in-memory payload as a seekable source.
func FromString(payload string) io.ReadSeeker {
	return strings.NewReader(payload)
}

func FromBytes(payload []byte) io.ReadSeeker {
	return bytes.NewReader(payload)
}

func validationError(message string) error {
	return faults.NewTypedError(faults.ValidationError, message, nil)
}
