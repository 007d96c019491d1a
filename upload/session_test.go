package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

type recordedCall struct {
	method  string
	path    string
	headers map[string]string
	body    string
}

type fakeRequester struct {
	mu       sync.Mutex
	calls    []recordedCall
	statuses []map[string]any
	failOn   string
}

func (f *fakeRequester) record(spec server.RequestSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{
		method:  spec.Method,
		path:    spec.Path,
		headers: spec.Headers,
		body:    string(spec.RawBody),
	})
	if f.failOn != "" && f.failOn == spec.Method+" "+spec.Path {
		return faults.NewResponseError(faults.InvalidRequestError, "rejected", http.StatusBadRequest, "", nil)
	}
	return nil
}

func (f *fakeRequester) Execute(_ context.Context, spec server.RequestSpec) (*server.Response, error) {
	if err := f.record(spec); err != nil {
		return nil, err
	}
	return &server.Response{StatusCode: http.StatusOK}, nil
}

func (f *fakeRequester) Request(_ context.Context, spec server.RequestSpec) (resource.Value, error) {
	if err := f.record(spec); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, fmt.Errorf("no status queued")
	}
	next := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return next, nil
}

func (f *fakeRequester) callsMatching(method string, path string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []recordedCall
	for _, call := range f.calls {
		if call.method == method && call.path == path {
			matched = append(matched, call)
		}
	}
	return matched
}

func processingStatuses() []map[string]any {
	return []map[string]any{
		{"status": "Processing", "commit_progress": int64(10)},
		{"status": "Processing", "commit_progress": 55.5},
		{"status": "Processing Successful", "commit_progress": int64(100), "rows": int64(4)},
	}
}

func TestRunTenByteUploadWithChunkSizeOne(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{statuses: processingStatuses()}
	var uploadProgress []float64
	var commitProgress []float64

	session, err := NewSession(requester, resource.Materializer{}, "loss_sets/abc", FromString("0123456789"),
		WithChunkSize(1),
		WithPollInterval(0),
		WithUploadCallback(func(p float64) { uploadProgress = append(uploadProgress, p) }),
		WithCommitCallback(func(p float64) { commitProgress = append(commitProgress, p) }),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	status, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	inits := requester.callsMatching(http.MethodPost, "loss_sets/abc/data")
	if len(inits) != 1 || inits[0].headers["Entity-Length"] != "10" {
		t.Fatalf("expected one init with entity length, got %#v", inits)
	}

	chunks := requester.callsMatching(http.MethodPatch, "loss_sets/abc/data")
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunk calls, got %d", len(chunks))
	}
	for idx, chunk := range chunks {
		if chunk.headers["Offset"] != fmt.Sprint(idx) {
			t.Fatalf("chunk %d has offset %q", idx, chunk.headers["Offset"])
		}
		if chunk.headers["Content-Type"] != "application/offset+octet-stream" || chunk.body != fmt.Sprint(idx) {
			t.Fatalf("chunk %d has unexpected headers or body: %#v", idx, chunk)
		}
	}

	if commits := requester.callsMatching(http.MethodPost, "loss_sets/abc/data/commit"); len(commits) != 1 || commits[0].body != "" {
		t.Fatalf("expected one empty commit, got %#v", commits)
	}
	if polls := requester.callsMatching(http.MethodGet, "loss_sets/abc/data/status"); len(polls) != 3 {
		t.Fatalf("expected polling until terminal status, got %d polls", len(polls))
	}

	hundreds := 0
	for _, p := range uploadProgress {
		if p == 100 {
			hundreds++
		}
	}
	if hundreds != 1 || uploadProgress[len(uploadProgress)-1] != 100 {
		t.Fatalf("expected exactly one final 100, got %v", uploadProgress)
	}
	if uploadProgress[0] != 0 || uploadProgress[9] != 90 {
		t.Fatalf("expected progress from chunk offsets, got %v", uploadProgress)
	}

	if len(commitProgress) != 3 || commitProgress[0] != 10 || commitProgress[1] != 55.5 || commitProgress[2] != 100 {
		t.Fatalf("unexpected commit progress %v", commitProgress)
	}

	if status.State() != ProcessingSuccessful || session.State() != ProcessingSuccessful {
		t.Fatalf("expected successful processing, got %s", status.Status)
	}
	if status.Object.Value("rows") != int64(4) {
		t.Fatalf("expected full status object, got %v", status.Object)
	}
	if session.Offset() != 10 {
		t.Fatalf("expected offset 10, got %d", session.Offset())
	}
}

func TestNilCallbackRejectedBeforeNetwork(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	for _, opt := range []Option{WithUploadCallback(nil), WithCommitCallback(nil), WithChunkSize(0), WithChunkSize(config.MaxChunkSize + 1), WithPollInterval(-1)} {
		_, err := NewSession(requester, resource.Materializer{}, "loss_sets/abc", FromString("x"), opt)
		if !faults.IsCategory(err, faults.ValidationError) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
	if len(requester.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(requester.calls))
	}
}

func TestEmptyAndExhaustedSources(t *testing.T) {
	t.Parallel()

	exhausted := strings.NewReader("abc")
	_, _ = io.ReadAll(exhausted)

	sources := map[string]io.Reader{
		"empty_seekable":     FromBytes(nil),
		"exhausted_seekable": exhausted,
		"empty_stream":       io.MultiReader(),
	}

	for name, source := range sources {
		source := source
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			requester := &fakeRequester{statuses: []map[string]any{{"status": "Processing Failed"}}}
			session, err := NewSession(requester, resource.Materializer{}, "simulations/s1/", source, WithPollInterval(0))
			if err != nil {
				t.Fatalf("NewSession returned error: %v", err)
			}

			status, err := session.Run(context.Background())
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if status.State() != ProcessingFailed {
				t.Fatalf("expected failed processing status, got %q", status.Status)
			}
			if len(requester.callsMatching(http.MethodPatch, "simulations/s1/data")) != 0 {
				t.Fatal("expected no chunk calls")
			}
			if len(requester.callsMatching(http.MethodPost, "simulations/s1/data")) != 1 ||
				len(requester.callsMatching(http.MethodPost, "simulations/s1/data/commit")) != 1 {
				t.Fatal("expected init and commit calls")
			}
		})
	}
}

func TestUnknownLengthReportsNoUploadProgress(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{statuses: []map[string]any{{"status": "Processing Successful"}}}
	var progress []float64
	stream := io.MultiReader(strings.NewReader("abcde"))

	session, err := NewSession(requester, resource.Materializer{}, "loss_sets/abc", stream,
		WithChunkSize(2),
		WithPollInterval(0),
		WithUploadCallback(func(p float64) { progress = append(progress, p) }),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if _, err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	inits := requester.callsMatching(http.MethodPost, "loss_sets/abc/data")
	if _, declared := inits[0].headers["Entity-Length"]; declared {
		t.Fatal("expected streamed upload without entity length")
	}
	chunks := requester.callsMatching(http.MethodPatch, "loss_sets/abc/data")
	if len(chunks) != 3 || chunks[2].headers["Offset"] != "4" || chunks[2].body != "e" {
		t.Fatalf("unexpected chunks %#v", chunks)
	}
	if len(progress) != 0 {
		t.Fatalf("expected no progress for unknown length, got %v", progress)
	}
	if _, known := session.Length(); known {
		t.Fatal("expected unknown length")
	}
}

func TestPipeSourceStreamsWithoutLength(t *testing.T) {
	t.Parallel()

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe returned error: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })
	if _, err := writer.WriteString("abcde"); err != nil {
		t.Fatalf("pipe write returned error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("pipe close returned error: %v", err)
	}

	requester := &fakeRequester{statuses: []map[string]any{{"status": "Processing Successful"}}}
	session, err := NewSession(requester, resource.Materializer{}, "loss_sets/abc", reader,
		WithChunkSize(4),
		WithPollInterval(0),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if _, err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	inits := requester.callsMatching(http.MethodPost, "loss_sets/abc/data")
	if len(inits) != 1 {
		t.Fatalf("expected one init, got %#v", inits)
	}
	if _, declared := inits[0].headers["Entity-Length"]; declared {
		t.Fatal("expected pipe upload without entity length")
	}
	chunks := requester.callsMatching(http.MethodPatch, "loss_sets/abc/data")
	if len(chunks) != 2 || chunks[0].body != "abcd" || chunks[1].body != "e" {
		t.Fatalf("unexpected chunks %#v", chunks)
	}
	if _, known := session.Length(); known {
		t.Fatal("expected unknown length")
	}
}

func TestStepsOutOfOrder(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	session, err := NewSession(requester, resource.Materializer{}, "loss_sets/abc", FromString("x"))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	if err := session.Commit(context.Background()); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected commit before init to fail, got %v", err)
	}
	if _, err := session.Poll(context.Background()); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected poll before commit to fail, got %v", err)
	}
	if err := session.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if err := session.Init(context.Background()); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected second init to fail, got %v", err)
	}
	if err := session.Commit(context.Background()); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected commit before draining to fail, got %v", err)
	}
}

func TestRequestErrorsPropagate(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{failOn: "PATCH loss_sets/abc/data"}
	session, err := NewSession(requester, resource.Materializer{}, "loss_sets/abc", FromString("abc"), WithChunkSize(1))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	_, err = session.Run(context.Background())
	if !faults.IsCategory(err, faults.InvalidRequestError) {
		t.Fatalf("expected request error unchanged, got %v", err)
	}
	if session.State() != Initiated || session.Offset() != 0 {
		t.Fatalf("expected session to stay at its last good step, got %s offset %d", session.State(), session.Offset())
	}
}

func TestParseState(t *testing.T) {
	t.Parallel()

	state, ok := ParseState("Processing Successful")
	if !ok || state != ProcessingSuccessful || !state.Terminal() {
		t.Fatalf("unexpected state %s %t", state, ok)
	}
	if _, ok := ParseState("Processing"); ok {
		t.Fatal("expected unknown server state")
	}
	if Committed.Terminal() || Committed.String() != "Committed" {
		t.Fatal("expected committed to be non terminal")
	}
}
