package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/analyzere/analyzere-go/client"
	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/internal/cli/testkit"
	httpserver "github.com/analyzere/analyzere-go/internal/providers/server/http"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

type fakeAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []recordedRequest
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{routes: map[string]http.HandlerFunc{}}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.requests = append(api.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   body,
		})
		handler, ok := api.routes[r.Method+" "+r.URL.Path]
		api.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) json(route string, status int, payload string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[route] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}
}

func (a *fakeAPI) count(method string, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, request := range a.requests {
		if request.method == method && request.path == path {
			total++
		}
	}
	return total
}

func (a *fakeAPI) last(method string, path string) recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	for idx := len(a.requests) - 1; idx >= 0; idx-- {
		if a.requests[idx].method == method && a.requests[idx].path == path {
			return a.requests[idx]
		}
	}
	return recordedRequest{}
}

func newTestDependencies(t *testing.T, api *fakeAPI, auth *config.HTTPAuth) Dependencies {
	t.Helper()

	if auth == nil {
		auth = &config.HTTPAuth{Anonymous: true}
	}
	gateway, err := httpserver.NewGateway(config.Client{
		BaseURL: api.srv.URL,
		Auth:    auth,
	}, httpserver.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}
	return Dependencies{
		Client: client.New(gateway, client.WithUploadDefaults(config.Upload{PollInterval: time.Millisecond})),
		Tokens: gateway,
	}
}

type staticContexts struct {
	items   []config.Context
	current string
}

func (s staticContexts) List(context.Context) ([]config.Context, error) {
	return s.items, nil
}

func (s staticContexts) GetCurrent(context.Context) (config.Context, error) {
	for _, item := range s.items {
		if item.Name == s.current {
			return item, nil
		}
	}
	return config.Context{}, faults.NewTypedError(faults.ValidationError, "no current context", nil)
}

func (s staticContexts) ResolveContext(ctx context.Context, selection config.ContextSelection) (config.Context, error) {
	if selection.Name == "" {
		return s.GetCurrent(ctx)
	}
	for _, item := range s.items {
		if item.Name == selection.Name {
			return item, nil
		}
	}
	return config.Context{}, faults.NewTypedError(faults.ValidationError, "unknown context", nil)
}

func TestResourceGetPrintsObjectAndAppliesJQ(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /layers/abc", http.StatusOK, `{"id":"abc","_type":"CatXL","description":"cat","created":"2024-01-02T03:04:05Z","loss_sets":[{"href":"`+api.srv.URL+`/loss_sets/ls1"}]}`)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "resource", "get", "layers", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, output)
	}
	if payload["_type"] != "CatXL" || payload["description"] != "cat" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["created"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %v", payload["created"])
	}
	lossSets, _ := payload["loss_sets"].([]any)
	if len(lossSets) != 1 || lossSets[0].(map[string]any)["href"] != api.srv.URL+"/loss_sets/ls1" {
		t.Fatalf("expected reference href, got %v", payload["loss_sets"])
	}
	if api.count(http.MethodGet, "/loss_sets/ls1") != 0 {
		t.Fatal("printing must not resolve references")
	}

	output, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "resource", "get", "layers", "abc", "--jq", ".description", "-o", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "cat" {
		t.Fatalf("unexpected jq output %q", output)
	}
}

func TestResourceListForwardsParams(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /portfolios/", http.StatusOK, `{"items":[{"id":"p1","name":"one"},{"id":"p2","name":"two"}],"meta":{"total_count":7,"limit":2,"offset":0}}`)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(deps), "",
		"resource", "list", "portfolios", "--param", "limit=2", "-P", "ordering=-created", "--jq", "[.meta.total_count, (.items | length)]",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var values []int
	if err := json.Unmarshal([]byte(output), &values); err != nil {
		t.Fatalf("output is not a JSON list: %v (%s)", err, output)
	}
	if len(values) != 2 || values[0] != 7 || values[1] != 2 {
		t.Fatalf("unexpected values %v", values)
	}
	query := api.last(http.MethodGet, "/portfolios/").query
	if !strings.Contains(query, "limit=2") || !strings.Contains(query, "ordering=-created") {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestResourceListRejectsMalformedParam(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	deps := newTestDependencies(t, api, nil)

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "resource", "list", "layers", "--param", "limit")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(api.requests) != 0 {
		t.Fatal("expected no request for invalid params")
	}
}

func TestResourceSaveCreatesFromStdin(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("POST /layers/", http.StatusCreated, `{"id":"new","_type":"CatXL","description":"created"}`)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(deps),
		"_type: CatXL\ndescription: created\nattachment:\n  value: 5\n  currency: USD\n",
		"resource", "save", "layers", "-f", "-", "-i", "yaml", "--jq", ".id", "-o", "text",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "new" {
		t.Fatalf("unexpected output %q", output)
	}

	var body map[string]any
	if err := json.Unmarshal(api.last(http.MethodPost, "/layers/").body, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if body["_type"] != "CatXL" {
		t.Fatalf("expected wire type key, got %v", body)
	}
	attachment, _ := body["attachment"].(map[string]any)
	if attachment["value"] != float64(5) || attachment["currency"] != "USD" {
		t.Fatalf("unexpected attachment %v", body["attachment"])
	}
}

func TestRequestCommandSendsRawRequest(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("POST /layers/abc/copy", http.StatusOK, `{"id":"copy"}`)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(deps), `{"name":"copy"}`,
		"resource", "request", "post", "layers/abc/copy", "-f", "-", "--jq", ".id", "-o", "text",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "copy" {
		t.Fatalf("unexpected output %q", output)
	}
	if body := string(api.last(http.MethodPost, "/layers/abc/copy").body); !strings.Contains(body, `"name":"copy"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestMetricsELTextOutput(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /layer_views/lv1", http.StatusOK, `{"id":"lv1"}`)
	api.json("GET /layer_views/lv1/el", http.StatusOK, `1234.5`)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(deps), "",
		"metrics", "el", "layer_views", "lv1", "-o", "text", "--param", "perspective=NetLoss",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "1234.5" {
		t.Fatalf("unexpected output %q", output)
	}
	if query := api.last(http.MethodGet, "/layer_views/lv1/el").query; query != "perspective=NetLoss" {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestMetricsTailVectorizesProbabilities(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /portfolio_views/pv1", http.StatusOK, `{"id":"pv1"}`)
	api.json("GET /portfolio_views/pv1/tail_metrics/0.01,0.004", http.StatusOK, `[{"probability":0.01,"min":1.5}]`)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(deps), "",
		"metrics", "tail", "portfolio_views", "pv1", "0.01", "0.004", "--jq", ".[0].min",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "1.5" {
		t.Fatalf("unexpected output %q", output)
	}

	_, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "metrics", "tail", "portfolio_views", "pv1", "often")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error for a non-numeric probability, got %v", err)
	}
}

func TestMetricsNoWaitSurfacesRetryAfter(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /layer_views/lv1", http.StatusOK, `{"id":"lv1"}`)
	api.mu.Lock()
	api.routes["GET /layer_views/lv1/el"] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	api.mu.Unlock()
	deps := newTestDependencies(t, api, nil)

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "metrics", "el", "layer_views", "lv1", "--no-wait")
	if !faults.IsCategory(err, faults.RetryAfterError) {
		t.Fatalf("expected retry-after error, got %v", err)
	}
	if ExitCodeForError(err) != 5 {
		t.Fatalf("unexpected exit code %d", ExitCodeForError(err))
	}
	if api.count(http.MethodGet, "/layer_views/lv1/el") != 1 {
		t.Fatal("expected a single metrics request")
	}
}

func TestDataUploadFromStdin(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /loss_sets/ls1", http.StatusOK, `{"id":"ls1"}`)
	api.json("POST /loss_sets/ls1/data", http.StatusCreated, ``)
	api.json("PATCH /loss_sets/ls1/data", http.StatusNoContent, ``)
	api.json("POST /loss_sets/ls1/data/commit", http.StatusAccepted, ``)
	api.json("GET /loss_sets/ls1/data/status", http.StatusOK, `{"status":"Processing Successful","commit_progress":100}`)
	deps := newTestDependencies(t, api, nil)

	output, stderr, err := testkit.ExecuteCommandForTestWithStreams(
		NewRootCommand(deps), "trial,loss\n1,10\n",
		"data", "upload", "loss_sets", "ls1", "--file", "-", "--chunk-size", "8", "-o", "text",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr %s)", err, stderr)
	}
	if strings.TrimSpace(output) != "Processing Successful (100.0%)" {
		t.Fatalf("unexpected output %q", output)
	}
	if got := api.last(http.MethodPost, "/loss_sets/ls1/data").header.Get("Entity-Length"); got != "16" {
		t.Fatalf("unexpected entity length %q", got)
	}
	if api.count(http.MethodPatch, "/loss_sets/ls1/data") != 2 {
		t.Fatalf("expected two chunks, got %d", api.count(http.MethodPatch, "/loss_sets/ls1/data"))
	}
}

func TestDataUploadRequiresFile(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	deps := newTestDependencies(t, api, nil)

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "data", "upload", "loss_sets", "ls1")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDataDownloadAndDelete(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /simulations/s1", http.StatusOK, `{"id":"s1"}`)
	api.json("GET /simulations/s1/data", http.StatusOK, "trial,event\n1,9\n")
	api.json("DELETE /simulations/s1/data", http.StatusNoContent, ``)
	deps := newTestDependencies(t, api, nil)

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "data", "download", "simulations", "s1", "-o", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "trial,event\n1,9\n" {
		t.Fatalf("unexpected download %q", output)
	}

	_, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "data", "delete", "simulations", "s1")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if _, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "data", "delete", "simulations", "s1", "-y"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.count(http.MethodDelete, "/simulations/s1/data") != 1 {
		t.Fatal("expected one delete request")
	}
}

func TestDataCommandsRejectTypesWithoutData(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /layers/abc", http.StatusOK, `{"id":"abc","_type":"CatXL"}`)
	deps := newTestDependencies(t, api, nil)

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "data", "status", "layers", "abc")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthTokenPrintsBearerToken(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	deps := newTestDependencies(t, api, &config.HTTPAuth{BearerToken: &config.BearerTokenAuth{Token: "secret-token"}})

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "auth", "token", "-o", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "secret-token" {
		t.Fatalf("unexpected output %q", output)
	}

	_, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "auth", "token", "-o", "json")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected text-only output error, got %v", err)
	}
}

func TestConfigCommandsHideCredentials(t *testing.T) {
	t.Parallel()

	deps := Dependencies{Contexts: staticContexts{
		current: "prod",
		items: []config.Context{
			{Name: "dev", Client: config.Client{BaseURL: "http://localhost:8000/"}},
			{Name: "prod", Client: config.Client{
				BaseURL: "https://api.analyzere.net/",
				Auth:    &config.HTTPAuth{BasicAuth: &config.BasicAuth{Username: "user", Password: "hunter2"}},
			}},
		},
	}}

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(output, "hunter2") {
		t.Fatalf("credentials leaked in %s", output)
	}
	var summaries []map[string]any
	if err := json.Unmarshal([]byte(output), &summaries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(summaries) != 2 || summaries[1]["auth"] != "basic" || summaries[1]["current"] != true {
		t.Fatalf("unexpected summaries %v", summaries)
	}

	output, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "current", "-o", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) != "prod" {
		t.Fatalf("unexpected current context %q", output)
	}
}

func TestCommandsWithoutClientFailWithValidationError(t *testing.T) {
	t.Parallel()

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(Dependencies{}), "", "resource", "get", "layers", "abc")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDebugFlagLogsRequests(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.json("GET /layers/abc", http.StatusOK, `{"id":"abc"}`)
	deps := newTestDependencies(t, api, nil)

	_, stderr, err := testkit.ExecuteCommandForTestWithStreams(NewRootCommand(deps), "", "resource", "get", "layers", "abc", "--debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "root flags") {
		t.Fatalf("expected debug output, got %q", stderr)
	}

	_, stderr, err = testkit.ExecuteCommandForTestWithStreams(NewRootCommand(deps), "", "resource", "get", "layers", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stderr != "" {
		t.Fatalf("expected no debug output, got %q", stderr)
	}
}

func TestRegisteredCommandPaths(t *testing.T) {
	t.Parallel()

	registered := map[string]bool{}
	for _, path := range testkit.CommandPaths(NewRootCommand(Dependencies{})) {
		registered[path] = true
	}

	for _, want := range []string{
		"resource get", "resource list", "resource save", "resource request post",
		"data upload", "data download", "data status", "data delete",
		"metrics el", "metrics tail", "metrics ep", "metrics tvar",
		"auth token", "config list", "config current", "version",
	} {
		if !registered[want] {
			t.Fatalf("expected command %q to be registered", want)
		}
	}
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want int
	}{
		{err: nil, want: 0},
		{err: errors.New("plain"), want: 1},
		{err: faults.NewTypedError(faults.ValidationError, "bad", nil), want: 2},
		{err: faults.NewMissingIDError(""), want: 2},
		{err: faults.NewTypedError(faults.InvalidRequestError, "bad request", nil), want: 3},
		{err: faults.NewTypedError(faults.AuthenticationError, "denied", nil), want: 4},
		{err: faults.NewTypedError(faults.RetryAfterError, "later", nil), want: 5},
		{err: faults.NewTypedError(faults.TransportError, "down", nil), want: 6},
		{err: faults.NewTypedError(faults.ServerError, "boom", nil), want: 1},
	}

	for _, testCase := range testCases {
		if got := ExitCodeForError(testCase.err); got != testCase.want {
			t.Fatalf("ExitCodeForError(%v) = %d, want %d", testCase.err, got, testCase.want)
		}
	}
}
