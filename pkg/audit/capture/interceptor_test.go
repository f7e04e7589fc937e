package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/sanitize"
	"mercator-hq/callaudit/pkg/telemetry/logging"
)

// recordingSink collects written records.
type recordingSink struct {
	mu      sync.Mutex
	records []audit.Record
}

func (s *recordingSink) Write(record audit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *recordingSink) all() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Record(nil), s.records...)
}

func (s *recordingSink) only(t *testing.T) audit.Record {
	t.Helper()
	records := s.all()
	if len(records) != 1 {
		t.Fatalf("sink received %d records, want exactly 1", len(records))
	}
	return records[0]
}

// countingObserver counts observer callbacks.
type countingObserver struct {
	mu            sync.Mutex
	calls         int
	failures      int
	captureErrors []string
}

func (o *countingObserver) ObserveCall(handler string, success bool, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if !success {
		o.failures++
	}
}

func (o *countingObserver) ObserveCaptureError(field string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.captureErrors = append(o.captureErrors, field)
}

type notFoundErr struct{ dni string }

func (e *notFoundErr) Error() string   { return "example " + e.dni + " not found" }
func (e *notFoundErr) StatusCode() int { return http.StatusNotFound }

type explodingErr struct{}

func (explodingErr) Error() string { panic("Error() exploded") }

type createRequest struct {
	Name     string `json:"name"`
	DNI      string `json:"dni"`
	Password string `json:"password"`
}

func newTestInterceptor() (*Interceptor, *recordingSink) {
	sink := &recordingSink{}
	return NewInterceptor(sink, DefaultOptions()), sink
}

func httpContext(r *http.Request) context.Context {
	return WithRequestInfo(r.Context(), NewRequestInfo(r))
}

func TestIntercept_Success(t *testing.T) {
	ic, sink := newTestInterceptor()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(25 * time.Millisecond)}
	ic.now = func() time.Time {
		next := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return next
	}

	opts := ic.Defaults()
	opts.Action = "CREATE_EXAMPLE"
	opts.MaskFields = []string{"password", "token"}

	req := createRequest{Name: "John", DNI: "1234", Password: "s3cret"}
	got, err := Intercept(context.Background(), ic, Invocation{
		Component: "ExampleService",
		Operation: "Create",
		Args:      []any{req},
		Options:   opts,
	}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"id": 1, "name": req.Name}, nil
	})
	if err != nil {
		t.Fatalf("Intercept() error = %v", err)
	}
	if got["name"] != "John" {
		t.Errorf("result altered: %v", got)
	}

	record := sink.only(t)
	if record.Handler != "ExampleService#Create [CREATE_EXAMPLE]" {
		t.Errorf("Handler = %q", record.Handler)
	}
	if !record.Success {
		t.Error("Success = false")
	}
	if record.DurationMs != 25 || !record.CreatedAt.Equal(start) {
		t.Errorf("DurationMs = %d, CreatedAt = %v", record.DurationMs, record.CreatedAt)
	}
	if record.Method != nil || record.Path != nil || record.HTTPStatus != nil {
		t.Error("non-HTTP call should not carry method, path or status")
	}
	body := deref(record.RequestBody)
	if !strings.Contains(body, `"password":"***MASKED***"`) || strings.Contains(body, "s3cret") {
		t.Errorf("RequestBody = %s", body)
	}
	if deref(record.ResponseBody) != `{"id":1,"name":"John"}` {
		t.Errorf("ResponseBody = %s", deref(record.ResponseBody))
	}
	if record.CorrelationID == "" {
		t.Error("CorrelationID is empty")
	}
}

func TestIntercept_DefaultAction(t *testing.T) {
	ic, sink := newTestInterceptor()

	_, _ = Intercept(context.Background(), ic, Invocation{Component: "Svc", Operation: "findAll"},
		func(ctx context.Context) (int, error) { return 0, nil })

	if got := sink.only(t).Handler; got != "Svc#findAll [FINDALL]" {
		t.Errorf("Handler = %q", got)
	}
}

func TestIntercept_ErrorReturnedUnchanged(t *testing.T) {
	ic, sink := newTestInterceptor()
	callErr := errors.New("database unavailable")

	_, err := Intercept(context.Background(), ic, Invocation{Component: "Svc", Operation: "Op"},
		func(ctx context.Context) (string, error) { return "", callErr })

	if err != callErr {
		t.Fatalf("Intercept() error = %v, want the original error", err)
	}

	record := sink.only(t)
	if record.Success {
		t.Error("Success = true")
	}
	if deref(record.ErrorType) != "*errors.errorString" {
		t.Errorf("ErrorType = %q", deref(record.ErrorType))
	}
	if deref(record.ErrorMessage) != "database unavailable" {
		t.Errorf("ErrorMessage = %q", deref(record.ErrorMessage))
	}
	if record.ErrorStacktrace == nil {
		t.Error("ErrorStacktrace is nil")
	}
	if record.ResponseBody != nil {
		t.Error("failed call should not capture a response")
	}
}

func TestIntercept_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"coded error", &notFoundErr{dni: "1"}, http.StatusNotFound},
		{"wrapped coded error", fmt.Errorf("lookup: %w", &notFoundErr{dni: "1"}), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic, sink := newTestInterceptor()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/examples/dni/1?x=1", nil)

			_, _ = Intercept(httpContext(r), ic, Invocation{Component: "Svc", Operation: "Find"},
				func(ctx context.Context) (string, error) { return "ok", tt.err })

			record := sink.only(t)
			if record.HTTPStatus == nil || *record.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %v, want %d", record.HTTPStatus, tt.status)
			}
			if deref(record.Method) != http.MethodGet || deref(record.Path) != "/api/v1/examples/dni/1" {
				t.Errorf("Method = %q, Path = %q", deref(record.Method), deref(record.Path))
			}
			if deref(record.QueryParams) != `{"x":"1"}` {
				t.Errorf("QueryParams = %q", deref(record.QueryParams))
			}
		})
	}
}

func TestIntercept_QueryParamsMaskedAndTruncated(t *testing.T) {
	ic, sink := newTestInterceptor()
	opts := ic.Defaults()
	opts.MaskFields = []string{"cvv", "pin"}
	opts.MaxPayloadSize = 100

	long := strings.Repeat("a", 20000)
	r := httptest.NewRequest(http.MethodGet, "/x?cvv=987&pin=4321&q="+long, nil)

	_, _ = Intercept(httpContext(r), ic, Invocation{Component: "Svc", Operation: "Search", Options: opts},
		func(ctx context.Context) (string, error) { return "ok", nil })

	query := deref(sink.only(t).QueryParams)
	if strings.Contains(query, "987") || strings.Contains(query, "4321") {
		t.Errorf("QueryParams leaked a masked field: %s", query)
	}
	if !strings.Contains(query, `"cvv":"`+sanitize.FieldMask+`"`) {
		t.Errorf("QueryParams = %s, want masked cvv", query)
	}
	if !strings.HasSuffix(query, sanitize.TruncationMarker) {
		t.Errorf("QueryParams not truncated: %d bytes", len(query))
	}
	if limit := opts.MaxPayloadSize + len(sanitize.TruncationMarker); len(query) > limit {
		t.Errorf("len(QueryParams) = %d, want <= %d", len(query), limit)
	}
}

func TestIntercept_PanicReraised(t *testing.T) {
	ic, sink := newTestInterceptor()

	defer func() {
		r := recover()
		if r != "kaboom" {
			t.Fatalf("recovered %v, want the original panic value", r)
		}

		record := sink.only(t)
		if record.Success {
			t.Error("Success = true")
		}
		if deref(record.ErrorType) != "panic(string)" {
			t.Errorf("ErrorType = %q", deref(record.ErrorType))
		}
		if deref(record.ErrorMessage) != "kaboom" {
			t.Errorf("ErrorMessage = %q", deref(record.ErrorMessage))
		}
	}()

	_, _ = Intercept(context.Background(), ic, Invocation{Component: "Svc", Operation: "Op"},
		func(ctx context.Context) (int, error) { panic("kaboom") })

	t.Fatal("Intercept() should have re-panicked")
}

func TestIntercept_FinalizationPanicStillDispatchesOnce(t *testing.T) {
	ic, sink := newTestInterceptor()
	obs := &countingObserver{}
	ic.SetObserver(obs)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/examples", nil)
	_, err := Intercept(httpContext(r), ic, Invocation{Component: "Svc", Operation: "Op"},
		func(ctx context.Context) (int, error) { return 0, explodingErr{} })

	if _, ok := err.(explodingErr); !ok {
		t.Fatalf("Intercept() error = %T, want the original error", err)
	}

	record := sink.only(t)
	if record.Success {
		t.Error("fallback record should be a failure")
	}
	if deref(record.ErrorType) != "capture.FinalizationError" {
		t.Errorf("ErrorType = %q", deref(record.ErrorType))
	}
	if deref(record.Path) != "/api/v1/examples" {
		t.Errorf("Path = %q", deref(record.Path))
	}
	if record.CorrelationID == "" || record.Handler != "Svc#Op [OP]" {
		t.Errorf("fallback lost identity: %+v", record)
	}
	if obs.calls != 1 || obs.failures != 1 {
		t.Errorf("observer calls = %d, failures = %d", obs.calls, obs.failures)
	}
}

func TestIntercept_CaptureFailureDoesNotReachCaller(t *testing.T) {
	ic, sink := newTestInterceptor()
	obs := &countingObserver{}
	ic.SetObserver(obs)

	got, err := Intercept(context.Background(), ic, Invocation{
		Component: "Svc",
		Operation: "Op",
		Args:      []any{make(chan int)},
		Options:   ic.Defaults(),
	}, func(ctx context.Context) (string, error) { return "fine", nil })

	if err != nil || got != "fine" {
		t.Fatalf("Intercept() = %q, %v", got, err)
	}
	record := sink.only(t)
	if !strings.HasPrefix(deref(record.RequestBody), "[Error serializing: ") {
		t.Errorf("RequestBody = %q", deref(record.RequestBody))
	}
	if len(obs.captureErrors) != 1 || obs.captureErrors[0] != "request_body" {
		t.Errorf("capture errors = %v", obs.captureErrors)
	}
}

func TestIntercept_CaptureFlags(t *testing.T) {
	t.Run("response capture disabled", func(t *testing.T) {
		ic, sink := newTestInterceptor()
		opts := ic.Defaults()
		opts.CaptureResponse = false

		_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O", Args: []any{1}, Options: opts},
			func(ctx context.Context) (string, error) { return "secret response", nil })

		record := sink.only(t)
		if record.ResponseBody != nil {
			t.Errorf("ResponseBody = %q, want nil", *record.ResponseBody)
		}
		if deref(record.RequestBody) != "1" {
			t.Errorf("RequestBody = %q", deref(record.RequestBody))
		}
	})

	t.Run("request capture disabled", func(t *testing.T) {
		ic, sink := newTestInterceptor()
		opts := ic.Defaults()
		opts.CaptureRequest = false

		_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O", Args: []any{"in"}, Options: opts},
			func(ctx context.Context) (string, error) { return "out", nil })

		if body := sink.only(t).RequestBody; body != nil {
			t.Errorf("RequestBody = %q, want nil", *body)
		}
	})

	t.Run("no args means no request body", func(t *testing.T) {
		ic, sink := newTestInterceptor()

		_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O", Options: ic.Defaults()},
			func(ctx context.Context) (string, error) { return "out", nil })

		if body := sink.only(t).RequestBody; body != nil {
			t.Errorf("RequestBody = %q, want nil", *body)
		}
	})

	t.Run("several args serialize as an array", func(t *testing.T) {
		ic, sink := newTestInterceptor()

		_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O", Args: []any{"a", 2}, Options: ic.Defaults()},
			func(ctx context.Context) (int, error) { return 0, nil })

		if got := deref(sink.only(t).RequestBody); got != `["a",2]` {
			t.Errorf("RequestBody = %q", got)
		}
	})

	t.Run("nil pointer result is not captured", func(t *testing.T) {
		ic, sink := newTestInterceptor()

		_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O", Options: ic.Defaults()},
			func(ctx context.Context) (*createRequest, error) { return nil, nil })

		if body := sink.only(t).ResponseBody; body != nil {
			t.Errorf("ResponseBody = %q, want nil", *body)
		}
	})
}

func TestIntercept_ResolvesIdentity(t *testing.T) {
	t.Run("context wins over header", func(t *testing.T) {
		ic, sink := newTestInterceptor()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderCorrelationID, "from-header")
		r.Header.Set(HeaderTraceID, "trace-header")
		ctx := logging.WithCorrelationID(httpContext(r), "from-context")
		ctx = logging.WithTraceID(ctx, "trace-context")

		_, _ = Intercept(ctx, ic, Invocation{Component: "S", Operation: "O"},
			func(ctx context.Context) (int, error) { return 0, nil })

		record := sink.only(t)
		if record.CorrelationID != "from-context" || deref(record.TraceID) != "trace-context" {
			t.Errorf("CorrelationID = %q, TraceID = %q", record.CorrelationID, deref(record.TraceID))
		}
	})

	t.Run("header used when context is empty", func(t *testing.T) {
		ic, sink := newTestInterceptor()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderCorrelationID, "from-header")
		r.Header.Set(HeaderTraceID, "trace-header")
		r.Header.Set(HeaderUserID, "user-9")
		r.Header.Set("User-Agent", "curl/8.0")

		_, _ = Intercept(httpContext(r), ic, Invocation{Component: "S", Operation: "O"},
			func(ctx context.Context) (int, error) { return 0, nil })

		record := sink.only(t)
		if record.CorrelationID != "from-header" || deref(record.TraceID) != "trace-header" {
			t.Errorf("CorrelationID = %q, TraceID = %q", record.CorrelationID, deref(record.TraceID))
		}
		if deref(record.UserID) != "user-9" || deref(record.UserAgent) != "curl/8.0" {
			t.Errorf("UserID = %q, UserAgent = %q", deref(record.UserID), deref(record.UserAgent))
		}
	})

	t.Run("generated when absent", func(t *testing.T) {
		ic, sink := newTestInterceptor()

		for i := 0; i < 2; i++ {
			_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O"},
				func(ctx context.Context) (int, error) { return 0, nil })
		}

		records := sink.all()
		if records[0].CorrelationID == "" || records[0].CorrelationID == records[1].CorrelationID {
			t.Errorf("generated correlation ids = %q, %q", records[0].CorrelationID, records[1].CorrelationID)
		}
		if records[0].TraceID != nil {
			t.Error("TraceID should stay absent")
		}
	})
}

func TestIntercept_CancelledContext(t *testing.T) {
	ic, sink := newTestInterceptor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Intercept(ctx, ic, Invocation{Component: "S", Operation: "O"},
		func(ctx context.Context) (int, error) { return 0, ctx.Err() })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Intercept() error = %v", err)
	}
	if record := sink.only(t); record.Success {
		t.Error("cancelled call should be recorded as a failure")
	}
}

func TestIntercept_Concurrent(t *testing.T) {
	ic, sink := newTestInterceptor()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = Intercept(context.Background(), ic, Invocation{Component: "S", Operation: "O", Args: []any{i}},
				func(ctx context.Context) (int, error) {
					if i%2 == 0 {
						return 0, errors.New("even")
					}
					return i, nil
				})
		}(i)
	}
	wg.Wait()

	if got := len(sink.all()); got != 50 {
		t.Errorf("records = %d, want 50", got)
	}
}

func TestIntercept_NilInterceptor(t *testing.T) {
	got, err := Intercept(context.Background(), nil, Invocation{Component: "S", Operation: "O"},
		func(ctx context.Context) (int, error) { return 7, nil })
	if got != 7 || err != nil {
		t.Errorf("Intercept() = %d, %v", got, err)
	}
}

func TestInterceptor_SetDefaults(t *testing.T) {
	ic, _ := newTestInterceptor()

	ic.SetDefaults(Options{CaptureRequest: true, MaskFields: []string{" PIN ", "pin"}})
	got := ic.Defaults()

	if got.MaxPayloadSize != DefaultMaxPayloadSize {
		t.Errorf("MaxPayloadSize = %d", got.MaxPayloadSize)
	}
	if len(got.MaskFields) != 1 || got.MaskFields[0] != "pin" {
		t.Errorf("MaskFields = %v", got.MaskFields)
	}

	got.MaskFields[0] = "changed"
	if ic.Defaults().MaskFields[0] != "pin" {
		t.Error("Defaults() returned shared slice")
	}
}

func TestInterceptor_SetEnabled(t *testing.T) {
	ic, sink := newTestInterceptor()
	inv := Invocation{Component: "S", Operation: "O"}
	op := func(ctx context.Context) (int, error) { return 1, nil }

	ic.SetEnabled(false)
	if ic.Enabled() {
		t.Fatal("Enabled() = true after SetEnabled(false)")
	}
	if got, err := Intercept(context.Background(), ic, inv, op); got != 1 || err != nil {
		t.Fatalf("Intercept() = %d, %v", got, err)
	}
	if n := len(sink.all()); n != 0 {
		t.Fatalf("disabled interceptor wrote %d records", n)
	}

	ic.SetEnabled(true)
	_, _ = Intercept(context.Background(), ic, inv, op)
	sink.only(t)
}
