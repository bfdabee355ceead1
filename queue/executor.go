package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
)

// HTTPExecutor is the default Executor: it calls an action's endpoint and
// classifies the outcome against its success_criteria (a dotted JSON path
// into the response body that must resolve to a truthy value).
type HTTPExecutor struct {
	Client *http.Client
}

// NewHTTPExecutor constructs an HTTPExecutor.
func NewHTTPExecutor(client *http.Client) *HTTPExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExecutor{Client: client}
}

// Execute performs the outbound call described by def.Endpoint.
func (e *HTTPExecutor) Execute(ctx context.Context, def *actionregistry.Definition, params map[string]any) ExecutionResult {
	timeout := time.Duration(def.Endpoint.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(def.TimeoutMS) * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(params)
	if err != nil {
		return ExecutionResult{ErrorClass: "encode_error", Err: err}
	}
	method := def.Endpoint.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(reqCtx, method, def.Endpoint.URL, strings.NewReader(string(body)))
	if err != nil {
		return ExecutionResult{ErrorClass: "build_request_error", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if def.Endpoint.AuthSpec != "" {
		req.Header.Set("Authorization", def.Endpoint.AuthSpec)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return ExecutionResult{ErrorClass: "timeout", Err: err}
		}
		return ExecutionResult{ErrorClass: "network", Err: err}
	}
	defer resp.Body.Close()

	var envelope map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode >= 500 {
		return ExecutionResult{ErrorClass: "5xx", Err: httpStatusError(resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return ExecutionResult{ErrorClass: "rate_limited", Err: httpStatusError(resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return ExecutionResult{ErrorClass: "4xx", Err: httpStatusError(resp.StatusCode)}
	}

	if def.Endpoint.SuccessCriteria != "" && !isTruthyPath(envelope, def.Endpoint.SuccessCriteria) {
		return ExecutionResult{ErrorClass: "success_criteria_not_met", Err: errSuccessCriteriaNotMet}
	}
	return ExecutionResult{Success: true, Result: envelope}
}

var errSuccessCriteriaNotMet = httpStatusError(0)

func httpStatusError(code int) error {
	return statusError(code)
}

type statusError int

func (s statusError) Error() string {
	if s == 0 {
		return "success criteria not met"
	}
	return "http status " + strconv.Itoa(int(s))
}

// isTruthyPath walks a dotted path into body and reports whether the
// resolved value is present and not a zero value.
func isTruthyPath(body map[string]any, path string) bool {
	var cur any = body
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[part]
		if !ok {
			return false
		}
	}
	switch v := cur.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}
