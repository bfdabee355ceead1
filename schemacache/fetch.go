package schemacache

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Nikunjmattoo/bot-framework-sub000/internal/brainerr"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
)

// Fetcher retrieves the current upstream value for a schema, returning the
// raw per-key values keyed by key_name. Implementations talk to the Brand
// Schema API described in spec.md §6.
type Fetcher interface {
	Fetch(ctx context.Context, def *schemaregistry.Definition) (apiOK bool, values map[string]any, err error)
}

// HTTPFetcher is the default Fetcher: it calls the schema definition's
// api_endpoint with api_method, extracts each key's value via its
// api_field_path (dotted JSON path). When Limiters is set, every outbound
// call goes through that one limiter; the limit is shared by all brands,
// not kept per brand.
type HTTPFetcher struct {
	Client   *http.Client
	Limiters *rate.Limiter // nil disables rate limiting
}

// NewHTTPFetcher constructs an HTTPFetcher with per-call rate limiting at
// the given steady rate and burst.
func NewHTTPFetcher(client *http.Client, ratePerSecond float64, burst int) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &HTTPFetcher{Client: client, Limiters: limiter}
}

// Fetch performs the outbound call described by def and extracts every
// key's raw value via its api_field_path.
func (f *HTTPFetcher) Fetch(ctx context.Context, def *schemaregistry.Definition) (bool, map[string]any, error) {
	if f.Limiters != nil {
		if err := f.Limiters.Wait(ctx); err != nil {
			return false, nil, brainerr.Wrap(brainerr.KindExternalTransient, "schema_fetch_rate_limited", err)
		}
	}

	timeout := time.Duration(def.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := def.APIMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(reqCtx, method, def.APIEndpoint, nil)
	if err != nil {
		return false, nil, brainerr.Wrap(brainerr.KindInternal, "schema_fetch_build_request", err)
	}
	if def.AuthSpec != "" {
		req.Header.Set("Authorization", def.AuthSpec)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return false, nil, brainerr.Wrap(brainerr.KindExternalTransient, "schema_fetch_transport", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, nil, brainerr.New(brainerr.KindExternalTransient, "schema_fetch_5xx")
	}
	if resp.StatusCode >= 400 {
		return false, nil, brainerr.New(brainerr.KindExternalPermanent, "schema_fetch_4xx")
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, nil, brainerr.Wrap(brainerr.KindExternalTransient, "schema_fetch_decode", err)
	}

	values := make(map[string]any, len(def.Keys))
	for _, k := range def.Keys {
		values[k.KeyName] = extractDottedPath(body, k.APIFieldPath)
	}
	return true, values, nil
}

// extractDottedPath walks a dotted field path (e.g. "profile.contact.phone")
// through nested maps and array indices (e.g. "items.0.id").
func extractDottedPath(body map[string]any, path string) any {
	if path == "" {
		return nil
	}
	var cur any = body
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			cur = v[part]
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			cur = v[idx]
		default:
			return nil
		}
	}
	return cur
}
