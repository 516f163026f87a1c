// Package httpexec implements the request execution engine (C3): it merges
// a RequestTemplate, optional Dataset, optional Environment and the
// current runtime variables into a concrete HTTP request, renders every
// templated field, executes it, and reports a structured result.
//
// No third-party HTTP client library in the example pack is exercised as
// an outbound client in real application code (valyala/fasthttp appears
// only as an indirect web-framework dependency of another example repo,
// never imported to drive outbound calls), so this engine is built
// directly on net/http, matching how the teacher itself treats outbound
// HTTP concerns — its own otelhttp/httpsnoop dependencies are indirect
// tracing shims pulled in by gin, never imported directly either.
package httpexec

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/merge"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/render"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/version"
)

// Input is everything the engine needs to execute one (template, dataset)
// pairing.
type Input struct {
	Template         *models.RequestTemplate
	Dataset          *models.Dataset
	Environment      *models.Environment
	RuntimeVariables map[string]dynval.Value
}

// Result is the outcome of one execution, matching the response fields
// persisted on a RequestRun.
type Result struct {
	DatasetSnapshot    map[string]any
	RequestSnapshot    map[string]any
	ResponseStatusCode *int
	ResponseHeaders    map[string]any
	ResponseBody       *string
	ResponseTimeMS     *int
	IsSuccess          bool
	ErrorMessage       *string
}

// Engine executes requests with shared client defaults; one Engine is
// reused across runs.
type Engine struct {
	MaxResponseBytes int
	MaxRedirects     int
}

// New returns an Engine using the given response-size cap and redirect
// limit (both come from HTTPClientConfig).
func New(maxResponseBytes, maxRedirects int) *Engine {
	return &Engine{MaxResponseBytes: maxResponseBytes, MaxRedirects: maxRedirects}
}

// Execute renders and performs the HTTP call described by in, returning a
// Result that never carries a Go error for transport failures — those are
// reported via IsSuccess=false / ErrorMessage, per the component contract.
func (e *Engine) Execute(ctx context.Context, in Input) *Result {
	variables := e.mergedVariables(in)
	snapshot := e.buildSnapshot(in, variables)

	timeoutMS := in.Template.TimeoutMS
	timeout := time.Duration(timeoutMS) * time.Millisecond
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := buildHTTPRequest(reqCtx, snapshot)
	if err != nil {
		errMsg := err.Error()
		return &Result{
			DatasetSnapshot: buildDatasetSnapshot(in.Dataset),
			RequestSnapshot: snapshot,
			ResponseHeaders: map[string]any{},
			ErrorMessage:    &errMsg,
		}
	}

	client := e.clientFor(in.Template)

	start := time.Now()
	resp, err := client.Do(req)
	elapsedMS := int(time.Since(start).Milliseconds())
	if err != nil {
		errMsg := err.Error()
		return &Result{
			DatasetSnapshot: buildDatasetSnapshot(in.Dataset),
			RequestSnapshot: snapshot,
			ResponseHeaders: map[string]any{},
			ResponseTimeMS:  &elapsedMS,
			ErrorMessage:    &errMsg,
		}
	}
	defer resp.Body.Close()

	body, statusCode, headers := e.readResponse(resp)

	isSuccess := statusCode >= 200 && statusCode < 300
	return &Result{
		DatasetSnapshot:    buildDatasetSnapshot(in.Dataset),
		RequestSnapshot:    snapshot,
		ResponseStatusCode: &statusCode,
		ResponseHeaders:    headers,
		ResponseBody:       &body,
		ResponseTimeMS:     &elapsedMS,
		IsSuccess:          isSuccess,
	}
}

// mergedVariables implements Env ⊕ Dataset ⊕ Runtime.
func (e *Engine) mergedVariables(in Input) map[string]dynval.Value {
	envVars := map[string]dynval.Value{}
	if in.Environment != nil {
		envVars = toValueMap(in.Environment.Variables)
	}
	datasetVars := map[string]dynval.Value{}
	if in.Dataset != nil {
		datasetVars = toValueMap(in.Dataset.Variables)
	}
	merged := merge.Maps(envVars, datasetVars)
	merged = merge.Maps(merged, in.RuntimeVariables)
	return merged
}

// buildSnapshot merges the field layers, renders them, and returns the
// request_snapshot map persisted on the RequestRun.
func (e *Engine) buildSnapshot(in Input, variables map[string]dynval.Value) map[string]any {
	tmpl := in.Template
	ds := in.Dataset

	var datasetHeaders, datasetQuery, datasetCookies map[string]string
	var datasetBodyData map[string]any
	var datasetBodyType *string
	var datasetBodyRaw *string
	var datasetID *int64
	if ds != nil {
		datasetHeaders, datasetQuery, datasetCookies = ds.Headers, ds.QueryParams, ds.Cookies
		datasetBodyData = ds.BodyData
		datasetBodyType = ds.BodyType
		datasetBodyRaw = ds.BodyRaw
		id := ds.ID
		datasetID = &id
	}

	headers := merge.StringMaps(tmpl.BaseHeaders, datasetHeaders)
	query := merge.StringMaps(tmpl.BaseQueryParams, datasetQuery)
	cookies := merge.StringMaps(tmpl.BaseCookies, datasetCookies)
	bodyData := merge.Maps(toValueMap(tmpl.BaseBodyData), toValueMap(datasetBodyData))

	bodyType := tmpl.BodyType
	if datasetBodyType != nil && *datasetBodyType != "" {
		bodyType = *datasetBodyType
	}

	var bodyRaw *string
	if tmpl.BaseBodyRaw != nil {
		v := *tmpl.BaseBodyRaw
		bodyRaw = &v
	}
	if datasetBodyRaw != nil {
		v := *datasetBodyRaw
		bodyRaw = &v
	}

	method := strings.ToUpper(tmpl.Method)
	if method == "" {
		method = models.MethodGET
	}

	renderedURL := render.String(tmpl.URL, variables).Str()
	renderedHeaders := render.StringMap(headers, variables)
	renderedQuery := render.StringMap(query, variables)
	renderedCookies := render.StringMap(cookies, variables)
	renderedBodyData := render.Value(dynval.Map(bodyData), variables)
	renderedProxyURL := render.String(tmpl.ProxyURL, variables).Str()

	var renderedBodyRaw *string
	if bodyRaw != nil {
		v := render.String(*bodyRaw, variables).Str()
		renderedBodyRaw = &v
	}

	var envID *int64
	if in.Environment != nil {
		id := in.Environment.ID
		envID = &id
	} else {
		envID = tmpl.EnvID
	}

	return map[string]any{
		"request_id":       tmpl.ID,
		"env_id":           envID,
		"dataset_id":       datasetID,
		"method":           method,
		"url":              renderedURL,
		"query_params":     renderedQuery,
		"headers":          renderedHeaders,
		"cookies":          renderedCookies,
		"body_type":        bodyType,
		"body_data":        renderedBodyData.ToAny(),
		"body_raw":         renderedBodyRaw,
		"timeout_ms":       tmpl.TimeoutMS,
		"follow_redirects": tmpl.FollowRedirects,
		"verify_ssl":       tmpl.VerifySSL,
		"proxy_url":        renderedProxyURL,
		"variables":        dynval.Map(variables).ToAny(),
	}
}

func buildDatasetSnapshot(ds *models.Dataset) map[string]any {
	if ds == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":           ds.ID,
		"request_id":   ds.RequestID,
		"name":         ds.Name,
		"variables":    ds.Variables,
		"query_params": ds.QueryParams,
		"headers":      ds.Headers,
		"cookies":      ds.Cookies,
		"body_type":    ds.BodyType,
		"body_data":    ds.BodyData,
		"body_raw":     ds.BodyRaw,
		"expected":     ds.Expected,
	}
}

func toValueMap(m map[string]any) map[string]dynval.Value {
	if m == nil {
		return map[string]dynval.Value{}
	}
	return dynval.FromAny(m).Map()
}

// buildHTTPRequest materializes an *http.Request from a rendered snapshot.
func buildHTTPRequest(ctx context.Context, snapshot map[string]any) (*http.Request, error) {
	method, _ := snapshot["method"].(string)
	rawURL, _ := snapshot["url"].(string)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if query, ok := snapshot["query_params"].(map[string]string); ok && len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	body, contentType, err := buildBody(snapshot)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.Full())
	if headers, ok := snapshot["headers"].(map[string]string); ok {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookies, ok := snapshot["cookies"].(map[string]string); ok && len(cookies) > 0 {
		req.Header.Set("Cookie", encodeCookieHeader(cookies))
	}

	return req, nil
}

func encodeCookieHeader(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for k := range cookies {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}

// buildBody implements the per-body_type materialization rules of §4.3.
func buildBody(snapshot map[string]any) (*bytes.Reader, string, error) {
	bodyType, _ := snapshot["body_type"].(string)
	bodyData, _ := snapshot["body_data"].(map[string]any)
	var bodyRaw *string
	if v, ok := snapshot["body_raw"].(*string); ok {
		bodyRaw = v
	}

	switch bodyType {
	case models.BodyTypeNone, "":
		return bytes.NewReader(nil), "", nil

	case models.BodyTypeJSON:
		data, err := json.Marshal(bodyData)
		if err != nil {
			return nil, "", fmt.Errorf("encoding json body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil

	case models.BodyTypeFormURLEncoded, models.BodyTypeFormData:
		form := url.Values{}
		for k, v := range bodyData {
			form.Set(k, fmt.Sprintf("%v", v))
		}
		return bytes.NewReader([]byte(form.Encode())), "application/x-www-form-urlencoded", nil

	case models.BodyTypeRaw:
		if bodyRaw == nil && len(bodyData) > 0 {
			data, err := json.Marshal(bodyData)
			if err != nil {
				return nil, "", fmt.Errorf("encoding raw body: %w", err)
			}
			return bytes.NewReader(data), "", nil
		}
		if bodyRaw == nil {
			return bytes.NewReader(nil), "", nil
		}
		return bytes.NewReader([]byte(*bodyRaw)), "", nil

	case models.BodyTypeBinary:
		if bodyRaw == nil {
			return bytes.NewReader(nil), "", nil
		}
		return bytes.NewReader([]byte(*bodyRaw)), "", nil

	default:
		return bytes.NewReader(nil), "", nil
	}
}

// clientFor builds a per-request *http.Client honoring verify_ssl,
// proxy_url and follow_redirects/MaxRedirects.
func (e *Engine) clientFor(tmpl *models.RequestTemplate) *http.Client {
	transport := &http.Transport{}
	if !tmpl.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-out via verify_ssl=false
	}
	if tmpl.ProxyURL != "" {
		if proxyURL, err := url.Parse(tmpl.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}

	if !tmpl.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		maxRedirects := e.MaxRedirects
		if maxRedirects <= 0 {
			maxRedirects = 10
		}
		client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}

	return client
}

// readResponse drains and truncates the body, and builds the
// last-writer-wins header map with Set-Cookie preserved as a list when
// the response carries more than one.
func (e *Engine) readResponse(resp *http.Response) (body string, statusCode int, headers map[string]any) {
	statusCode = resp.StatusCode

	limit := e.MaxResponseBytes
	if limit <= 0 {
		limit = models.MaxResponseBodyChars
	}

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
		if len(buf) >= limit {
			break
		}
	}
	if len(buf) > limit {
		buf = buf[:limit]
	}
	body = string(buf)

	headers = map[string]any{}
	for name, values := range resp.Header {
		if len(values) == 0 {
			continue
		}
		if strings.EqualFold(name, "Set-Cookie") {
			if len(values) == 1 {
				headers[name] = values[0]
			} else {
				list := make([]any, len(values))
				for i, v := range values {
					list[i] = v
				}
				headers[name] = list
			}
			continue
		}
		headers[name] = values[len(values)-1]
	}
	return body, statusCode, headers
}
