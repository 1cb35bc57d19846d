package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// Bearer returns an Authorization header carrying token.
func Bearer(token string) Header {
	return Header{
		Key:   "Authorization",
		Value: "Bearer " + token,
	}
}

// Envelope mirrors the API response wrapper with Data left raw, so tests
// can decode it into the handler's response type.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Timestamp string `json:"timestamp"`
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// ExpectData decodes the success envelope's data into out.
func ExpectData(
	t *testing.T,
	result HTTPResult,
	out any,
) {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(result.Body, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v\n%s", err, string(result.Body))
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got: %s", string(result.Body))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v\n%s", err, string(env.Data))
	}
}

// ExpectErrorCode validates a failure envelope's error code.
func ExpectErrorCode(
	t *testing.T,
	expected string,
	result HTTPResult,
) {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(result.Body, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v\n%s", err, string(result.Body))
	}
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got: %s", string(result.Body))
	}
	if env.Error.Code != expected {
		t.Fatalf("expected error code %s, got %s", expected, env.Error.Code)
	}
}

// Do performs a request and optionally decodes the JSON response
func Do(
	router http.Handler,
	method string,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	res := httptest.NewRecorder()
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	router.ServeHTTP(res, req)

	if response != nil && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			return HTTPResult{
				Code:    res.Code,
				Error:   fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String()),
				Headers: res.Header(),
				Body:    res.Body.Bytes(),
			}
		}
	}

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodGet, url, "", response, headers...)
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodPost, url, body, response, append(headers, ContentTypeJSON())...)
}

// PutJSON performs a PUT with JSON body
func PutJSON(
	router http.Handler,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodPut, url, body, response, append(headers, ContentTypeJSON())...)
}
