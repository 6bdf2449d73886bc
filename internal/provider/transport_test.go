package provider_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

type capture struct {
	method string
	path   string
	body   []byte
}

type fakeTransport struct {
	respStatus int
	respBody   []byte
	captured   *capture
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if f.captured != nil {
		f.captured.method = req.Method
		f.captured.path = req.URL.Path
		f.captured.body = b
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func decodeBody(t *testing.T, c *capture) map[string]any {
	t.Helper()
	if c.body == nil {
		t.Fatal("no request captured")
	}
	var body map[string]any
	if err := json.Unmarshal(c.body, &body); err != nil {
		t.Fatalf("unmarshal body: %v\nbody=%s", err, string(c.body))
	}
	return body
}
