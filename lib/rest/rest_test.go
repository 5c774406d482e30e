package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	var gotPath, gotQuery, gotHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Test")
		fmt.Fprint(w, "hello")
	}))
	defer ts.Close()

	c := NewClient(ts.Client()).SetRoot(ts.URL)
	resp, err := c.Call(context.Background(), &Opts{
		Method:       "GET",
		Path:         "/things",
		Parameters:   url.Values{"$top": {"3"}},
		ExtraHeaders: map[string]string{"X-Test": "yes"},
	})
	require.NoError(t, err)
	body, err := ReadBody(resp)
	require.NoError(t, err)

	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "/things", gotPath)
	assert.Equal(t, "%24top=3", gotQuery)
	assert.Equal(t, "yes", gotHeader)
}

func TestCallRootURLOverride(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "other")
	}))
	defer ts.Close()

	c := NewClient(ts.Client()).SetRoot("http://unset.invalid")
	resp, err := c.Call(context.Background(), &Opts{
		Method:  "GET",
		RootURL: ts.URL + "/absolute",
	})
	require.NoError(t, err)
	body, err := ReadBody(resp)
	require.NoError(t, err)
	assert.Equal(t, "other", string(body))
}

func TestCallNoRootURL(t *testing.T) {
	c := NewClient(http.DefaultClient)
	_, err := c.Call(context.Background(), &Opts{Method: "GET"})
	assert.Error(t, err)
}

func TestCallErrorHandler(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(ts.Client()).SetRoot(ts.URL)
	c.SetErrorHandler(func(resp *http.Response) error {
		defer func() { _ = resp.Body.Close() }()
		return fmt.Errorf("remote said %d", resp.StatusCode)
	})
	resp, err := c.Call(context.Background(), &Opts{Method: "GET", Path: "/"})
	require.Error(t, err)
	assert.EqualError(t, err, "remote said 502")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCallIgnoreStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"status":"inProgress"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.Client()).SetRoot(ts.URL)
	resp, err := c.Call(context.Background(), &Opts{Method: "GET", Path: "/", IgnoreStatus: true})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestCallJSON(t *testing.T) {
	type in struct {
		Name string `json:"name"`
	}
	type out struct {
		ID string `json:"id"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"docs"}`, string(body))
		fmt.Fprint(w, `{"id":"abc123"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.Client()).SetRoot(ts.URL)
	var result out
	_, err := c.CallJSON(context.Background(), &Opts{Method: "POST", Path: "/children"}, &in{Name: "docs"}, &result)
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.ID)
}

func TestCallContentRangeAndLength(t *testing.T) {
	var gotRange string
	var gotLength int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Content-Range")
		gotLength = r.ContentLength
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	length := int64(5)
	c := NewClient(ts.Client()).SetRoot(ts.URL)
	resp, err := c.Call(context.Background(), &Opts{
		Method:        "PUT",
		Path:          "/upload",
		Body:          strings.NewReader("01234"),
		ContentLength: &length,
		ContentRange:  "bytes 0-4/10",
		NoResponse:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "bytes 0-4/10", gotRange)
	assert.Equal(t, int64(5), gotLength)
}

func TestCallZeroContentLength(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(0), r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	zero := int64(0)
	c := NewClient(ts.Client()).SetRoot(ts.URL)
	resp, err := c.Call(context.Background(), &Opts{
		Method:        "PUT",
		Path:          "/empty",
		Body:          strings.NewReader(""),
		ContentLength: &zero,
		NoResponse:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDefaultHeaders(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	c := NewClient(ts.Client()).SetRoot(ts.URL).SetHeader("Authorization", "Bearer tok")
	_, err := c.Call(context.Background(), &Opts{Method: "GET", Path: "/", NoResponse: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got)

	c.RemoveHeader("Authorization")
	_, err = c.Call(context.Background(), &Opts{Method: "GET", Path: "/", NoResponse: true})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestOptsCopy(t *testing.T) {
	orig := &Opts{Method: "GET", Path: "/a"}
	dup := orig.Copy()
	dup.Path = "/b"
	assert.Equal(t, "/a", orig.Path)
}
