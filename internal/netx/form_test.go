package netx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestPostForm(t *testing.T) {
	form := url.Values{"To": {"+15550001111"}, "Body": {"hello"}}

	t.Run("success 201", func(t *testing.T) {
		var gotForm url.Values
		var gotCT, gotMethod, gotUser, gotPass string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotUser, gotPass, _ = r.BasicAuth()
			_ = r.ParseForm()
			gotForm = r.PostForm
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"sid":"SM1"}`)
		}))
		defer ts.Close()

		body, err := PostForm(context.Background(), ts.Client(), ts.URL+"/Messages.json", "AC1", "token", form)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"sid":"SM1"}` {
			t.Fatalf("body = %q", string(body))
		}
		if gotMethod != http.MethodPost {
			t.Fatalf("method = %q, want POST", gotMethod)
		}
		if gotCT != "application/x-www-form-urlencoded" {
			t.Fatalf("Content-Type = %q", gotCT)
		}
		if gotUser != "AC1" || gotPass != "token" {
			t.Fatalf("basic auth = %q/%q", gotUser, gotPass)
		}
		if gotForm.Get("To") != "+15550001111" || gotForm.Get("Body") != "hello" {
			t.Fatalf("form = %v", gotForm)
		}
	})

	t.Run("non-2xx -> StatusError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "denied")
		}))
		defer ts.Close()

		_, err := PostForm(context.Background(), nil, ts.URL, "", "", form)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusForbidden || se.Body != "denied" {
			t.Fatalf("unexpected status error: %+v", se)
		}
	})

	t.Run("bad url -> error", func(t *testing.T) {
		if _, err := PostForm(context.Background(), nil, "://bad", "", "", form); err == nil {
			t.Fatalf("expected error for bad url")
		}
	})

	t.Run("canceled context -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(50 * time.Millisecond)
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := PostForm(ctx, ts.Client(), ts.URL, "", "", form); err == nil {
			t.Fatalf("expected error for canceled context")
		}
	})
}
