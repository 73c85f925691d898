package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{code: 200, want: false},
		{code: 400, want: false},
		{code: 404, want: false},
		{code: 408, want: true},
		{code: 429, want: true},
		{code: 500, want: true},
		{code: 503, want: true},
		{code: 599, want: true},
		{code: 600, want: false},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Errorf("IsRetryableHTTPStatus(%d)=%v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "context_canceled", err: context.Canceled, want: false},
		{name: "deadline_exceeded", err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded), want: false},
		{name: "network_timeout", err: timeoutErr{}, want: true},
		{name: "server_error", err: &statusErr{code: 502}, want: true},
		{name: "client_error", err: &statusErr{code: 401}, want: false},
		{name: "plain_error", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Fatalf("IsRetryableError=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestRetryAfterDuration(t *testing.T) {
	withHeader := func(v string) *http.Response {
		h := http.Header{}
		h.Set("Retry-After", v)
		return &http.Response{Header: h}
	}

	cases := []struct {
		name     string
		resp     *http.Response
		fallback time.Duration
		max      time.Duration
		want     time.Duration
	}{
		{name: "nil_response", resp: nil, fallback: time.Second, max: time.Minute, want: time.Second},
		{name: "header_honored", resp: withHeader("3"), fallback: time.Second, max: time.Minute, want: 3 * time.Second},
		{name: "header_capped", resp: withHeader("120"), fallback: time.Second, max: 10 * time.Second, want: 10 * time.Second},
		{name: "garbage_header", resp: withHeader("soon"), fallback: time.Second, max: time.Minute, want: time.Second},
		{name: "no_cap", resp: withHeader("5"), fallback: time.Second, max: 0, want: 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RetryAfterDuration(tc.resp, tc.fallback, tc.max); got != tc.want {
				t.Fatalf("RetryAfterDuration=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestJitterSleepBounds(t *testing.T) {
	if got := JitterSleep(0); got != 0 {
		t.Fatalf("JitterSleep(0)=%v, want 0", got)
	}
	base := 2 * time.Second
	low := time.Duration(float64(base) * 0.8)
	high := time.Duration(float64(base) * 1.2)
	for i := 0; i < 100; i++ {
		got := JitterSleep(base)
		if got < low-time.Millisecond || got > high+time.Millisecond {
			t.Fatalf("JitterSleep(%v)=%v, outside [%v, %v]", base, got, low, high)
		}
	}
}
