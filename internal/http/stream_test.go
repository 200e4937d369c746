package handlers_test

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// serve runs the harness app on a real listener; app.Test cannot read a
// response body that never ends.
func serve(t *testing.T, h *harness) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = h.app.Listener(ln) }()
	t.Cleanup(func() { _ = h.app.ShutdownWithTimeout(2 * time.Second) })
	return "http://" + ln.Addr().String()
}

// lines feeds the stream line by line until it closes.
func lines(resp *http.Response) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

func waitFor(t *testing.T, in <-chan string, match func(string) bool) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case l, ok := <-in:
			require.True(t, ok, "stream closed early")
			if match(l) {
				return l
			}
		case <-deadline:
			t.Fatal("timed out reading the stream")
			return ""
		}
	}
}

func TestMessageStreamDeliversCounterpartMessages(t *testing.T) {
	h := newHarness(t)
	id := checkout(t, h)
	base := serve(t, h)

	req, err := http.NewRequest("GET", base+"/api/orders/"+id+"/messages/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer buyer-token")
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	in := lines(resp)
	waitFor(t, in, func(l string) bool { return l == ": connected" })
	// idle streams are kept alive
	waitFor(t, in, func(l string) bool { return l == ": ping" })

	sent, m := h.call(t, "POST", "/api/orders/"+id+"/messages", "seller", map[string]string{"body": "Headcover is included."})
	require.Equal(t, http.StatusCreated, sent.StatusCode)

	waitFor(t, in, func(l string) bool { return l == "event: message" })
	data := waitFor(t, in, func(l string) bool { return strings.HasPrefix(l, "data: ") })
	got := gjson.Parse(strings.TrimPrefix(data, "data: "))
	assert.Equal(t, m.Get("id").String(), got.Get("id").String())
	assert.Equal(t, "Headcover is included.", got.Get("body").String())
}

func TestMessageStreamHiddenFromStrangers(t *testing.T) {
	h := newHarness(t)
	id := checkout(t, h)

	resp, _ := h.call(t, "GET", "/api/orders/"+id+"/messages/stream", "stranger", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.call(t, "GET", "/api/orders/"+id+"/messages/stream", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
