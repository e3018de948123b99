package webserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prepwise/website-e2e/config"
)

const checkRequestTimeout = 2 * time.Second

// CheckReady checks once whether ws is ready. A server with an explicit URL is checked over
// HTTP; otherwise a TCP connection to its port on localhost is enough.
func CheckReady(ctx context.Context, ws config.WebServer) error {
	if ws.URL != "" {
		return CheckURL(ctx, ws.URL)
	}
	return CheckPort(ctx, ws.Port)
}

// CheckURL sends a GET to url. The server is considered ready if it answers with a 2xx
// or 3xx status, or with 400 to 403, which mean it is up but wants something from us.
func CheckURL(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, checkRequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{
		// a redirect already proves the server is answering
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode <= http.StatusForbidden {
		return nil
	}
	return fmt.Errorf("%s returned HTTP status %d", url, resp.StatusCode)
}

// CheckPort succeeds if something accepts TCP connections on localhost:port.
func CheckPort(ctx context.Context, port int) error {
	dialer := &net.Dialer{Timeout: checkRequestTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}
