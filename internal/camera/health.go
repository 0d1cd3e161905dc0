package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ProbeTimeout bounds the reachability probe; it is a liveness check, not a
// functional one, and must stay cheaper than a capture.
const ProbeTimeout = 5 * time.Second

// ProbeResult is the outcome of a reachability probe.
type ProbeResult struct {
	OK      bool
	Code    string
	Message string
}

// Probe checks that the camera answers at all without downloading a full
// image: HEAD first, and when the camera rejects HEAD (405/501) a GET that
// reads at most 1KB to confirm the endpoint streams data.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	if c.cfg.URL == "" {
		return ProbeResult{OK: false, Code: "no_url", Message: "No camera URL configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodHead)
	if err != nil {
		return ProbeResult{OK: false, Code: "exception", Message: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ProbeResult{OK: false, Code: classifyProbeError(err), Message: err.Error()}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		req, err = c.newRequest(ctx, http.MethodGet)
		if err != nil {
			return ProbeResult{OK: false, Code: "exception", Message: err.Error()}
		}
		resp, err = c.http.Do(req)
		if err != nil {
			return ProbeResult{OK: false, Code: classifyProbeError(err), Message: err.Error()}
		}
		// One bounded read is enough to confirm reachability.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
	}

	code := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 400 {
		return ProbeResult{OK: true, Code: code, Message: "Camera reachable"}
	}
	return ProbeResult{OK: false, Code: code, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
}

func classifyProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return "timeout"
	}
	return "exception"
}
