package camera

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/icholy/digest"

	"chronocam/internal/config"
)

// Client talks to one camera endpoint. Rebuilt on every scheduler start so
// a config reload can swap URL and credentials wholesale.
type Client struct {
	cfg  config.CameraConfig
	http *http.Client
}

const defaultUserAgent = "ChronoCam/1.0"

func NewClient(cfg config.CameraConfig) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second, // TCP connect timeout
			KeepAlive: 30 * time.Second,
		}).DialContext,

		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.AuthType == "digest" {
		rt = &digest.Transport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		}
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: roundTripperWithUA{rt: rt, userAgent: defaultUserAgent},
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.AuthType == "basic" && c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	return req, nil
}

// roundTripperWithUA injects a User-Agent into every request.
type roundTripperWithUA struct {
	rt        http.RoundTripper
	userAgent string
}

func (r roundTripperWithUA) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	return r.rt.RoundTrip(req)
}
