package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// maxLoggedBody caps how much of a body LogBody records.
const maxLoggedBody = 64 << 10

var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
}

type loggingRoundTripper struct {
	next   http.RoundTripper
	level  LogLevel
	logger logrus.FieldLogger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	entry := t.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.Redacted(),
	})

	reqEntry := entry
	if t.level >= LogHeaders {
		reqEntry = reqEntry.WithField("headers", redact(req.Header))
	}
	if t.level >= LogBody && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			data, _ := io.ReadAll(io.LimitReader(body, maxLoggedBody))
			_ = body.Close()
			reqEntry = reqEntry.WithField("body", string(data))
		}
	}
	reqEntry.Info("--> request")

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		entry.WithError(err).WithField("took", elapsed).Warn("<-- failed")
		return nil, err
	}

	respEntry := entry.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"took":   elapsed,
	})
	if t.level >= LogHeaders {
		respEntry = respEntry.WithField("headers", redact(resp.Header))
	}
	if t.level >= LogBody && resp.Body != nil {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		respEntry = respEntry.WithField("body", string(data))
		resp.Body = &replayBody{
			Reader: io.MultiReader(bytes.NewReader(data), errReader(readErr, resp.Body)),
			Closer: resp.Body,
		}
	}
	respEntry.Info("<-- response")

	return resp, nil
}

// replayBody serves the already-logged prefix before the rest of the
// original body.
type replayBody struct {
	io.Reader
	io.Closer
}

func errReader(err error, rest io.Reader) io.Reader {
	if err != nil {
		return &failingReader{err: err}
	}
	return rest
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func redact(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if redactedHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = "REDACTED"
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

type userAgentRoundTripper struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
