package client

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// acceptedEncodings is what we offer upstream when the caller did not set
// an Accept-Encoding of their own.
const acceptedEncodings = "gzip, br, zstd"

// compressionTransport negotiates compressed transfers and transparently
// decodes gzip, brotli, and zstd response bodies. EPG hosts routinely serve
// multi-megabyte XML, so asking for compression pays off even for feeds
// that are stored uncompressed on their side.
type compressionTransport struct {
	transport http.RoundTripper
}

// newCompressionTransport wraps base, or http.DefaultTransport when nil.
func newCompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &compressionTransport{transport: base}
}

// decoders maps a Content-Encoding token to a wrapper that decodes the
// response body. Encodings missing from this table pass through untouched.
var decoders = map[string]func(io.ReadCloser) (io.ReadCloser, error){
	"gzip": func(body io.ReadCloser) (io.ReadCloser, error) {
		return gzip.NewReader(body)
	},
	"br": func(body io.ReadCloser) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(body)), nil
	},
	"zstd": func(body io.ReadCloser) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
}

func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = cloneRequest(req)
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptedEncodings)
	}

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// HEAD, 204, and 304 responses carry no body to decode.
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	decode, ok := decoders[outerEncoding(resp.Header.Get("Content-Encoding"))]
	if !ok {
		// Identity, or an encoding we do not speak.
		return resp, nil
	}

	decoded, err := decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	resp.Body = &drainCloser{decoded: decoded, raw: resp.Body}
	// The decoded body no longer matches these headers.
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1

	return resp, nil
}

// drainCloser reads from the decoder and closes both it and the raw
// network body.
type drainCloser struct {
	decoded io.ReadCloser
	raw     io.ReadCloser
}

func (d *drainCloser) Read(p []byte) (int, error) {
	return d.decoded.Read(p)
}

func (d *drainCloser) Close() error {
	decodedErr := d.decoded.Close()
	rawErr := d.raw.Close()
	if decodedErr != nil {
		return decodedErr
	}
	return rawErr
}

// cloneRequest copies req shallowly with its own header map, so the
// Accept-Encoding default never leaks into the caller's request.
func cloneRequest(req *http.Request) *http.Request {
	clone := new(http.Request)
	*clone = *req
	clone.Header = req.Header.Clone()
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	return clone
}

// outerEncoding returns the last token of a Content-Encoding header, the
// encoding applied last and therefore the one to undo first. The token is
// lower-cased; an empty or blank header yields "".
func outerEncoding(header string) string {
	parts := strings.Split(header, ",")
	return strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
}
