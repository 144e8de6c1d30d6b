// File: internal/model/transport.go
package model

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decompressTransport negotiates br/gzip/deflate on outgoing provider
// requests and transparently unwraps the response body. Some OpenAI-wire
// gateways compress aggressively and the SDKs only handle gzip on their own.
type decompressTransport struct {
	base http.RoundTripper
}

// newDecompressTransport wraps base, defaulting to http.DefaultTransport.
func newDecompressTransport(base http.RoundTripper) *decompressTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &decompressTransport{base: base}
}

func (t *decompressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "br, gzip, deflate, identity")
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}
	return resp, nil
}

// decodeBody unwraps every Content-Encoding layer, innermost last, and
// rewrites the response headers to reflect the decoded stream.
func decodeBody(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	for i := len(encodings) - 1; i >= 0; i-- {
		encoding := strings.ToLower(strings.TrimSpace(encodings[i]))

		var layer io.ReadCloser
		switch encoding {
		case "gzip":
			zr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return fmt.Errorf("gzip layer: %w", err)
			}
			layer = zr
		case "deflate":
			layer = newDeflateReader(resp.Body)
		case "br":
			layer = io.NopCloser(brotli.NewReader(resp.Body))
		case "identity", "":
			continue
		default:
			return fmt.Errorf("unsupported Content-Encoding layer %q", encoding)
		}

		resp.Body = &layeredBody{ReadCloser: layer, inner: resp.Body}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// newDeflateReader decodes a deflate body, accepting both zlib-wrapped and
// raw streams. The header bytes consumed by a failed zlib probe are replayed
// before falling back to raw deflate.
func newDeflateReader(body io.Reader) io.ReadCloser {
	var probe bytes.Buffer
	tee := io.TeeReader(body, &probe)

	zr, err := zlib.NewReader(tee)
	if err == nil {
		return zr
	}
	replay := io.MultiReader(bytes.NewReader(probe.Bytes()), body)
	return flate.NewReader(replay)
}

// layeredBody closes both the decoder and the stream underneath it.
type layeredBody struct {
	io.ReadCloser
	inner io.ReadCloser
}

func (b *layeredBody) Close() error {
	return errors.Join(b.ReadCloser.Close(), b.inner.Close())
}

// providerHTTPClient is the shared HTTP client handed to every provider SDK.
func providerHTTPClient() *http.Client {
	return &http.Client{Transport: newDecompressTransport(nil)}
}
