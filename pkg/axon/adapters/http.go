package adapters

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/toyz/axonroute/pkg/axon"
)

const defaultMultipartMemory = 32 << 20 // 32 MB

// readBody drains the request body and puts a fresh reader back so binders
// and later middleware can read it again.
func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

func cookiesOf(r *http.Request) []axon.AxonCookie {
	var cookies []axon.AxonCookie
	for _, c := range r.Cookies() {
		cookies = append(cookies, axon.CookieFromHTTP(c))
	}
	return cookies
}

// realIP prefers proxy headers over the socket address
func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i > 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

// pendingError carries a handler error back up through converted middleware
// for frameworks whose native chain has no error return.
type pendingError struct {
	err error
}

func (p *pendingError) take() error {
	if p == nil {
		return nil
	}
	err := p.err
	p.err = nil
	return err
}
