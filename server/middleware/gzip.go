package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// Gzip compresses the response body when the request has an Accept-Encoding: gzip header.
// Responses without a body (HEAD, 204, 304) pass through untouched.
func Gzip(h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || !acceptsGzip(r) {
			h.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Accept-Encoding")
		gz := &gzipWriter{ResponseWriter: w}
		defer gz.Close()
		h.ServeHTTP(gz, r)
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept-Encoding") {
		if strings.Contains(v, "gzip") {
			return true
		}
	}
	return false
}

// gzipWriter starts compressing once the status is known, so responses without a body (redirects with no content, 204s, 304s)
// are sent without a gzip header.
type gzipWriter struct {
	http.ResponseWriter
	zip         *gzip.Writer
	wroteHeader bool
}

func (gz *gzipWriter) WriteHeader(code int) {
	if !gz.wroteHeader {
		gz.wroteHeader = true
		if code >= 200 && code != http.StatusNoContent && code != http.StatusNotModified {
			h := gz.Header()
			h.Del("Content-Length") // now wrong
			h.Set("Content-Encoding", "gzip")
			gz.zip = gzip.NewWriter(gz.ResponseWriter)
		}
	}
	gz.ResponseWriter.WriteHeader(code)
}

func (gz *gzipWriter) Write(p []byte) (int, error) {
	if !gz.wroteHeader {
		gz.WriteHeader(http.StatusOK)
	}
	if gz.zip == nil {
		return gz.ResponseWriter.Write(p)
	}
	return gz.zip.Write(p)
}

func (gz *gzipWriter) Close() error {
	if gz.zip == nil {
		return nil
	}
	return gz.zip.Close()
}
