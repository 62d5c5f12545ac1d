package util

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// maxBodyBytes bounds request bodies read by DecodeJSONBody.
const maxBodyBytes = 1 << 20

// JSONResponse encodes a JSON Response object.
func JSONResponse(w http.ResponseWriter, d interface{}, statusCode int) {
	dj, err := json.Marshal(d)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s", dj)
}

// DecodeJSONBody reads and unmarshals a request body into v.
func DecodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body, err := ioutil.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err = json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "unmarshalling request body")
	}
	return nil
}

// ClientIP implements a best effort algorithm to return the real client IP, it parses
// X-Real-IP and X-Forwarded-For in order to work properly with reverse-proxies such us: nginx or haproxy.
// Use X-Forwarded-For before X-Real-Ip as nginx uses X-Real-Ip with the proxy's IP.
func ClientIP(r *http.Request) string {
	clientIP := r.Header.Get("X-Forwarded-For")
	clientIP = strings.TrimSpace(strings.Split(clientIP, ",")[0])
	if clientIP == "" {
		clientIP = strings.TrimSpace(r.Header.Get("X-Real-Ip"))
	}
	if clientIP != "" {
		return clientIP
	}
	return RemoteIP(r)
}

// RemoteIP returns the host part of the request's remote address, ignoring
// forwarding headers.
func RemoteIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return ip
	}
	return r.RemoteAddr
}
