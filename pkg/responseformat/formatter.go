// Package responseformat encodes API responses and decodes request bodies as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/x-msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// WantsMsgPack reports whether the client asked for a MessagePack response,
// either with format=msgpack or an Accept header
func WantsMsgPack(req *http.Request) bool {
	if req.URL.Query().Get("format") == "msgpack" {
		return true
	}
	return req.Header.Get("Accept") == ContentTypeMsgPack
}

// WriteResponse writes the response in the appropriate format based on the request.
// JSON is the default format.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.WriteStatus(w, req, http.StatusOK, data, headers)
}

// WriteStatus is WriteResponse with an explicit status code
func (f *Formatter) WriteStatus(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if WantsMsgPack(req) {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

// WriteError writes {"error": msg} with the given status
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, msg string) error {
	return f.WriteStatus(w, req, status, map[string]string{"error": msg}, nil)
}

// Decode reads a request body into v. The body is MessagePack when the
// Content-Type says so and JSON otherwise.
func (f *Formatter) Decode(req *http.Request, v any) error {
	ct := req.Header.Get("Content-Type")
	if ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return fmt.Errorf("invalid Content-Type %q: %w", ct, err)
		}
		ct = mt
	}

	switch ct {
	case ContentTypeMsgPack, "application/msgpack":
		dec := msgpack.NewDecoder(req.Body)
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	case "", ContentTypeJSON:
		dec := json.NewDecoder(req.Body)
		if err := dec.Decode(v); err != nil {
			if err == io.EOF {
				return fmt.Errorf("request body is empty")
			}
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported Content-Type %q", ct)
	}
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeMsgPack)
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
