// Package attachment encodes user-supplied evidence files for the
// conversation log and for display.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes caps attachment size at 2 MiB unless configured otherwise.
const DefaultMaxBytes = 2 << 20

// ErrTooLarge reports an attachment over the configured size cap.
var ErrTooLarge = errors.New("attachment exceeds maximum size")

// ReadError reports a failure reading the attachment source. Encoding aborts
// before any session state is touched.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading attachment %q: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Attachment is an encoded evidence file ready to be placed in a user turn.
type Attachment struct {
	Name     string
	MIMEType string
	Data     string // base64
}

// Encode reads the attachment source and returns its base64 encoding.
// declaredType wins when set; otherwise the content is sniffed, with an
// extension lookup as the final fallback. maxBytes <= 0 applies
// DefaultMaxBytes.
func Encode(name, declaredType string, r io.Reader, maxBytes int64) (*Attachment, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %q is over %d bytes", ErrTooLarge, name, maxBytes)
	}
	if len(data) == 0 {
		return nil, &ReadError{Name: name, Err: errors.New("empty file")}
	}

	mimeType := declaredType
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			mimeType = byExt
		}
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &Attachment{
		Name:     name,
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// DataURI renders the attachment as a data URI for inline display.
func (a *Attachment) DataURI() string {
	return DataURI(a.MIMEType, a.Data)
}

// DataURI builds a data URI from an already-encoded payload.
func DataURI(mimeType, base64Data string) string {
	return "data:" + mimeType + ";base64," + base64Data
}

// Displayable reports whether a media type can be rendered inline. Anything
// outside image/* and video/* gets an unsupported-attachment placeholder.
func Displayable(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}
