package delivery

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
)

// Compile-time check to verify implements interface.
var _ Deliverer = (*Attachment)(nil)

// Attachment sends the file as a download in an HTTP response.
type Attachment struct {
	w http.ResponseWriter
}

func NewAttachment(w http.ResponseWriter) *Attachment {
	return &Attachment{w: w}
}

func (a *Attachment) Backend() Backend { return BackendAttachment }

func (a *Attachment) Deliver(_ context.Context, name, mimeType string, data []byte) (string, error) {
	h := a.w.Header()
	h.Set("Content-Type", mimeType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	a.w.WriteHeader(http.StatusOK)
	if _, err := a.w.Write(data); err != nil {
		return "", deliveryError(name, a.Backend(), fmt.Errorf("write response: %w", err))
	}
	return name, nil
}
