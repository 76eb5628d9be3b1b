package export

import (
	"bytes"
	"encoding/json"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
)

const jsonIndent = "  "

func encodeJSON(records []report.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte(newline)), nil
}
