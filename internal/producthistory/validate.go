package producthistory

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/martdesk/martdesk/internal/platform/httpx"
)

// MaxUploadBytes is the ingestion size ceiling.
const MaxUploadBytes = 10 << 20

// allowedMIME is the ingestion allow-list: CSV plus legacy and modern Excel.
var allowedMIME = map[string]struct{}{
	"text/csv":                 {},
	"application/csv":          {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
}

var allowedExt = map[string]struct{}{
	".csv":  {},
	".xls":  {},
	".xlsx": {},
}

// ValidateUpload checks the file against the MIME allow-list and the size
// ceiling. It runs before any network or disk activity; a rejection here
// never reaches the spool or the upstream API.
func ValidateUpload(filename, contentType string, size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", httpx.ErrValidation)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds the %dMB limit", httpx.ErrValidation, MaxUploadBytes>>20)
	}

	mime := contentType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	ext := strings.ToLower(filepath.Ext(filename))

	if _, ok := allowedMIME[mime]; ok {
		return nil
	}
	// Browsers are unreliable about spreadsheet MIME types; accept a known
	// extension when the reported type is generic.
	if mime == "" || mime == "application/octet-stream" {
		if _, ok := allowedExt[ext]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: only CSV and Excel files are accepted", httpx.ErrValidation)
}
