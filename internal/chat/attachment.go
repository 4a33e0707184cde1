package chat

import (
	"fmt"
	"strings"
)

// DefaultMaxFileBytes is the upload ceiling applied when none is configured.
const DefaultMaxFileBytes int64 = 10 * 1024 * 1024

// File is a candidate attachment selected by the user.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

type RejectReason string

const (
	ReasonUnsupportedType RejectReason = "unsupported-type"
	ReasonTooLarge        RejectReason = "too-large"
)

// Rejection explains why a file could not be staged.
type Rejection struct {
	Reason   RejectReason
	Allowed  string
	MaxBytes int64
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("file too large: max %d bytes", r.MaxBytes)
	default:
		return fmt.Sprintf("unsupported file type: allowed %s", r.Allowed)
	}
}

// Title is the user-facing headline for the rejection notification.
func (r *Rejection) Title() string {
	if r.Reason == ReasonTooLarge {
		return "Dosya Çok Büyük"
	}
	return "Dosya Türü Desteklenmiyor"
}

// Description is the user-facing detail for the rejection notification.
func (r *Rejection) Description() string {
	if r.Reason == ReasonTooLarge {
		return fmt.Sprintf("Dosya boyutu %s'dan küçük olmalıdır.", formatSizeLimit(r.MaxBytes))
	}
	return "İzin verilen türler: " + r.Allowed
}

// Validate decides whether f may be staged. allowedPatterns is a
// comma-separated list of exact MIME types or "type/*" wildcards; an empty
// list allows everything. Oversized files are always rejected as too large.
func Validate(f File, allowedPatterns string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	if f.Size > maxBytes {
		return &Rejection{Reason: ReasonTooLarge, Allowed: allowedPatterns, MaxBytes: maxBytes}
	}
	if !MimeAllowed(f.MimeType, allowedPatterns) {
		return &Rejection{Reason: ReasonUnsupportedType, Allowed: allowedPatterns, MaxBytes: maxBytes}
	}
	return nil
}

// MimeAllowed reports whether mimeType matches one of allowedPatterns.
func MimeAllowed(mimeType, allowedPatterns string) bool {
	if strings.TrimSpace(allowedPatterns) == "" {
		return true
	}
	for _, pattern := range strings.Split(allowedPatterns, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if strings.HasPrefix(mimeType, prefix+"/") {
				return true
			}
			continue
		}
		if mimeType == pattern {
			return true
		}
	}
	return false
}

// formatSizeLimit renders a byte ceiling in MB, or in KB below one MiB.
func formatSizeLimit(n int64) string {
	const kib, mib = 1024, 1024 * 1024
	switch {
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	case n >= mib:
		return fmt.Sprintf("%.1fMB", float64(n)/mib)
	case n%kib == 0:
		return fmt.Sprintf("%dKB", n/kib)
	default:
		return fmt.Sprintf("%.1fKB", float64(n)/kib)
	}
}
