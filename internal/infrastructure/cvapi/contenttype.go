package cvapi

import (
	"path/filepath"
	"strings"
)

const fallbackContentType = "application/octet-stream"

var extensionContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// ResolveContentType picks the MIME type sent on initiate: explicit
// type first, then the extension table, then the generic binary type.
func ResolveContentType(filename, explicit string) string {
	if ct := strings.TrimSpace(explicit); ct != "" {
		return ct
	}
	if ct, ok := extensionContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return fallbackContentType
}
