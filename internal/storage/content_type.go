package storage

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// Content types for files this service writes. mime.TypeByExtension depends
// on the host's mime tables, so the common ones are pinned here.
var knownContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".csv":  "text/csv; charset=utf-8",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// DetectContentType determines the MIME type of an object.
//
// Detection priority:
// 1. providedType, when non-empty
// 2. the extension of key
// 3. sniffing head (up to 512 bytes), when given
// 4. application/octet-stream
func DetectContentType(providedType, key string, head []byte) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(path.Ext(key))
	if ct, ok := knownContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	if len(head) > 0 {
		return http.DetectContentType(head)
	}

	return "application/octet-stream"
}
