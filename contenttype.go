package filebridge

import (
	"encoding/base64"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Common MIME types
const (
	MIMETypeTextPlain       = "text/plain"
	MIMETypeTextHTML        = "text/html"
	MIMETypeTextCSS         = "text/css"
	MIMETypeTextJavaScript  = "text/javascript"
	MIMETypeApplicationJSON = "application/json"
	MIMETypeApplicationXML  = "application/xml"
	MIMETypeImageJPEG       = "image/jpeg"
	MIMETypeImagePNG        = "image/png"
	MIMETypeImageGIF        = "image/gif"
	MIMETypeImageSVG        = "image/svg+xml"
	MIMETypeAudioMP3        = "audio/mpeg"
	MIMETypeVideoMP4        = "video/mp4"
	MIMETypeApplicationPDF  = "application/pdf"
	MIMETypeApplicationZip  = "application/zip"
	MIMETypeOctetStream     = "application/octet-stream"
)

// Common file extensions to MIME types mapping
var extensionToMIME = map[string]string{
	".txt":  MIMETypeTextPlain,
	".html": MIMETypeTextHTML,
	".htm":  MIMETypeTextHTML,
	".css":  MIMETypeTextCSS,
	".js":   MIMETypeTextJavaScript,
	".json": MIMETypeApplicationJSON,
	".xml":  MIMETypeApplicationXML,
	".jpg":  MIMETypeImageJPEG,
	".jpeg": MIMETypeImageJPEG,
	".png":  MIMETypeImagePNG,
	".gif":  MIMETypeImageGIF,
	".svg":  MIMETypeImageSVG,
	".mp3":  MIMETypeAudioMP3,
	".mp4":  MIMETypeVideoMP4,
	".pdf":  MIMETypeApplicationPDF,
	".zip":  MIMETypeApplicationZip,
	".gz":   "application/gzip",
	".csv":  "text/csv",
	".md":   "text/markdown",
}

// GuessContentType tries to determine the content type of a file from its
// path and data. Drivers use it to populate Blob.ContentType.
func GuessContentType(filePath string, data []byte) string {
	// First try to determine content type from extension
	ext := strings.ToLower(filepath.Ext(filePath))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}

	// If we can't determine from extension and we have data, detect from content
	if len(data) > 0 {
		return http.DetectContentType(data)
	}

	// As a last resort, use the standard library's mime package
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	return MIMETypeOctetStream
}

// EncodeDataURL builds the data URI representation readers produce for
// ReadAsDataURL.
func EncodeDataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = MIMETypeOctetStream
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsTextFile returns true if the file is a text file based on its MIME type
func IsTextFile(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		contentType == MIMETypeApplicationJSON ||
		contentType == MIMETypeApplicationXML ||
		contentType == "application/javascript"
}
