package drive

import (
	"fmt"
	"strings"

	drivev3 "google.golang.org/api/drive/v3"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Native Google Workspace MIME types. These documents have no byte
// content of their own and must be exported to a concrete format.
const (
	mimeFolder = "application/vnd.google-apps.folder"
	mimeDoc    = "application/vnd.google-apps.document"
	mimeSheet  = "application/vnd.google-apps.spreadsheet"
	mimeSlides = "application/vnd.google-apps.presentation"
)

// Export formats for native documents.
const (
	exportText = "text/plain"
	exportCSV  = "text/csv"
)

// MaxExportSize caps exported and downloaded content. Drive does not
// report export sizes up front, so the cap is enforced on the response
// body; a body over the cap fails the document with
// domain.ErrContentTooLarge.
const MaxExportSize = 5 << 20

// exportTarget returns the MIME type to export a file as. The second
// return is false for native types with no text export, which are
// skipped during enumeration. Regular files return an empty target
// and are downloaded as-is.
func exportTarget(mimeType string) (string, bool) {
	switch mimeType {
	case mimeDoc:
		return exportText, true
	case mimeSheet:
		return exportCSV, true
	case mimeSlides:
		return exportText, true
	}
	if strings.HasPrefix(mimeType, "application/vnd.google-apps.") {
		return "", false
	}
	return "", true
}

// contentHash derives a change-detection hash for a Drive file.
// Binary files carry an MD5 from the API; native documents do not, so
// the file ID and monotonically increasing version stand in for one.
func contentHash(file *drivev3.File) string {
	if file.Md5Checksum != "" {
		return file.Md5Checksum
	}
	return domain.HashContent([]byte(fmt.Sprintf("%s|%d", file.Id, file.Version)))
}
