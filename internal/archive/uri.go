package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectName builds the object path for a report archived at the given time:
// reports/<farm_id>/<yyyy>/<mm>/<dd>/<uuid>.json
func ObjectName(farmID int64, at time.Time) string {
	return fmt.Sprintf("reports/%d/%s/%s.json", farmID, at.UTC().Format("2006/01/02"), uuid.New().String())
}

// URI formats a gs:// URI.
func URI(bucketName, objectName string) string {
	return "gs://" + bucketName + "/" + objectName
}

// ParseURI splits a gs://bucket/path URI into bucket and object name.
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}
