package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Asset captures a stored object attached to a document slot. A nil *Asset
// column means the slot is empty.
type Asset struct {
	Key             string     `json:"key"`
	URL             string     `json:"url"`
	FileName        string     `json:"file_name,omitempty"`
	MimeType        string     `json:"mime_type,omitempty"`
	SizeBytes       int64      `json:"size_bytes,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	BitrateKbps     *int       `json:"bitrate_kbps,omitempty"`
	UploadedAt      *time.Time `json:"uploaded_at,omitempty"`
}

func (a *Asset) Scan(src any) error {
	if src == nil {
		*a = Asset{}
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("Asset: unsupported Scan type %T", src)
	}
}

func (a Asset) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Present reports whether the slot holds a stored object.
func (a *Asset) Present() bool {
	return a != nil && a.Key != ""
}
