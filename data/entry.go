package data

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry represents the normalized metadata of one addressable object.
// It is returned by stat and list and never mutated after construction.
type Entry struct {
	// Key is the normalized path within the backend.
	Key string `json:"key"`

	// Size in bytes (0 for directory markers)
	Size int64 `json:"size"`

	// ModifyTime is zero when the backend doesn't track it.
	ModifyTime time.Time `json:"modify_time,omitzero"`

	// Content MIME type
	ContentType string `json:"content_type,omitempty"`

	ETag string `json:"etag,omitempty"`

	IsDir bool `json:"is_dir,omitempty"`
}

// NewEntry creates an entry for a regular object.
func NewEntry(key string, size int64) *Entry {
	return &Entry{
		Key:        key,
		Size:       size,
		ModifyTime: time.Now(),
	}
}

// NewDirEntry creates an entry for a directory marker.
// The key is forced to carry a trailing slash.
func NewDirEntry(key string) *Entry {
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}

	return &Entry{
		Key:        key,
		ModifyTime: time.Now(),
		IsDir:      true,
	}
}

// Marshal provides JSON serialization for Entry.
func (e *Entry) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal provides JSON deserialization for Entry.
func (e *Entry) Unmarshal(data []byte) error {
	return json.Unmarshal(data, &e)
}
