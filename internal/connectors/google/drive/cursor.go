package drive

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// CursorVersion is the current cursor wire format. Decoding rejects
// cursors from a newer build rather than misreading them.
const CursorVersion = 1

// ErrInvalidCursor indicates a cursor that could not be decoded. The
// caller should treat the source as having no cursor and enumerate
// from scratch.
var ErrInvalidCursor = errors.New("invalid drive cursor")

// Cursor carries the changes-feed position between runs. The root
// folder ID binds the token to the folder it was issued for, so a
// reconfigured source does not resume from another folder's feed.
type Cursor struct {
	Version        int    `json:"v"`
	RootFolderID   string `json:"root_folder_id"`
	StartPageToken string `json:"start_page_token"`
}

// Encode serialises the cursor to an opaque string for storage.
func (c Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// IsEmpty reports whether the cursor holds no feed position.
func (c Cursor) IsEmpty() bool {
	return c.StartPageToken == ""
}

// DecodeCursor parses a stored cursor string. An empty string decodes
// to an empty cursor.
func DecodeCursor(raw string) (Cursor, error) {
	if raw == "" {
		return Cursor{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Version > CursorVersion {
		return Cursor{}, fmt.Errorf("%w: version %d is newer than supported %d", ErrInvalidCursor, c.Version, CursorVersion)
	}
	return c, nil
}
