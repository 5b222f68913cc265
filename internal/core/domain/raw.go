package domain

// RawDocument represents opaque bytes fetched by a connector for a
// single enumerated document. It is the input to normalisation.
type RawDocument struct {
	// SourceDocument identifies what was fetched.
	SourceDocument

	// Content is the raw bytes.
	Content []byte
}

// WatchEventType classifies a filesystem or source change notification.
type WatchEventType int

const (
	// WatchChanged indicates content was created or modified.
	WatchChanged WatchEventType = iota

	// WatchRemoved indicates content was removed.
	WatchRemoved
)

// WatchEvent is a change notification from a watch-capable connector.
// Events are advisory triggers for a new run; the run itself always
// re-enumerates, so a missed or duplicated event costs nothing.
type WatchEvent struct {
	// Type is the kind of change.
	Type WatchEventType

	// SourceID links to the Source the event belongs to.
	SourceID string

	// Path is the affected path, when known.
	Path string
}
