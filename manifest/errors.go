package manifest

import "errors"

var (
	// ErrEmptyManifest indicates a manifest that lists no documents.
	ErrEmptyManifest = errors.New("manifest lists no documents")

	// ErrInvalidManifest indicates a manifest that is not a document list.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrNoManifests indicates a directory without manifest files.
	ErrNoManifests = errors.New("no manifest files found")
)
