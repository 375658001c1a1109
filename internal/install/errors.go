package install

import "errors"

// Remote install errors.
var (
	// ErrInvalidSpec is returned when a download spec is not owner/repo[@branch].
	ErrInvalidSpec = errors.New("spec must be owner/repo or owner/repo@branch")

	// ErrFetchFailed is returned when every candidate URL fails. It wraps
	// the last underlying cause.
	ErrFetchFailed = errors.New("archive download failed")

	// ErrInvalidArchive is returned when an archive has no single top-level
	// content root.
	ErrInvalidArchive = errors.New("archive is empty or has no content root")

	// ErrNotAPlugin is returned when the archive root lacks a plugin manifest.
	ErrNotAPlugin = errors.New("archive does not contain a plugin manifest")

	// ErrAlreadyExists is returned when the target plugin directory exists.
	ErrAlreadyExists = errors.New("plugin directory already exists")
)
