package domain

import (
	"path/filepath"
	"strings"
)

// Format identifies how a source file is converted to text.
type Format string

// Known formats.
const (
	FormatPDF       Format = "pdf"
	FormatDOCX      Format = "docx"
	FormatJSONLines Format = "json-lines"
	FormatUnknown   Format = "unknown"
)

// SidecarExt is the extension of the metadata file stored next to a document.
const SidecarExt = ".info"

// SourceFile is a regular file discovered under a source root.
type SourceFile struct {
	// Path is the location of the file, as understood by the Source that found it.
	Path string

	// Name is the base name including extension.
	Name string

	// Format is the detected format. FormatUnknown files are skipped.
	Format Format

	// Size is the file size in bytes, when known.
	Size int64

	// Err is set when the walk reached the entry but could not read it.
	// Such entries are counted as failed files.
	Err error
}

// Ext returns the lowercased extension of the file.
func (f SourceFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Stem returns the base name without its extension.
func (f SourceFile) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// IsSidecar reports whether the file is a .info metadata file.
func IsSidecar(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SidecarExt)
}

// SidecarPath returns the path of the .info file belonging to path.
func SidecarPath(path string) string {
	return path + SidecarExt
}
