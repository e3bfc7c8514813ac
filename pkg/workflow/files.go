package workflow

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".heic": true, ".webp": true, ".tif": true, ".tiff": true,
}

// Ext returns the lowercased extension of the file name, dot included.
func (f FileRef) Ext() string {
	name := f.Name
	if name == "" {
		name = f.Path
	}
	return strings.ToLower(filepath.Ext(name))
}

// IsImage reports whether the file looks like a photo, by MIME type first and
// extension second.
func (f FileRef) IsImage() bool {
	if f.MimeType != "" {
		return strings.HasPrefix(strings.ToLower(f.MimeType), "image/")
	}
	return imageExtensions[f.Ext()]
}

func (f FileRef) IsZip() bool {
	switch strings.ToLower(f.MimeType) {
	case "application/zip", "application/x-zip-compressed":
		return true
	}
	return f.Ext() == ".zip"
}

// RemoveFiles hands files to r, ignoring a nil remover. Removal failures are
// logged by the remover and never block a transition.
func RemoveFiles(r FileRemover, files ...FileRef) {
	if r == nil || len(files) == 0 {
		return
	}
	_ = r.Remove(files...)
}
