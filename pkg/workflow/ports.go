package workflow

import (
	"context"

	"geoassist-be/pkg/geo"
)

// Geocoder resolves a coordinate to a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p geo.Point) (string, error)
}

// Persistence stores finished results. Fire-and-forget: implementations log
// their own failures.
type Persistence interface {
	SaveResult(ctx context.Context, userID string, result Result)
}

// Sender delivers a reply to the chat transport. No retries are attempted.
type Sender interface {
	Send(ctx context.Context, userID, text string, keyboard []string) error
}

// Compressor is the archive engine.
type Compressor interface {
	Compress(ctx context.Context, name string, files []FileRef) (FileRef, error)
	Extract(ctx context.Context, archive FileRef) ([]FileRef, error)
}

// TextExtractor is the OCR engine.
type TextExtractor interface {
	ExtractText(ctx context.Context, image FileRef) (string, error)
}

// FileRemover deletes feature-owned temporary files. Implementations log
// their own failures.
type FileRemover interface {
	Remove(files ...FileRef) error
}

// ResolveAddress fills p.Address through g. On failure the literal coordinates
// become the address and the error is returned as a *CollaboratorError for
// logging only.
func ResolveAddress(ctx context.Context, g Geocoder, p geo.Point) (geo.Point, error) {
	if p.Address != "" {
		return p, nil
	}
	if g == nil {
		p.Address = p.String()
		return p, nil
	}

	addr, err := g.ReverseGeocode(ctx, p)
	if err != nil || addr == "" {
		p.Address = p.String()
		if err == nil {
			return p, nil
		}
		return p, &CollaboratorError{Collaborator: "geocoder", Op: "reverse", Err: err}
	}
	p.Address = addr
	return p, nil
}
