package model

import "time"

// ArtifactKind classifies files recorded in the catalog.
type ArtifactKind string

const (
	ArtifactDownload ArtifactKind = "download"
	ArtifactClip     ArtifactKind = "clip"
	ArtifactPoly     ArtifactKind = "poly"
	ArtifactImported ArtifactKind = "imported"
)

// Artifact is a file produced or fetched by osmflex.
type Artifact struct {
	ID        string       `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Path      string       `json:"path"`
	Source    string       `json:"source"` // URL or parent file
	Region    string       `json:"region,omitempty"`
	Bytes     int64        `json:"bytes"`
	CreatedAt time.Time    `json:"created_at"`
}
