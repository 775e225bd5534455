package domain

import "time"

// ArtifactKey identifies a logical table: one (dataset, country, status)
// triple resolves to exactly one physical file version at query time.
type ArtifactKey struct {
	Dataset string
	Country string
	Status  Status
}

// Prefix returns the remote listing prefix for the key, "{country}/{status}/".
func (k ArtifactKey) Prefix() string {
	return k.Country + "/" + string(k.Status) + "/"
}

// ArtifactVersion is one immutable physical file version of an ArtifactKey.
// The current version is the one with the greatest embedded timestamp.
type ArtifactVersion struct {
	Key        ArtifactKey
	Timestamp  time.Time
	Hash       string
	RemotePath string
}
