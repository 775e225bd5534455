package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/peskas/gateway/internal/domain"
)

// namePattern matches versioned object names:
// {dataset}-{status}__{YYYYMMDDHHMMSS}_{hash}__.{ext}
// e.g. landings-validated__20260120143613_7c6156d__.parquet
var namePattern = regexp.MustCompile(`^([a-z0-9_]+)-([a-z]+)__(\d{14})_([0-9a-f]+)__\.([A-Za-z0-9]+)$`)

const timestampLayout = "20060102150405"

// downloadTimeout bounds a detached download so a transfer whose callers
// have all disconnected cannot run forever.
const downloadTimeout = 10 * time.Minute

// Resolved is a selected artifact version together with its local cache path.
type Resolved struct {
	Version   domain.ArtifactVersion
	LocalPath string
}

// Resolver selects the current version of an artifact key and materializes
// it in the local cache. Concurrent resolutions of the same version share one
// download; unrelated versions download in parallel.
type Resolver struct {
	store   ObjectStore
	dir     string
	retries int
	group   singleflight.Group
}

// NewResolver creates a resolver over the given scratch directory. The
// directory is created if missing and probe-written so an unwritable cache
// fails at startup instead of on the first request.
func NewResolver(store ObjectStore, dir string, downloadRetries int) (*Resolver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact.NewResolver: create cache dir: %w", err)
	}

	probe := filepath.Join(dir, ".write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return nil, fmt.Errorf("artifact.NewResolver: cache dir %s is not writable: %w", dir, err)
	}
	_ = os.Remove(probe)

	return &Resolver{store: store, dir: dir, retries: downloadRetries}, nil
}

// Resolve lists the remote folder for the key, selects the newest version,
// and returns it with a local file path, downloading if it is not cached.
func (r *Resolver) Resolve(ctx context.Context, key domain.ArtifactKey) (*Resolved, error) {
	names, err := r.store.List(ctx, key.Prefix())
	if err != nil {
		return nil, fmt.Errorf("artifact.Resolve: list %s: %w", key.Prefix(), err)
	}

	version, ok := selectLatest(key, names)
	if !ok {
		return nil, fmt.Errorf("artifact.Resolve: no data for %s/%s: %w", key.Country, key.Status, domain.ErrNotFound)
	}

	local, err := r.fetch(ctx, version)
	if err != nil {
		return nil, err
	}

	return &Resolved{Version: version, LocalPath: local}, nil
}

// selectLatest picks the version with the greatest embedded timestamp. Names
// that do not match the versioned pattern are ignored; names that match but
// carry an invalid calendar timestamp are logged and skipped. Ties on
// timestamp are broken by lexicographic comparison of the full name, so the
// result is deterministic regardless of listing order.
func selectLatest(key domain.ArtifactKey, names []string) (domain.ArtifactVersion, bool) {
	var (
		best  domain.ArtifactVersion
		found bool
	)

	for _, name := range names {
		base := path.Base(name)
		m := namePattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		if m[1] != key.Dataset || m[2] != string(key.Status) {
			continue
		}

		ts, err := time.Parse(timestampLayout, m[3])
		if err != nil {
			log.Warn().Str("object", name).Str("timestamp", m[3]).
				Msg("artifact: skipping version with invalid timestamp")
			continue
		}

		if !found || ts.After(best.Timestamp) || (ts.Equal(best.Timestamp) && name > best.RemotePath) {
			best = domain.ArtifactVersion{
				Key:        key,
				Timestamp:  ts,
				Hash:       m[4],
				RemotePath: name,
			}
			found = true
		}
	}

	return best, found
}

// fetch returns the local path of a version, downloading it at most once
// even under concurrent callers for the same version.
func (r *Resolver) fetch(ctx context.Context, v domain.ArtifactVersion) (string, error) {
	local := r.localPath(v)

	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	// Cache key includes the content hash: a re-published version under the
	// same logical name downloads separately.
	flightKey := v.RemotePath + "#" + v.Hash
	_, err, _ := r.group.Do(flightKey, func() (any, error) {
		// Re-check inside the flight: a concurrent caller may have just
		// finished the download.
		if _, statErr := os.Stat(local); statErr == nil {
			return nil, nil
		}
		// The download runs detached from the originating request: the
		// flight's result is shared, so a waiter that is still live must
		// not fail because the first caller disconnected.
		dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), downloadTimeout)
		defer cancel()
		return nil, r.download(dlCtx, v, local)
	})
	if err != nil {
		return "", err
	}

	return local, nil
}

func (r *Resolver) localPath(v domain.ArtifactVersion) string {
	name := fmt.Sprintf("%s_%s_%s_%s%s",
		v.Key.Country, v.Key.Status, v.Timestamp.Format(timestampLayout), v.Hash,
		path.Ext(v.RemotePath))
	return filepath.Join(r.dir, name)
}

// download streams the object to a temp file and renames it into place, so a
// partially written file is never visible under the cache path. Transient
// failures are retried a bounded number of times.
func (r *Resolver) download(ctx context.Context, v domain.ArtifactVersion, local string) error {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("artifact.download: %s: %w", v.RemotePath, err)
		}

		lastErr = r.downloadOnce(ctx, v, local)
		if lastErr == nil {
			return nil
		}

		log.Warn().Err(lastErr).Str("object", v.RemotePath).Int("attempt", attempt+1).
			Msg("artifact: download failed")
	}

	return &domain.DataError{Artifact: v.RemotePath, Err: lastErr}
}

func (r *Resolver) downloadOnce(ctx context.Context, v domain.ArtifactVersion, local string) error {
	body, err := r.store.Get(ctx, v.RemotePath)
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(r.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("copy object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		return fmt.Errorf("rename into cache: %w", err)
	}

	return nil
}
