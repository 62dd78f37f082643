package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/containerd/containerd/v2/core/content"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/containerd/v2/pkg/rootfs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/paths"
)

// Commits the container's filesystem changes and exports the result as a
// runnable app image.
//
// The diff between the container's snapshot and its base image is stored
// as a new layer; a fresh manifest and config carrying that layer and the
// entrypoint are written to the content store as ephemeral blobs and
// exported to <output>/<name>.tar. The stored toolchain image record is
// never modified. A content lease protects the ephemeral blobs from
// garbage collection until the export completes.
func (c *Container) ExportApp(ctx context.Context, output, name string, entrypoint []string) (engine.Artifact, error) {
	loaded, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	info, err := loaded.Info(ctx)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	layer, err := rootfs.CreateDiff(ctx,
		info.SnapshotKey,
		c.client.SnapshotService(info.Snapshotter),
		c.client.DiffService(),
	)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	diffID, err := images.GetDiffID(ctx, c.client.ContentStore(), layer)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	// The mutated manifest and config live in the content store only for
	// the duration of the export; without a lease the GC scheduler may
	// collect them between the write and the export.
	ctx, done, err := c.client.WithLease(ctx)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer done(context.Background())

	target, err := c.appManifest(ctx, info.Image, layer, diffID, entrypoint)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	exportPath := filepath.Join(output, name+".tar")
	dgst, err := c.writeArchive(ctx, target, info.Image, exportPath)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Info("app image exported", "path", exportPath, "digest", dgst)

	return engine.Artifact{Path: exportPath, Digest: dgst}, nil
}

// Builds a new manifest descriptor for the app image.
//
// The base image's platform manifest and config are read, the build layer
// and its diff ID are appended, and the entrypoint is set. The new config
// and manifest are written to the content store as fresh blobs; nothing
// about the base image changes.
func (c *Container) appManifest(ctx context.Context, baseImage string, layer ocispec.Descriptor, diffID digest.Digest, entrypoint []string) (ocispec.Descriptor, error) {
	store := c.client.ContentStore()

	img, err := c.client.ImageService().Get(ctx, baseImage)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	p, err := platforms.Parse(c.platform)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	manifest, err := images.Manifest(ctx, store, img.Target, platforms.Only(p))
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	configBlob, err := content.ReadBlob(ctx, store, manifest.Config)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	var config ocispec.Image
	if err := json.Unmarshal(configBlob, &config); err != nil {
		return ocispec.Descriptor{}, err
	}

	config.RootFS.DiffIDs = append(config.RootFS.DiffIDs, diffID)
	config.Config.Entrypoint = entrypoint
	config.Config.Cmd = nil

	configDesc, err := writeBlob(ctx, store, manifest.Config.MediaType, config)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	manifest.Config = configDesc
	manifest.Layers = append(manifest.Layers, layer)

	return writeBlob(ctx, store, ocispec.MediaTypeImageManifest, manifest)
}

// Marshals v and writes it to the content store, returning its descriptor.
func writeBlob(ctx context.Context, store content.Store, mediaType string, v any) (ocispec.Descriptor, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(blob),
		Size:      int64(len(blob)),
	}

	ref := "kiln-export-" + desc.Digest.Encoded()
	if err := content.WriteBlob(ctx, store, ref, bytes.NewReader(blob), desc); err != nil {
		return ocispec.Descriptor{}, err
	}

	return desc, nil
}

// Writes the app image to an OCI tar archive at the given path.
//
// The target descriptor is exported directly via [archive.WithManifest],
// with the base image name attached as the OCI reference annotation. The
// archive's content digest is computed while writing so the caller gets a
// verifiable artifact handle.
func (c *Container) writeArchive(ctx context.Context, target ocispec.Descriptor, imageName, path string) (digest.Digest, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	p, err := platforms.Parse(c.platform)
	if err != nil {
		return "", err
	}

	digester := digest.SHA256.Digester()
	err = c.client.Export(ctx, io.MultiWriter(f, digester.Hash()),
		archive.WithManifest(target, imageName),
		archive.WithPlatform(platforms.Only(p)),
	)
	if err != nil {
		return "", err
	}

	return digester.Digest(), nil
}
