package runtime

import (
	"context"
	"fmt"
	"os"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/platform"
)

// Executes a built app artifact on the host platform.
//
// The app's OCI archive is imported, tagged deterministically, and run as
// a container with stdio attached to the current process. Extra args are
// appended to the image's entrypoint. Returns the app's exit code.
func (rt *Runtime) Run(ctx context.Context, app engine.Artifact, args []string) (int, error) {
	host := platform.Host()

	image, err := rt.importApp(ctx, app, host)
	if err != nil {
		return 0, err
	}

	c := &Container{
		client:   rt.client,
		id:       "kiln-run-" + platform.Slug(host),
		platform: host,
	}

	c.remove(ctx)
	defer c.Destroy(ctx)

	entry := oci.WithImageConfig(image)
	if len(args) > 0 {
		entry = oci.WithImageConfigArgs(image, args)
	}

	ctr, err := c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(host),
			entry,
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
		),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.NewTask(ctx, cio.NewCreator(
		cio.WithStreams(os.Stdin, os.Stdout, os.Stderr),
	))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	statusC, err := task.Wait(ctx)
	if err != nil {
		task.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	exitStatus := <-statusC
	task.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return int(code), nil
}

// Imports an app archive, tags it, and unpacks it for the platform.
//
// The archive must contain exactly one image. The deterministic tag keyed
// by the artifact digest makes repeated runs of the same artifact reuse
// the imported content.
func (rt *Runtime) importApp(ctx context.Context, app engine.Artifact, p string) (containerd.Image, error) {
	fh, err := os.Open(app.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer fh.Close()

	imported, err := rt.client.Import(ctx, fh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if len(imported) == 0 {
		return nil, ErrEmptyArchive
	} else if len(imported) > 1 {
		return nil, ErrMultipleImages
	}

	tag := appTag(app.Digest.String())
	if err := rt.tagImage(ctx, imported[0], tag); err != nil {
		return nil, err
	}

	parsed, err := platforms.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	img, err := rt.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	image := containerd.NewImageWithPlatform(rt.client, img, platforms.Only(parsed))
	if err := image.Unpack(ctx, snapshotter); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return image, nil
}

// Tags an imported image under a deterministic name.
//
// Updates the tag if it already exists. Removes the source record when
// its name differs from the tag to avoid duplicates.
func (rt *Runtime) tagImage(ctx context.Context, source images.Image, tag string) error {
	is := rt.client.ImageService()

	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}

	return nil
}
