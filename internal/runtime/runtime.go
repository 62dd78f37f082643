package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/platforms"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

const (

	// Default containerd socket address.
	DefaultAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for images and containers.
	DefaultNamespace = "kiln"

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing kiln to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Holds runtime configuration.
type Config struct {
	Address   string               // Containerd socket address. Empty uses [DefaultAddress].
	Namespace string               // Containerd namespace. Empty uses [DefaultNamespace].
	Toolchain toolchain.Descriptor // Pinned toolchain, used for platform-independent commands.
}

// A containerd-backed build engine.
//
// Builds and checks execute inside containers created from the pinned
// toolchain image. Building for a platform other than the host requires
// QEMU / binfmt_misc support in the kernel; platforms the toolchain image
// does not provide manifests for fail at toolchain resolution.
type Runtime struct {
	client    *containerd.Client   // Containerd client for managing containers and images.
	toolchain toolchain.Descriptor // Pinned toolchain for platform-independent commands.

	mu     sync.Mutex          // Guards pulled.
	pulled map[string]struct{} // Image refs already pulled and unpacked this run.
}

// Compile-time check that the runtime satisfies the engine contract.
var _ engine.Engine = (*Runtime)(nil)

// Creates a runtime connected to the containerd socket.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(cfg Config) (*Runtime, error) {
	address := cfg.Address
	if address == "" {
		address = DefaultAddress
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return &Runtime{
		client:    client,
		toolchain: cfg.Toolchain,
		pulled:    make(map[string]struct{}),
	}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Verifies that the pinned toolchain is available for the platform.
//
// The toolchain image is pulled and unpacked for the target platform. A
// pull failure (unknown version, or no manifest for the platform) is the
// toolchain-unavailable condition the resolver reports.
func (rt *Runtime) ResolveToolchain(ctx context.Context, p string, tc toolchain.Descriptor) error {
	if _, err := rt.ensureImage(ctx, toolchainRef(tc), p); err != nil {
		return err
	}
	return nil
}

// Pulls and unpacks an image for a platform unless already present.
//
// Pulls are deduplicated per (ref, platform) for the lifetime of the
// runtime, so toolchain resolution and every session on the same platform
// share one pull.
func (rt *Runtime) ensureImage(ctx context.Context, ref, p string) (containerd.Image, error) {
	parsed, err := platforms.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	matcher := platforms.Only(parsed)

	key := ref + "|" + p

	rt.mu.Lock()
	_, have := rt.pulled[key]
	rt.mu.Unlock()

	if have {
		img, err := rt.client.ImageService().Get(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
		}
		return containerd.NewImageWithPlatform(rt.client, img, matcher), nil
	}

	slog.Debug("pulling toolchain image", "ref", ref, "platform", p)

	image, err := rt.client.Pull(ctx, ref,
		containerd.WithPlatformMatcher(matcher),
		containerd.WithPullUnpack,
		containerd.WithPullSnapshotter(snapshotter),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: pull %s for %s: %w", ErrRuntime, ref, p, err)
	}

	rt.mu.Lock()
	rt.pulled[key] = struct{}{}
	rt.mu.Unlock()

	return image, nil
}

// Returns the image reference for a pinned toolchain.
func toolchainRef(tc toolchain.Descriptor) string {
	return fmt.Sprintf("docker.io/library/%s:%s", tc.Name, tc.Version)
}

// Produces a deterministic containerd image tag from an artifact digest.
//
// The digest is re-hashed so the tag is always valid for OCI references
// regardless of the digest's own encoding.
func appTag(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("kiln/app/%s:latest", hex.EncodeToString(h[:]))
}
