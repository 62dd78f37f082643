// Package runtime implements the build engine on top of containerd.
//
// Every build and check runs inside a container created from the pinned
// toolchain image. A session stages what the command needs (toolchain
// components, the source tree, the restored dependency artifact), runs
// the derived command, and captures the results: dependency builds as tar
// artifacts for the cache, package builds as exported OCI app images with
// the entrypoint set.
//
// The runtime is the only component that knows toolchain command lines;
// everything above it deals in opaque artifacts and check kinds. Building
// for a platform other than the host requires QEMU / binfmt_misc support
// in the kernel, and platforms the toolchain image carries no manifest
// for fail at toolchain resolution.
//
// Example usage:
//
//	rt, err := runtime.New(runtime.Config{Toolchain: tc})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	deps, err := rt.BuildDepsOnly(ctx, args)
//	if err != nil {
//	    return err
//	}
//
//	app, err := rt.BuildPackage(ctx, args, deps, engine.PackageSpec{
//	    Name:   "spinwave",
//	    Output: "dist",
//	})
package runtime
