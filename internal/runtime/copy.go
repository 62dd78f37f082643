package runtime

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Directory names never shipped into a build container.
//
// VCS metadata is irrelevant to builds, and local build outputs would
// shadow the container's own.
var copySkip = map[string]struct{}{
	".git":   {},
	".hg":    {},
	".svn":   {},
	"target": {},
}

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.mustExec(ctx, "mkdir", nil, nil, "mkdir", "-p", path)
}

// Copies a tar stream into the container's filesystem.
//
// The contents of r are extracted into destDir by piping them to "tar xf -
// -C destDir" inside the container.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return c.mustExec(ctx, "tar extract", r, nil, "tar", "xf", "-", "-C", destDir)
}

// Copies a path from the container's filesystem as a tar stream.
//
// The file or directory at path is archived by running "tar cf - -C <dir>
// <base>" inside the container and streaming the output to w.
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	return c.mustExec(ctx, "tar archive", nil, w, "tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path))
}

// Copies a host directory tree into the container.
//
// The tree rooted at hostDir is streamed as a tar archive and extracted at
// destDir inside the container. VCS metadata and stale build outputs are
// skipped on the host side.
func (c *Container) CopyTree(ctx context.Context, hostDir, destDir string) error {
	if err := c.MkdirAll(ctx, destDir); err != nil {
		return err
	}

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeTreeToTar(tw, hostDir)
		tw.Close()
		pw.CloseWithError(err)
	}()

	return c.CopyTo(ctx, pr, destDir)
}

// Copies a fixed set of files from a host tree into the container.
//
// Only the named files (relative to hostDir) are streamed; directories are
// created on extraction. Used to stage the filtered source view for
// dependency-only builds.
func (c *Container) CopyFiles(ctx context.Context, hostDir, destDir string, files []string) error {
	if err := c.MkdirAll(ctx, destDir); err != nil {
		return err
	}

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeFilesToTar(tw, hostDir, files)
		tw.Close()
		pw.CloseWithError(err)
	}()

	return c.CopyTo(ctx, pr, destDir)
}

// Copies a single file from the session workdir back to the host tree.
//
// The file is streamed out as a tar archive and unpacked onto the host
// path, preserving the file mode. Used by the formatter's write mode.
func (s *session) copyFileBack(ctx context.Context, root, rel string) error {
	pr, pw := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		errc <- s.ctr.CopyFrom(ctx, pw, workDir+"/"+rel)
		pw.Close()
	}()

	hostPath := filepath.Join(root, filepath.FromSlash(rel))
	err := extractFile(pr, hostPath)

	if copyErr := <-errc; err == nil {
		err = copyErr
	}
	if err != nil {
		return fmt.Errorf("%w: copy back %s: %w", ErrRuntime, rel, err)
	}
	return nil
}

// Writes the first regular file in a tar stream to the host path.
func extractFile(r io.Reader, hostPath string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("no file in archive")
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		f, err := os.OpenFile(hostPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode))
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// Helper method that runs a command inside the container, returning an
// error that includes desc if the process exits with a non-zero code.
func (c *Container) mustExec(ctx context.Context, desc string, stdin io.Reader, stdout io.Writer, args ...string) error {
	var stderr limitedBuffer
	exitCode, err := c.execStreams(ctx, stdin, stdout, &stderr, nil, "", args...)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%w: %s failed with exit code %d (%s)", ErrRuntime, desc, exitCode, stderr.String())
	}
	return nil
}

// Writes a directory tree to a tar writer, entries relative to hostDir.
func writeTreeToTar(tw *tar.Writer, hostDir string) error {
	return filepath.WalkDir(hostDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if _, skip := copySkip[d.Name()]; skip && path != hostDir {
				return filepath.SkipDir
			}
		}

		rel, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return writeTarEntry(tw, path, filepath.ToSlash(rel), info)
	})
}

// Writes the named files (relative to hostDir) to a tar writer.
func writeFilesToTar(tw *tar.Writer, hostDir string, files []string) error {
	for _, rel := range files {
		hostPath := filepath.Join(hostDir, filepath.FromSlash(rel))
		info, err := os.Stat(hostPath)
		if err != nil {
			return err
		}
		if err := writeTarEntry(tw, hostPath, rel, info); err != nil {
			return err
		}
	}
	return nil
}

// Writes a single file or directory entry to a tar writer.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, info fs.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	return nil
}
