package install

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dsaub/modulish-bot/internal/plugin"
)

// Installer turns a remote repository archive into a local plugin
// directory under the plugins root.
type Installer struct {
	fetcher *Fetcher
	root    string
	logger  *slog.Logger
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithFetcher replaces the default fetcher.
func WithFetcher(f *Fetcher) InstallerOption {
	return func(i *Installer) { i.fetcher = f }
}

// WithLogger sets the installer's logger.
func WithLogger(l *slog.Logger) InstallerOption {
	return func(i *Installer) { i.logger = l }
}

// NewInstaller creates an Installer writing into pluginsRoot.
func NewInstaller(pluginsRoot string, opts ...InstallerOption) *Installer {
	ins := &Installer{
		fetcher: NewFetcher(),
		root:    pluginsRoot,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ins)
	}
	return ins
}

// Install downloads the archive for rawSpec, validates it, and moves its
// content root into the plugins root under the repository name. The
// temporary working directory is removed on every exit path; the only
// state a successful install leaves behind is the final plugin directory.
func (ins *Installer) Install(ctx context.Context, rawSpec string) (string, error) {
	spec, err := ParseSpec(rawSpec)
	if err != nil {
		return "", err
	}

	target := filepath.Join(ins.root, spec.Repo)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, spec.Repo)
	}

	tmp, err := os.MkdirTemp("", "plugin-dl-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	archive := filepath.Join(tmp, "repo.zip")
	if err := ins.fetcher.Fetch(ctx, spec, archive); err != nil {
		return "", err
	}

	contentRoot, err := extractArchive(archive, filepath.Join(tmp, "src"))
	if err != nil {
		return "", err
	}

	manifest := filepath.Join(contentRoot, plugin.ManifestFile)
	if info, err := os.Stat(manifest); err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotAPlugin, spec)
	}

	if err := os.MkdirAll(ins.root, 0o755); err != nil {
		return "", err
	}
	if err := moveDir(contentRoot, target); err != nil {
		return "", err
	}

	ins.logger.Info("plugin installed", "plugin", spec.Repo, "spec", spec.String())
	return spec.Repo, nil
}

// extractArchive unpacks a zip archive into dir and returns its single
// top-level content root. Archives of this kind wrap all content in one
// top-level directory; a flat or empty archive is rejected.
func extractArchive(archivePath, dir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer r.Close()

	roots := make(map[string]bool)
	for _, f := range r.File {
		name := filepath.ToSlash(f.Name)
		if i := strings.Index(name, "/"); i > 0 {
			roots[name[:i]] = true
		}
		if err := extractFile(f, dir); err != nil {
			return "", err
		}
	}

	if len(roots) == 0 {
		return "", fmt.Errorf("%w: no top-level directory", ErrInvalidArchive)
	}

	names := make([]string, 0, len(roots))
	for name := range roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// extractFile writes one archive member under dir, refusing paths that
// escape it.
func extractFile(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(f.Name))
	if rel, err := filepath.Rel(dir, target); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: unsafe path %q", ErrInvalidArchive, f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return out.Close()
}

// moveDir renames src to dst, falling back to a copy when the rename
// crosses filesystems.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

// copyTree copies a directory recursively.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		info, err := d.Info()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
