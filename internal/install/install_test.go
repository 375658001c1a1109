package install

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsaub/modulish-bot/internal/host"
	"github.com/dsaub/modulish-bot/internal/plugin"
)

func testInstaller(t *testing.T, archives map[string][]byte) (*Installer, string) {
	t.Helper()
	srv, _ := archiveServer(t, archives)
	root := filepath.Join(t.TempDir(), "plugins")
	ins := NewInstaller(root,
		WithFetcher(testFetcher(srv)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return ins, root
}

func validArchive(t *testing.T) []byte {
	t.Helper()
	return makeZip(t, map[string]string{
		"widgets-main/plugin.toml": "[plugin]\nname = \"widgets\"\nmain = \"init.lua\"\n",
		"widgets-main/init.lua":    `x = 1`,
		"widgets-main/helper.lua":  `return {}`,
	})
}

func TestInstall(t *testing.T) {
	ins, root := testInstaller(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": validArchive(t),
	})

	name, err := ins.Install(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", name)

	// The wrapper directory is unwrapped into plugins/widgets.
	assert.FileExists(t, filepath.Join(root, "widgets", "plugin.toml"))
	assert.FileExists(t, filepath.Join(root, "widgets", "init.lua"))
	assert.FileExists(t, filepath.Join(root, "widgets", "helper.lua"))
	assert.NoDirExists(t, filepath.Join(root, "widgets", "widgets-main"))
}

func TestInstallAlreadyExists(t *testing.T) {
	ins, root := testInstaller(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": validArchive(t),
	})

	existing := filepath.Join(root, "widgets")
	require.NoError(t, os.MkdirAll(existing, 0o755))
	sentinel := filepath.Join(existing, "keep.txt")
	require.NoError(t, os.WriteFile(sentinel, []byte("mine"), 0o644))

	_, err := ins.Install(context.Background(), "acme/widgets")
	require.ErrorIs(t, err, ErrAlreadyExists)

	// The pre-existing directory is untouched.
	data, err := os.ReadFile(sentinel)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
	assert.NoFileExists(t, filepath.Join(existing, "plugin.toml"))
}

func TestInstallNotAPlugin(t *testing.T) {
	ins, root := testInstaller(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": makeZip(t, map[string]string{
			"widgets-main/README.md": "just a repo",
		}),
	})

	_, err := ins.Install(context.Background(), "acme/widgets")
	require.ErrorIs(t, err, ErrNotAPlugin)
	assert.NoDirExists(t, filepath.Join(root, "widgets"))
}

func TestInstallFlatArchive(t *testing.T) {
	ins, root := testInstaller(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": makeZip(t, map[string]string{
			"plugin.toml": "[plugin]\nmain = \"init.lua\"\n",
		}),
	})

	_, err := ins.Install(context.Background(), "acme/widgets")
	require.ErrorIs(t, err, ErrInvalidArchive)
	assert.NoDirExists(t, filepath.Join(root, "widgets"))
}

func TestInstallCorruptArchive(t *testing.T) {
	ins, root := testInstaller(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": []byte("not a zip"),
	})

	_, err := ins.Install(context.Background(), "acme/widgets")
	require.ErrorIs(t, err, ErrInvalidArchive)
	assert.NoDirExists(t, filepath.Join(root, "widgets"))
}

func TestInstallFetchFailed(t *testing.T) {
	ins, root := testInstaller(t, nil)

	_, err := ins.Install(context.Background(), "acme/widgets")
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.NoDirExists(t, filepath.Join(root, "widgets"))
}

func TestInstallBadSpec(t *testing.T) {
	ins, _ := testInstaller(t, nil)

	_, err := ins.Install(context.Background(), "not-a-spec")
	require.ErrorIs(t, err, ErrInvalidSpec)
}

func TestInstallZipSlipRejected(t *testing.T) {
	ins, root := testInstaller(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": makeZip(t, map[string]string{
			"widgets-main/plugin.toml": "[plugin]\nmain = \"init.lua\"\n",
			"../escape":                "nope",
		}),
	})

	_, err := ins.Install(context.Background(), "acme/widgets")
	require.ErrorIs(t, err, ErrInvalidArchive)
	assert.NoDirExists(t, filepath.Join(root, "widgets"))
}

func TestManagerInstallAutoload(t *testing.T) {
	srv, _ := archiveServer(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": validArchive(t),
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pluginsRoot := filepath.Join(t.TempDir(), "plugins")
	installer := NewInstaller(pluginsRoot, WithFetcher(testFetcher(srv)), WithLogger(logger))

	manager := plugin.NewManager(plugin.ManagerConfig{
		PluginsRoot: pluginsRoot,
		ConfigRoot:  filepath.Join(t.TempDir(), "config"),
		Hub:         host.NewHub("testbot", "!", logger),
		Installer:   installer,
		Logger:      logger,
	})

	name, err := manager.Install(context.Background(), "acme/widgets", true)
	require.NoError(t, err)
	assert.Equal(t, "widgets", name)
	assert.True(t, manager.Registry().Has("widgets"), "autoloaded plugin should be registered")
}

func TestManagerInstallNoAutoload(t *testing.T) {
	srv, _ := archiveServer(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": validArchive(t),
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pluginsRoot := filepath.Join(t.TempDir(), "plugins")
	installer := NewInstaller(pluginsRoot, WithFetcher(testFetcher(srv)), WithLogger(logger))

	manager := plugin.NewManager(plugin.ManagerConfig{
		PluginsRoot: pluginsRoot,
		ConfigRoot:  filepath.Join(t.TempDir(), "config"),
		Hub:         host.NewHub("testbot", "!", logger),
		Installer:   installer,
		Logger:      logger,
	})

	name, err := manager.Install(context.Background(), "acme/widgets", false)
	require.NoError(t, err)
	assert.Equal(t, "widgets", name)
	assert.False(t, manager.Registry().Has("widgets"))
	assert.FileExists(t, filepath.Join(pluginsRoot, "widgets", "plugin.toml"))
}
