package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devsetup/internal/config"
	"devsetup/internal/state"
)

type member struct {
	name string
	body string
	mode int64
}

func writeTarGz(t *testing.T, path string, members ...member) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, m := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     m.name,
			Mode:     m.mode,
			Size:     int64(len(m.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
}

func writeZip(t *testing.T, path string, members ...member) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		h := &zip.FileHeader{Name: m.name, Method: zip.Deflate}
		h.SetMode(os.FileMode(m.mode))
		w, err := zw.CreateHeader(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

var singboxRelease = GitHubRelease{
	TagName: "v1.12.0",
	Assets: []ReleaseAsset{
		{Name: "sing-box-1.12.0-linux-amd64.tar.gz", BrowserDownloadURL: "https://example.com/linux-amd64.tar.gz"},
		{Name: "sing-box-1.12.0-darwin-arm64.tar.gz.sha256", BrowserDownloadURL: "https://example.com/darwin-arm64.sha256"},
		{Name: "sing-box-1.12.0-darwin-arm64.tar.gz", BrowserDownloadURL: "https://example.com/darwin-arm64.tar.gz"},
		{Name: "sing-box-1.12.0-darwin-amd64.tar.gz", BrowserDownloadURL: "https://example.com/darwin-amd64.tar.gz"},
	},
}

func TestPickAsset(t *testing.T) {
	a, err := pickAsset(&singboxRelease, "darwin", "arm64")
	require.NoError(t, err)
	assert.Equal(t, "sing-box-1.12.0-darwin-arm64.tar.gz", a.Name)

	a, err = pickAsset(&singboxRelease, "darwin", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "sing-box-1.12.0-darwin-amd64.tar.gz", a.Name)

	_, err = pickAsset(&singboxRelease, "windows", "arm64")
	assert.Error(t, err)

	aliased := &GitHubRelease{TagName: "v0.9.0", Assets: []ReleaseAsset{
		{Name: "tool-aarch64-apple-darwin.zip"},
	}}
	a, err = pickAsset(aliased, "darwin", "arm64")
	require.NoError(t, err)
	assert.Equal(t, "tool-aarch64-apple-darwin.zip", a.Name)
}

func releaseServer(t *testing.T, release GitHubRelease, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/repos/SagerNet/sing-box/releases/latest" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(release)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubInstallAndSkip(t *testing.T) {
	var hits int32
	srv := releaseServer(t, singboxRelease, &hits)

	var installed atomic.Bool
	respond := func(name string, args []string) ([]byte, int, error) {
		switch name {
		case "sing-box":
			if !installed.Load() {
				return []byte("sing-box: command not found"), 127, failed
			}
			return []byte("sing-box version 1.12.0\n\nEnvironment: go1.24"), 0, nil
		case "curl":
			require.Equal(t, "https://example.com/darwin-arm64.tar.gz", args[1])
			dest := args[len(args)-1]
			writeTarGz(t, dest,
				member{name: "sing-box-1.12.0-darwin-arm64/LICENSE", body: "GPL", mode: 0644},
				member{name: "sing-box-1.12.0-darwin-arm64/sing-box", body: "#!/bin/sh\necho sing-box\n", mode: 0755},
				member{name: "sing-box-1.12.0-darwin-arm64/libexec/sing-box-helper", body: "#!/bin/sh\n", mode: 0755},
			)
			installed.Store(true)
		}
		return nil, 0, nil
	}

	binDir := t.TempDir()
	f := newFixture(t, respond, func(o *Options) {
		o.HTTPClient = srv.Client()
		o.GitHubAPI = srv.URL
		o.BinDir = binDir
		o.GOOS = "darwin"
		o.GOARCH = "arm64"
	})
	singbox := config.Component{
		Name:     "singbox",
		Source:   config.SourceGitHub,
		Repo:     "SagerNet/sing-box",
		Binaries: []string{"sing-box", "sing-box-helper"},
		Version:  config.VersionProbe{Command: []string{"sing-box", "version"}},
	}

	require.NoError(t, f.in.Install(context.Background(), singbox))

	targets := []string{filepath.Join(binDir, "sing-box"), filepath.Join(binDir, "sing-box-helper")}
	for _, target := range targets {
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0111)
	}

	cs := f.state.Components["singbox"]
	assert.Equal(t, "1.12.0", cs.Version)
	assert.ElementsMatch(t, targets, cs.InstallPaths)
	assert.Equal(t, state.OutcomeSucceeded, cs.Outcome)

	require.NoError(t, f.in.Install(context.Background(), singbox))
	assert.Equal(t, 1, f.exec.ran("curl"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.ElementsMatch(t, targets, f.state.Components["singbox"].InstallPaths)

	require.NoError(t, f.in.Uninstall(context.Background(), singbox))
	for _, target := range targets {
		_, err := os.Stat(target)
		assert.True(t, os.IsNotExist(err), target)
	}
	assert.NotContains(t, f.state.Components, "singbox")
}

func TestGitHubReleaseErrors(t *testing.T) {
	var hits int32
	srv := releaseServer(t, singboxRelease, &hits)
	f := newFixture(t, nil, func(o *Options) {
		o.HTTPClient = srv.Client()
		o.GitHubAPI = srv.URL
	})

	missing := config.Component{Name: "tool", Source: config.SourceGitHub, Repo: "nobody/tool"}
	err := f.in.Install(context.Background(), missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP status 404")
	assert.Zero(t, f.exec.ran("curl"))
	assert.Equal(t, state.OutcomeFailed, f.state.Components["tool"].Outcome)
}

func TestExtractArchiveFormats(t *testing.T) {
	dir := t.TempDir()

	tgz := filepath.Join(dir, "tool.tar.gz")
	writeTarGz(t, tgz, member{name: "tool-1.0/bin/tool", body: "bin", mode: 0755})
	out, err := ExtractArchive(tgz, filepath.Join(dir, "tgz"))
	require.NoError(t, err)
	found, err := findExecutables(out, []string{"tool"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "tgz", "tool-1.0", "bin", "tool")}, found)

	zipped := filepath.Join(dir, "tool.zip")
	writeZip(t, zipped,
		member{name: "tool", body: "bin", mode: 0755},
		member{name: "README.md", body: "docs", mode: 0644},
	)
	out, err = ExtractArchive(zipped, filepath.Join(dir, "zip"))
	require.NoError(t, err)
	found, err = findExecutables(out, []string{"tool"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = findExecutables(out, []string{"README.md"})
	assert.Error(t, err)

	_, err = ExtractArchive(filepath.Join(dir, "tool.rar"), filepath.Join(dir, "rar"))
	assert.Error(t, err)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	evil := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, evil, member{name: "../../escaped", body: "x", mode: 0644})

	_, err := ExtractArchive(evil, filepath.Join(dir, "out"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "..", "escaped"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstallBinariesFallsBack(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(src, []byte("bin"), 0755))

	blocked := filepath.Join(dir, "file-not-dir")
	require.NoError(t, os.WriteFile(blocked, nil, 0644))
	fallback := filepath.Join(dir, "home", "bin")

	dst, err := installBinaries([]string{src}, blocked, fallback)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(fallback, "tool")}, dst)
}
