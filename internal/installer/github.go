package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"devsetup/internal/config"
	"devsetup/internal/state"
	"devsetup/internal/version"
)

// GitHubRelease represents the structure of a GitHub release JSON response.
type GitHubRelease struct {
	TagName string         `json:"tag_name"` // The release tag (e.g., v1.0.0)
	Assets  []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is one downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string `json:"name"`                 // Asset filename
	BrowserDownloadURL string `json:"browser_download_url"` // Direct download URL for the asset
}

var (
	osAliases = map[string][]string{
		"darwin": {"darwin", "macos", "apple-darwin", "osx"},
		"linux":  {"linux"},
	}
	archAliases = map[string][]string{
		"arm64": {"arm64", "aarch64"},
		"amd64": {"amd64", "x86_64", "x64"},
	}
)

// fetchRelease reads release metadata for repo. An empty tag means the
// latest release.
func (in *Installer) fetchRelease(ctx context.Context, repo, tag string) (*GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(in.githubAPI, "/"), repo)
	if tag != "" {
		url = fmt.Sprintf("%s/repos/%s/releases/tags/%s", strings.TrimRight(in.githubAPI, "/"), repo, tag)
	}
	in.log.Debug("Fetching GitHub release from URL: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := in.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET error fetching release for %s: %w", repo, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			in.log.Warn("Failed to close HTTP response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub release fetch failed for %s: HTTP status %d", repo, resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode GitHub release JSON for %s: %w", repo, err)
	}
	in.log.Debug("Release tag: %s with %d assets", release.TagName, len(release.Assets))
	return &release, nil
}

// pickAsset returns the first archive naming both the platform and the
// architecture.
func pickAsset(release *GitHubRelease, goos, goarch string) (ReleaseAsset, error) {
	oses := osAliases[goos]
	if len(oses) == 0 {
		oses = []string{goos}
	}
	arches := archAliases[goarch]
	if len(arches) == 0 {
		arches = []string{goarch}
	}

	for _, a := range release.Assets {
		name := strings.ToLower(a.Name)
		if !isArchive(name) {
			continue
		}
		if containsAny(name, oses) && containsAny(name, arches) {
			return a, nil
		}
	}
	return ReleaseAsset{}, fmt.Errorf("no matching asset found for OS=%s ARCH=%s in release %s", goos, goarch, release.TagName)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// installGitHub downloads the release archive that fits this machine and
// copies the named binaries onto PATH.
func (in *Installer) installGitHub(ctx context.Context, c config.Component) (bool, state.ComponentState, error) {
	current := in.probeVersion(ctx, c)
	cs := state.ComponentState{Version: current}
	if prev, ok := in.state.Components[c.Name]; ok {
		cs.InstallPaths = prev.Paths()
	}

	release, err := in.fetchRelease(ctx, c.Repo, c.Tag)
	if err != nil {
		return false, cs, err
	}
	pair := version.Pair{Current: current, Latest: strings.TrimPrefix(release.TagName, "v")}
	if pair.IsCurrent() {
		in.log.Info("%s %s is current. Skipping.", c.Name, current)
		return false, cs, nil
	}

	asset, err := pickAsset(release, in.goos, in.goarch)
	if err != nil {
		return false, cs, err
	}

	work, err := os.MkdirTemp(in.tempDir, "devsetup-"+c.Name+"-")
	if err != nil {
		return false, cs, err
	}
	defer os.RemoveAll(work)

	archive := filepath.Join(work, path.Base(asset.Name))
	in.log.Info("Downloading asset %s to %s", asset.Name, archive)
	label := fmt.Sprintf("download %s %s", c.Name, release.TagName)
	if _, err := in.run.Run(ctx, label, "curl", "-fsSL", asset.BrowserDownloadURL, "-o", archive); err != nil {
		return false, cs, err
	}

	extracted, err := ExtractArchive(archive, filepath.Join(work, "extracted"))
	if err != nil {
		return false, cs, fmt.Errorf("failed to extract archive: %w", err)
	}
	binaries := c.Binaries
	if len(binaries) == 0 {
		binaries = []string{c.Name}
	}
	found, err := findExecutables(extracted, binaries)
	if err != nil {
		return false, cs, err
	}
	installed, err := installBinaries(found, in.binDir, in.fallbackBinDir())
	if err != nil {
		// Keep what did land so uninstall can find it.
		cs.InstallPaths = mergePaths(cs.InstallPaths, installed)
		return false, cs, err
	}

	in.log.Info("Installed %s %s to %s", c.Name, release.TagName, strings.Join(installed, ", "))
	cs.InstallPaths = installed
	cs.Version = pair.Latest
	return true, cs, nil
}

func mergePaths(have, add []string) []string {
	out := append([]string(nil), have...)
	for _, p := range add {
		if !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
