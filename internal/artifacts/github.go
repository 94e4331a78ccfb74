package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"murmur/internal/services"
)

const (
	githubAPIMarker    = "api.github.com/repos/"
	githubAPIVersion   = "2022-11-28"
	downloadPathMarker = "/releases/download/"
	releaseTagMarker   = "/releases/tag/"
	userAgent          = "murmur"
)

// resolveAssetURL turns a release page or GitHub API URL into a direct
// downloadable asset URL. Direct URLs pass through unchanged. The fallback
// chain tries the release API asset list, then the release page HTML, then
// probes conventionally named assets derived from the release tag.
func resolveAssetURL(client *http.Client, rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", services.Wrap(services.ErrFormat, "artifacts", "resolve", "download URL is empty", nil)
	}
	// A URL naming a zip asset is already downloadable; release-download
	// URLs contain "/releases" and must not reach the API rewrite.
	if strings.HasSuffix(strings.ToLower(trimmed), ".zip") {
		return strings.Replace(trimmed, "http://", "https://", 1), nil
	}
	normalized := normalizeReleaseURL(trimmed)
	if !isGitHubAPIURL(normalized) {
		return normalized, nil
	}

	if asset, ok := assetFromReleaseAPI(client, normalized); ok {
		return asset, nil
	}

	repoURL := repoFromAPIURL(normalized)
	if repoURL == "" {
		return "", noAssetError()
	}
	asset, tag := assetFromReleasePage(client, repoURL+"/releases/latest")
	if asset != "" {
		return asset, nil
	}
	if tag != "" {
		if candidate := probeConventionalAssets(client, repoURL, tag); candidate != "" {
			return candidate, nil
		}
	}
	return "", noAssetError()
}

func noAssetError() error {
	return services.Wrap(services.ErrNotFound, "artifacts", "resolve",
		"no matching zip asset found in release (supply a direct .zip asset URL)", nil)
}

// normalizeReleaseURL upgrades the scheme and rewrites GitHub release page
// URLs to their API form so the asset list can be queried.
func normalizeReleaseURL(rawURL string) string {
	url := strings.Replace(rawURL, "http://", "https://", 1)
	if strings.Contains(url, "github.com/") && strings.Contains(url, "/releases") && !strings.Contains(url, githubAPIMarker) {
		if _, rest, ok := strings.Cut(url, "github.com/"); ok {
			return "https://api.github.com/repos/" + rest
		}
	}
	return url
}

func isGitHubAPIURL(url string) bool {
	return strings.Contains(url, githubAPIMarker) && strings.Contains(url, "/releases")
}

// isPreferredAsset matches release asset names for the supported target:
// an arm64 zip built for macOS.
func isPreferredAsset(name string) bool {
	lower := strings.ToLower(name)
	isArm := strings.Contains(lower, "arm64") || strings.Contains(lower, "aarch64")
	isMacOS := strings.Contains(lower, "macos") || strings.Contains(lower, "osx") ||
		strings.Contains(lower, "darwin") || strings.Contains(lower, "apple")
	return isArm && isMacOS && strings.HasSuffix(lower, ".zip")
}

func assetFromReleaseAPI(client *http.Client, apiURL string) (string, bool) {
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var release struct {
		Assets []struct {
			Name        string `json:"name"`
			DownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", false
	}
	for _, asset := range release.Assets {
		if isPreferredAsset(asset.Name) && asset.DownloadURL != "" {
			return asset.DownloadURL, true
		}
	}
	return "", false
}

// repoFromAPIURL recovers the public repository URL from an API releases URL.
func repoFromAPIURL(apiURL string) string {
	_, rest, ok := strings.Cut(apiURL, githubAPIMarker)
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return "https://github.com/" + parts[0] + "/" + parts[1]
}

// assetFromReleasePage scans the release page HTML for asset download links
// and also returns the release tag for the conventional-name fallback.
func assetFromReleasePage(client *http.Client, pageURL string) (asset, tag string) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", ""
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", ""
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ""
	}
	html := string(body)
	return scanAssetLinks(html), extractReleaseTag(html)
}

// scanAssetLinks returns the first preferred zip asset link in the page, or
// failing that the first zip asset link of any kind.
func scanAssetLinks(html string) string {
	var fallback string
	index := 0
	for {
		pos := strings.Index(html[index:], downloadPathMarker)
		if pos < 0 {
			break
		}
		start := index + pos
		end := strings.Index(html[start:], ".zip")
		if end < 0 {
			break
		}
		endPos := start + end + len(".zip")
		url := "https://github.com" + html[start:endPos]
		if isPreferredAsset(url) {
			return url
		}
		if fallback == "" {
			fallback = url
		}
		index = endPos
	}
	return fallback
}

// extractReleaseTag pulls the first release tag referenced by the page.
func extractReleaseTag(html string) string {
	idx := strings.Index(html, releaseTagMarker)
	if idx < 0 {
		return ""
	}
	rest := html[idx+len(releaseTagMarker):]
	end := strings.IndexAny(rest, `"'?#< `)
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

// probeConventionalAssets checks upstream's historical asset naming schemes
// against the release tag, with and without the leading v.
func probeConventionalAssets(client *http.Client, repoURL, tag string) string {
	version := strings.TrimPrefix(tag, "v")
	names := []string{
		fmt.Sprintf("whisper-cpp-%s-macos-arm64-metal.zip", version),
		fmt.Sprintf("whisper-cpp-v%s-macos-arm64-metal.zip", version),
		fmt.Sprintf("whisper-cpp-%s-macos-arm64-accelerate.zip", version),
		fmt.Sprintf("whisper-cpp-v%s-macos-arm64-accelerate.zip", version),
		fmt.Sprintf("whisper-cpp-%s-macos-arm64.zip", version),
		fmt.Sprintf("whisper-cpp-v%s-macos-arm64.zip", version),
		"whisper-cpp-macos-arm64-metal.zip",
		"whisper-cpp-macos-arm64.zip",
	}
	for _, name := range names {
		candidate := repoURL + downloadPathMarker + tag + "/" + name
		if probeURL(client, candidate) {
			return candidate
		}
	}
	return ""
}

// probeURL checks asset existence with a single-byte range request so the
// probe never downloads the asset body.
func probeURL(client *http.Client, url string) bool {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
