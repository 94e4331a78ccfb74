package artifacts

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResolveAssetURLPassesDirectURLThrough(t *testing.T) {
	url := "https://example.com/downloads/whisper-arm64.zip"
	resolved, err := resolveAssetURL(http.DefaultClient, url)
	if err != nil {
		t.Fatalf("resolveAssetURL: %v", err)
	}
	if resolved != url {
		t.Fatalf("direct URL should pass through unchanged, got %q", resolved)
	}
}

func TestResolveAssetURLKeepsReleaseDownloadURL(t *testing.T) {
	url := "https://github.com/example/whisper/releases/download/v1.8.0/whisper-macos-arm64.zip"
	resolved, err := resolveAssetURL(http.DefaultClient, url)
	if err != nil {
		t.Fatalf("resolveAssetURL: %v", err)
	}
	if resolved != url {
		t.Fatalf("release asset URL should not be rewritten, got %q", resolved)
	}
}

func TestResolveAssetURLUpgradesScheme(t *testing.T) {
	resolved, err := resolveAssetURL(http.DefaultClient, "http://example.com/asset.zip")
	if err != nil {
		t.Fatalf("resolveAssetURL: %v", err)
	}
	if resolved != "https://example.com/asset.zip" {
		t.Fatalf("scheme should be upgraded, got %q", resolved)
	}
}

func TestResolveAssetURLRejectsEmptyInput(t *testing.T) {
	if _, err := resolveAssetURL(http.DefaultClient, "   "); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestResolveAssetURLQueriesReleaseAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/releases/latest") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"assets":[
			{"name":"whisper-linux-x64.zip","browser_download_url":"https://example.com/linux.zip"},
			{"name":"whisper-macos-arm64.zip","browser_download_url":"https://example.com/mac.zip"}
		]}`)
	}))
	defer server.Close()

	apiURL := server.URL + "/api.github.com/repos/example/whisper/releases/latest"
	resolved, err := resolveAssetURL(server.Client(), apiURL)
	if err != nil {
		t.Fatalf("resolveAssetURL: %v", err)
	}
	if resolved != "https://example.com/mac.zip" {
		t.Fatalf("expected the arm64 macOS asset, got %q", resolved)
	}
}

func TestNormalizeReleaseURLRewritesReleasePages(t *testing.T) {
	got := normalizeReleaseURL("https://github.com/example/whisper/releases/latest")
	want := "https://api.github.com/repos/example/whisper/releases/latest"
	if got != want {
		t.Fatalf("normalizeReleaseURL = %q, want %q", got, want)
	}
}

func TestIsPreferredAsset(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"whisper-cpp-1.8.0-macos-arm64-metal.zip", true},
		{"whisper-aarch64-darwin.zip", true},
		{"whisper-cpp-1.8.0-linux-x64.zip", false},
		{"whisper-cpp-macos-arm64.tar.gz", false},
		{"notes.txt", false},
	}
	for _, tc := range cases {
		if got := isPreferredAsset(tc.name); got != tc.want {
			t.Errorf("isPreferredAsset(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScanAssetLinksPrefersMatchingAsset(t *testing.T) {
	html := `<a href="/example/whisper/releases/download/v1.8.0/whisper-linux-x64.zip">x</a>
	<a href="/example/whisper/releases/download/v1.8.0/whisper-macos-arm64.zip">y</a>`
	got := scanAssetLinks(html)
	if !strings.HasSuffix(got, "whisper-macos-arm64.zip") {
		t.Fatalf("expected the macOS arm64 link, got %q", got)
	}
}

func TestScanAssetLinksFallsBackToFirstZip(t *testing.T) {
	html := `<a href="/example/whisper/releases/download/v1.8.0/whisper-linux-x64.zip">x</a>`
	got := scanAssetLinks(html)
	if !strings.HasSuffix(got, "whisper-linux-x64.zip") {
		t.Fatalf("expected the only zip link, got %q", got)
	}
}

func TestExtractReleaseTag(t *testing.T) {
	html := `<a href="/example/whisper/releases/tag/v1.8.0">v1.8.0</a>`
	if got := extractReleaseTag(html); got != "v1.8.0" {
		t.Fatalf("extractReleaseTag = %q, want v1.8.0", got)
	}
	if got := extractReleaseTag("<p>no tags here</p>"); got != "" {
		t.Fatalf("expected empty tag, got %q", got)
	}
}

func TestProbeURLUsesRangeRequest(t *testing.T) {
	var sawRange bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		sawRange = r.Header.Get("Range") == "bytes=0-0"
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	if !probeURL(server.Client(), server.URL) {
		t.Fatal("probe should succeed for partial content")
	}
	if !sawRange {
		t.Fatal("probe should send a single-byte range request")
	}
	if probeURL(server.Client(), server.URL+"/missing") {
		t.Fatal("probe should fail for a missing asset")
	}
}
