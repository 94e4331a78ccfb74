package artifacts

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/services"
)

// State enumerates the lifecycle of one artifact download.
type State string

const (
	StateIdle        State = "idle"
	StateDownloading State = "downloading"
	StateDone        State = "done"
	StateError       State = "error"
)

// Status is the progress snapshot for one artifact, safe to hand to callers.
type Status struct {
	ID              string    `json:"id"`
	State           State     `json:"state"`
	TotalBytes      int64     `json:"total_bytes"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	Message         string    `json:"message,omitempty"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	FinishedAt      time.Time `json:"finished_at,omitzero"`
}

// Manager tracks artifact downloads. One mutex guards the status map; the
// download itself runs in a background goroutine that re-acquires the lock
// only for short counter updates.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	// client times out whole requests and serves the release API lookups
	// and asset probes. streamClient serves the transfers themselves and
	// caps only the wait for response headers; a model download making
	// steady progress must never be cut off by a wall-clock deadline.
	client       *http.Client
	streamClient *http.Client

	mu       sync.Mutex
	statuses map[string]Status
	tasks    sync.WaitGroup
}

// NewManager creates a download manager using the configured timeout for
// API calls and header waits.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.Artifacts.DownloadTimeout) * time.Second
	return &Manager{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "artifacts")),
		client: &http.Client{Timeout: timeout},
		streamClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
		statuses: make(map[string]Status),
	}
}

// WithHTTPClient replaces both HTTP clients, primarily for tests.
func (m *Manager) WithHTTPClient(client *http.Client) *Manager {
	if client != nil {
		m.client = client
		m.streamClient = client
	}
	return m
}

// Status returns the tracked snapshot for one artifact id. Untracked ids
// report idle.
func (m *Manager) Status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status, ok := m.statuses[id]; ok {
		return status
	}
	return Status{ID: id, State: StateIdle}
}

// Statuses returns snapshots for the managed binaries and every model size,
// ordered binaries first then models smallest to largest.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := append([]string{KeyWhisperBinary, KeyFFmpeg}, ModelSizes...)
	out := make([]Status, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		seen[id] = true
		if status, ok := m.statuses[id]; ok {
			out = append(out, status)
			continue
		}
		out = append(out, Status{ID: id, State: StateIdle})
	}

	var extra []string
	for id := range m.statuses {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		out = append(out, m.statuses[id])
	}
	return out
}

// Wait blocks until all in-flight download tasks finish. Used on daemon
// shutdown.
func (m *Manager) Wait() {
	m.tasks.Wait()
}

// Installed reports whether the artifact's destination file already exists.
func (m *Manager) Installed(id string) bool {
	plan, err := m.plan(id, "")
	if err != nil {
		return false
	}
	for _, path := range plan.installedPaths {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// StartDownload begins fetching an artifact. If a download for the id is
// already running the existing status is returned unchanged, so concurrent
// callers never race on the same destination file. The download itself runs
// in a tracked background goroutine and the call returns immediately.
func (m *Manager) StartDownload(id, sourceURL string) (Status, error) {
	plan, err := m.plan(id, sourceURL)
	if err != nil {
		return Status{}, err
	}
	if err := os.MkdirAll(filepath.Dir(plan.partial), 0o755); err != nil {
		return Status{}, services.Wrap(services.ErrIO, "artifacts", "download", "create destination dir", err)
	}

	m.mu.Lock()
	if existing, ok := m.statuses[id]; ok && existing.State == StateDownloading {
		m.mu.Unlock()
		return existing, nil
	}
	status := Status{
		ID:        id,
		State:     StateDownloading,
		Message:   plan.label,
		StartedAt: time.Now().UTC(),
	}
	m.statuses[id] = status
	m.mu.Unlock()

	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		m.runDownload(id, plan)
	}()
	return status, nil
}

type downloadPlan struct {
	url            string
	resolveURL     bool
	partial        string
	label          string
	installedPaths []string
	install        func(partialPath string) error
}

func (m *Manager) plan(id, sourceURL string) (downloadPlan, error) {
	switch {
	case id == KeyWhisperBinary:
		url := sourceURL
		if strings.TrimSpace(url) == "" {
			url = DefaultWhisperSourceURL
		}
		binDir := m.cfg.WhisperBinDir()
		dest := filepath.Join(binDir, "whisper-cli")
		return downloadPlan{
			url:            url,
			resolveURL:     true,
			partial:        filepath.Join(binDir, "whisper.partial"),
			label:          "Downloading whisper.cpp binary",
			installedPaths: []string{dest},
			install: func(partial string) error {
				return installBinary(partial, dest, installWhisperFromZip)
			},
		}, nil

	case id == KeyFFmpeg:
		url := sourceURL
		if strings.TrimSpace(url) == "" {
			url = DefaultFFmpegSourceURL
		}
		binDir := m.cfg.FFmpegBinDir()
		return downloadPlan{
			url:            url,
			resolveURL:     true,
			partial:        filepath.Join(binDir, "ffmpeg.partial"),
			label:          "Downloading ffmpeg",
			installedPaths: []string{filepath.Join(binDir, "ffmpeg"), filepath.Join(binDir, "ffprobe")},
			install: func(partial string) error {
				return installBinary(partial, filepath.Join(binDir, "ffmpeg"), func(zipPath, _ string) error {
					return installFFmpegFromZip(zipPath, binDir)
				})
			},
		}, nil

	case IsModelSize(id):
		filename, err := ModelFilename(id)
		if err != nil {
			return downloadPlan{}, err
		}
		url := sourceURL
		if strings.TrimSpace(url) == "" {
			url, err = ModelURL(id)
			if err != nil {
				return downloadPlan{}, err
			}
		}
		dest := filepath.Join(m.cfg.ModelsDir(), filename)
		return downloadPlan{
			url:            url,
			partial:        dest + ".partial",
			label:          "Downloading " + filename,
			installedPaths: []string{dest},
			install: func(partial string) error {
				if err := os.Rename(partial, dest); err != nil {
					return services.Wrap(services.ErrIO, "artifacts", "install", "finalize model file", err)
				}
				return nil
			},
		}, nil
	}
	return downloadPlan{}, services.Wrap(services.ErrNotFound, "artifacts", "download",
		fmt.Sprintf("unknown artifact id %q", id), nil)
}

// installBinary renames a directly downloaded binary into place, or runs the
// zip installer when the payload is an archive.
func installBinary(partial, dest string, fromZip func(zipPath, dest string) error) error {
	if isZipFile(partial) {
		if err := fromZip(partial, dest); err != nil {
			return err
		}
		os.Remove(partial)
		return nil
	}
	if err := os.Rename(partial, dest); err != nil {
		return services.Wrap(services.ErrIO, "artifacts", "install", "finalize binary", err)
	}
	return os.Chmod(dest, 0o755)
}

func isZipFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	var magic [4]byte
	if _, err := io.ReadFull(file, magic[:]); err != nil {
		return false
	}
	return magic[0] == 'P' && magic[1] == 'K'
}

func (m *Manager) runDownload(id string, plan downloadPlan) {
	url := plan.url
	if plan.resolveURL {
		resolved, err := resolveAssetURL(m.client, url)
		if err != nil {
			m.fail(id, err)
			return
		}
		url = resolved
	}

	m.logger.Info("artifact download started",
		logging.String(logging.FieldArtifact, id),
		slog.String("url", url))

	if err := m.fetch(id, url, plan.partial); err != nil {
		os.Remove(plan.partial)
		m.fail(id, err)
		return
	}
	if err := plan.install(plan.partial); err != nil {
		os.Remove(plan.partial)
		m.fail(id, err)
		return
	}

	m.mu.Lock()
	status := m.statuses[id]
	status.State = StateDone
	status.FinishedAt = time.Now().UTC()
	status.Message = fmt.Sprintf("Download complete (%s)", humanize.Bytes(uint64(status.DownloadedBytes)))
	m.statuses[id] = status
	m.mu.Unlock()

	m.logger.Info("artifact installed",
		logging.String(logging.FieldArtifact, id),
		slog.Int64("bytes", status.DownloadedBytes))
}

// fetch streams the response body into the partial file, publishing byte
// counters after every chunk so pollers see live progress.
func (m *Manager) fetch(id, url, partial string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrNetwork, "artifacts", "download", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := m.streamClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetwork, "artifacts", "download", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrNetwork, "artifacts", "download",
			fmt.Sprintf("download failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if resp.ContentLength > 0 {
		m.updateProgress(id, func(status *Status) {
			status.TotalBytes = resp.ContentLength
		})
	}

	file, err := os.Create(partial)
	if err != nil {
		return services.Wrap(services.ErrIO, "artifacts", "download", "create partial file", err)
	}

	var downloaded int64
	buf := make([]byte, 64*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				return services.Wrap(services.ErrIO, "artifacts", "download", "write partial file", err)
			}
			downloaded += int64(n)
			m.updateProgress(id, func(status *Status) {
				status.DownloadedBytes = downloaded
				status.Message = fmt.Sprintf("Downloaded %s", humanize.Bytes(uint64(downloaded)))
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			return services.Wrap(services.ErrNetwork, "artifacts", "download", "stream interrupted", readErr)
		}
	}
	return file.Close()
}

func (m *Manager) updateProgress(id string, apply func(*Status)) {
	m.mu.Lock()
	status := m.statuses[id]
	apply(&status)
	m.statuses[id] = status
	m.mu.Unlock()
}

func (m *Manager) fail(id string, err error) {
	m.mu.Lock()
	status := m.statuses[id]
	status.State = StateError
	status.FinishedAt = time.Now().UTC()
	status.Message = err.Error()
	m.statuses[id] = status
	m.mu.Unlock()

	m.logger.Warn("artifact download failed",
		logging.String(logging.FieldArtifact, id),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network access or supply a direct asset URL"))
}
