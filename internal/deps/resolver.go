package deps

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"murmur/internal/config"
	"murmur/internal/services"
)

// Environment overrides. Both must point at existing files to take effect;
// a half-set override falls through to directory discovery.
const (
	EnvWhisperPath  = "MURMUR_WHISPER_PATH"
	EnvWhisperModel = "MURMUR_WHISPER_MODEL"
)

// whisperBinaryNames lists the executable names whisper.cpp has shipped
// under across releases, probed in order.
var whisperBinaryNames = []string{"whisper-cli", "whisper", "main"}

// bannedFFmpegFlags are build flags that make an ffmpeg binary
// non-redistributable with this application.
var bannedFFmpegFlags = []string{"--enable-gpl", "--enable-nonfree"}

// runVersionBanner captures `<binary> -version` output. Package-level for
// test stubbing.
var runVersionBanner = func(path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, path, "-version").Output() //nolint:gosec
}

// NotFoundError reports a failed resolution along with every path that was
// probed, so the caller can render an actionable message.
type NotFoundError struct {
	What   string
	Probed []string
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s not found; probed:", e.What)
	for _, path := range e.Probed {
		b.WriteString("\n  ")
		b.WriteString(path)
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error {
	return services.ErrNotFound
}

// Resolved holds the discovered external tool paths for one pipeline run.
type Resolved struct {
	FFmpegPath  string
	WhisperPath string
	ModelPath   string
}

// Resolver discovers external binaries and models using a fixed priority
// order: environment overrides, then conventional candidate directories.
type Resolver struct {
	cfg *config.Config

	// resourceDir points at a bundled-resources directory when the binary
	// ships inside an application bundle. Empty outside bundles.
	resourceDir string
}

// NewResolver builds a resolver rooted at the configured state directory.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// WithResourceDir sets the bundled-resources directory probed between the
// working directory and the per-user state directory.
func (r *Resolver) WithResourceDir(dir string) *Resolver {
	r.resourceDir = dir
	return r
}

// Resolve locates all three dependencies for the given model size.
func (r *Resolver) Resolve(modelSize string) (Resolved, error) {
	ffmpeg, err := r.FFmpeg()
	if err != nil {
		return Resolved{}, err
	}
	bin, model, err := r.Whisper(modelSize)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{FFmpegPath: ffmpeg, WhisperPath: bin, ModelPath: model}, nil
}

// Whisper locates the speech-engine binary and its model file. The
// environment override pair wins only when both referenced paths exist.
func (r *Resolver) Whisper(modelSize string) (string, string, error) {
	if bin, model := os.Getenv(EnvWhisperPath), os.Getenv(EnvWhisperModel); bin != "" && model != "" {
		if fileExists(bin) && fileExists(model) {
			return bin, model, nil
		}
	}

	modelName := fmt.Sprintf("ggml-%s.bin", modelSize)
	binCandidates := r.whisperBinCandidates()
	modelCandidates := r.modelCandidates(modelName)

	var probed []string
	bin := ""
	for _, candidate := range binCandidates {
		probed = append(probed, candidate)
		if fileExists(candidate) && isNativeExecutable(candidate) {
			bin = candidate
			break
		}
	}
	model := ""
	for _, candidate := range modelCandidates {
		probed = append(probed, candidate)
		if fileExists(candidate) {
			model = candidate
			break
		}
	}
	if bin == "" || model == "" {
		return "", "", &NotFoundError{What: "whisper binary/model", Probed: probed}
	}
	return bin, model, nil
}

// FFmpeg locates the transcoder binary. A candidate that exists but whose
// version banner advertises a banned build flag fails resolution outright.
func (r *Resolver) FFmpeg() (string, error) {
	if explicit := os.Getenv("MURMUR_FFMPEG_PATH"); explicit != "" && fileExists(explicit) {
		return r.checkFFmpegLicense(explicit)
	}

	candidates := r.ffmpegCandidates()
	var probed []string
	for _, candidate := range candidates {
		probed = append(probed, candidate)
		if fileExists(candidate) && isNativeExecutable(candidate) {
			return r.checkFFmpegLicense(candidate)
		}
	}
	return "", &NotFoundError{What: "ffmpeg binary", Probed: probed}
}

func (r *Resolver) checkFFmpegLicense(path string) (string, error) {
	banner, err := runVersionBanner(path)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "deps", "ffmpeg", fmt.Sprintf("run %s -version", path), err)
	}
	text := string(banner)
	for _, flag := range bannedFFmpegFlags {
		if strings.Contains(text, flag) {
			return "", services.Wrap(services.ErrLicense, "deps", "ffmpeg",
				fmt.Sprintf("%s was built with %s; an LGPL build is required", path, flag), nil)
		}
	}
	return path, nil
}

func (r *Resolver) whisperBinCandidates() []string {
	dirs := r.candidateDirs("whisper/bin", r.cfg.WhisperBinDir())
	out := make([]string, 0, len(dirs)*len(whisperBinaryNames))
	for _, dir := range dirs {
		for _, name := range whisperBinaryNames {
			out = append(out, filepath.Join(dir, name))
		}
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		for _, name := range whisperBinaryNames {
			out = append(out, filepath.Join(dir, name))
		}
	}
	return out
}

func (r *Resolver) modelCandidates(modelName string) []string {
	dirs := r.candidateDirs("whisper/models", r.cfg.ModelsDir())
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, filepath.Join(dir, modelName))
	}
	return out
}

func (r *Resolver) ffmpegCandidates() []string {
	dirs := r.candidateDirs("ffmpeg/bin", r.cfg.FFmpegBinDir())
	out := make([]string, 0, len(dirs)+1)
	for _, dir := range dirs {
		out = append(out, filepath.Join(dir, "ffmpeg"))
	}
	if exe, err := os.Executable(); err == nil {
		out = append(out, filepath.Join(filepath.Dir(exe), "ffmpeg"))
	}
	return out
}

// candidateDirs returns the ordered directory list for one dependency kind:
// working-directory tree (walking up a few levels), bundled resources,
// per-user state directory.
func (r *Resolver) candidateDirs(relative, stateDir string) []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		cursor := cwd
		for i := 0; i < 4; i++ {
			dirs = append(dirs, filepath.Join(cursor, "third_party", relative))
			parent := filepath.Dir(cursor)
			if parent == cursor {
				break
			}
			cursor = parent
		}
	}
	if r.resourceDir != "" {
		dirs = append(dirs, filepath.Join(r.resourceDir, relative))
	}
	if stateDir != "" {
		dirs = append(dirs, stateDir)
	}
	return dirs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Native executable magic numbers: ELF plus the Mach-O family in both byte
// orders, including fat binaries. Placeholder files (shell stubs, empty
// files) fail this check.
var machoMagics = []uint32{0xFEEDFACE, 0xFEEDFACF, 0xCAFEBABE, 0xBEBAFECA, 0xCEFAEDFE, 0xCFFAEDFE}

func isNativeExecutable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := f.Read(head); err != nil {
		return false
	}
	if bytes.Equal(head, []byte{0x7f, 'E', 'L', 'F'}) {
		return true
	}
	be := binary.BigEndian.Uint32(head)
	le := binary.LittleEndian.Uint32(head)
	for _, magic := range machoMagics {
		if be == magic || le == magic {
			return true
		}
	}
	return false
}
