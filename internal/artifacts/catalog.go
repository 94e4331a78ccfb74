package artifacts

import (
	"fmt"
	"strings"

	"murmur/internal/services"
)

// Artifact ids for the two managed binaries. Model artifacts use the model
// size tag itself as the id.
const (
	KeyWhisperBinary = "whisper-binary"
	KeyFFmpeg        = "ffmpeg"
)

// Default sources used when the caller does not supply a URL. The whisper
// source is a release page resolved through the asset-resolution chain;
// ffmpeg bundles vary by platform so callers usually pass a direct zip URL.
const (
	DefaultWhisperSourceURL = "https://github.com/ggml-org/whisper.cpp/releases/latest"
	DefaultFFmpegSourceURL  = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/latest"
)

const modelRepoBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// ModelSizes lists the supported whisper model size tags, smallest first.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large-v3"}

// IsModelSize reports whether size is a known model size tag.
func IsModelSize(size string) bool {
	for _, known := range ModelSizes {
		if size == known {
			return true
		}
	}
	return false
}

// ModelFilename returns the ggml model file name for a size tag.
func ModelFilename(size string) (string, error) {
	if !IsModelSize(size) {
		return "", services.Wrap(services.ErrFormat, "artifacts", "catalog",
			fmt.Sprintf("unknown model size %q (expected %s)", size, strings.Join(ModelSizes, "/")), nil)
	}
	return "ggml-" + size + ".bin", nil
}

// ModelURL returns the download URL for a model size tag.
func ModelURL(size string) (string, error) {
	filename, err := ModelFilename(size)
	if err != nil {
		return "", err
	}
	return modelRepoBaseURL + "/" + filename + "?download=true", nil
}
