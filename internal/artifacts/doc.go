// Package artifacts downloads and installs the managed binaries and models
// the pipeline depends on: the whisper.cpp binary, the ffmpeg/ffprobe pair,
// and ggml model files. Downloads stream to a .partial file with live byte
// counters and are renamed into place only on success. Discovery of installed
// binaries lives in internal/deps.
package artifacts
