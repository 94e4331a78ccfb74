// Package deps locates and validates the external binaries and model files
// the pipeline depends on: the ffmpeg transcoder, the whisper.cpp speech
// engine, and the ggml speech model. Resolution is discovery only; the
// artifacts package handles downloading anything that is missing.
package deps
