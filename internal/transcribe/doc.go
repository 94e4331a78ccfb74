// Package transcribe normalizes speech-engine output: segment extraction
// across the JSON shapes different whisper.cpp builds emit, SRT rendering,
// markdown previews, and the placeholder artifacts used when the engine
// produced no output files.
package transcribe
