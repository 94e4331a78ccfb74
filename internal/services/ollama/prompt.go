package ollama

import "strings"

// PlaceholderToken marks where the transcript text is substituted into a
// prompt template.
const PlaceholderToken = "{text}"

// BuildPrompt substitutes the transcript into the template. Templates
// without the placeholder get the transcript appended after a blank line.
func BuildPrompt(template, transcript string) string {
	if strings.Contains(template, PlaceholderToken) {
		return strings.ReplaceAll(template, PlaceholderToken, transcript)
	}
	return template + "\n\n" + transcript + "\n"
}
