package providers

import (
	"fmt"
	"strings"
)

// DefaultCount is the number of songs requested when Config.Count is unset
const DefaultCount = 3

// BuildPrompt generates the song suggestion prompt for a set of images
func BuildPrompt(imageCount, songCount int, exclude []string) string {
	if songCount <= 0 {
		songCount = DefaultCount
	}

	noun := "images"
	if imageCount == 1 {
		noun = "image"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Analyze the visual elements, mood, lighting, and context of these %d %s as a collection.
Identify the collective "vibe" or narrative they form together.

Suggest %d distinct, real, existing songs that perfectly match this collective vibe.

For each song provide:
1. Artist Name
2. Song Title
3. Album Name (if known)
4. A brief, creative reason why this song matches the images.
5. The Mood (e.g., "Melancholic", "Upbeat", "Ethereal").
6. The Genre.

Rank them from best match (1) to good match (%d).
`, imageCount, noun, songCount, songCount)

	if len(exclude) > 0 {
		fmt.Fprintf(&b, `
IMPORTANT: Do NOT suggest the following songs again: %s.
Provide completely different suggestions.
`, strings.Join(exclude, ", "))
	}

	return b.String()
}

// BuildJSONPrompt is BuildPrompt plus an explicit output format, for
// providers that cannot enforce a response schema.
func BuildJSONPrompt(imageCount, songCount int, exclude []string) string {
	return BuildPrompt(imageCount, songCount, exclude) + `
OUTPUT FORMAT:
Respond with ONLY a JSON array in the following format:

[
  {"artist": "...", "title": "...", "album": "...", "reason": "...", "mood": "...", "genre": "..."}
]

The "album" field may be omitted when unknown. All other fields are required.`
}
