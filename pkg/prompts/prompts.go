// Package prompts builds every prompt sent to a text-generation
// provider. System prompts can be overridden from a prompts directory;
// user prompts are pure functions of the request.
package prompts

import (
	"fmt"
	"strings"

	"github.com/behindy-dev/storyserver/pkg/story"
)

// allowedThemeList renders the closed theme set for prompt injection.
func allowedThemeList() string {
	names := make([]string, 0, len(story.AllowedThemes))
	for _, t := range story.AllowedThemes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// ThemeConstraint is the hard thematic rule injected into every
// generation prompt.
func ThemeConstraint() string {
	return fmt.Sprintf(`IMPORTANT: theme restriction
- You MUST use exactly one of these 3 themes: %s
- Never use any other theme`, allowedThemeList())
}

// DefaultGenerationSystemPrompt is the built-in system prompt for
// first-page story generation, used when no prompts directory
// overrides it. The %s slot takes ThemeConstraint.
const DefaultGenerationSystemPrompt = `You write branching text-adventure stories set in subway stations.

%s

Respond with a single JSON object in exactly this shape:
{
    "story_title": "short title (under 20 chars)",
    "page_content": "page text (150-300 chars)",
    "options": [
        {
            "content": "choice text",
            "effect": "health|sanity|none",
            "amount": -10 to 10,
            "effect_preview": "effect preview"
        }
    ],
    "estimated_length": 5,
    "difficulty": "easy|normal|hard",
    "theme": "one of the allowed themes",
    "station_name": "station name",
    "line_number": 2
}

Rules:
- 2 to 4 options, each amount between -10 and 10
- theme must be one of the allowed values
- respond with JSON only, no prose outside the object`

// DefaultEvaluationSystemPrompt is the built-in system prompt for
// quality scoring. The %s slot takes the allowed theme list.
const DefaultEvaluationSystemPrompt = `You are a strict story quality judge for a subway text-adventure game.

Score the submitted story on 5 criteria, 0-20 points each:
1. creativity
2. coherence
3. engagement
4. writing quality
5. game suitability (allowed themes only: %s)

Respond with a single JSON object:
{
    "total_score": 85.5,
    "creativity": 18.0,
    "coherence": 17.5,
    "engagement": 16.0,
    "writing_quality": 19.0,
    "game_suitability": 15.0,
    "feedback": "one or two sentences",
    "passed": true
}`

// GenerationPrompt is the per-call user prompt for a new story page.
func GenerationPrompt(req story.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString("Generate the first page of a story with this context:\n\n")
	fmt.Fprintf(&sb, "Station: %s (line %d)\n", req.StationName, req.LineNumber)
	fmt.Fprintf(&sb, "Character state: health %d/100, sanity %d/100\n\n", req.CharacterHealth, req.CharacterSanity)
	sb.WriteString(ThemeConstraint())
	sb.WriteString("\n")
	if pref := story.Theme(req.ThemePreference); pref.IsAllowed() {
		fmt.Fprintf(&sb, "- Prefer the %q theme for this story\n", pref)
	}
	sb.WriteString("\nTheme guide:\n")
	sb.WriteString("- mystery: riddles, clues, unexplained events\n")
	sb.WriteString("- horror: fear, darkness, an eerie presence\n")
	sb.WriteString("- thriller: tension, pursuit, time pressure\n\n")
	fmt.Fprintf(&sb, "Write an unsettling scene unfolding at %s station and respond as JSON.", req.StationName)
	return sb.String()
}

// ContinuationPrompt is the per-call user prompt for the next page. It
// pins the previously chosen theme: the theme must never drift between
// pages of one story.
func ContinuationPrompt(req story.ContinueRequest) string {
	storyContext := req.StoryContext
	if storyContext == "" {
		storyContext = "(story just began)"
	}
	return fmt.Sprintf(`The player chose %q. Continue the story with the next page.

Context:
- Station: %s (line %d)
- Character state: health %d/100, sanity %d/100
- Story so far: %s

IMPORTANT: theme lock
- This story's theme is %q and it must stay %q
- Do not drift into any other theme

Respond with a single JSON object:
{
    "page_content": "next page text (150-250 chars, %s theme)",
    "options": [
        {
            "content": "choice text",
            "effect": "health|sanity|none",
            "amount": -5 to 5,
            "effect_preview": "effect preview"
        }
    ],
    "is_last_page": false
}`, req.PreviousChoice, req.StationName, req.LineNumber,
		req.CharacterHealth, req.CharacterSanity, storyContext,
		req.Theme, req.Theme, req.Theme)
}

// MetadataPrompt asks for story-level metadata before page generation.
func MetadataPrompt(req story.BatchStoryRequest) string {
	return fmt.Sprintf(`Generate the metadata for a subway text-adventure story as JSON.

%s

Station:
- Name: %s
- Line: %d

Character state:
- Health: %d/100
- Sanity: %d/100

Respond with a single JSON object:
{
    "story_title": "title mentioning %s station (under 20 chars)",
    "description": "story description (50-100 chars)",
    "theme": "mystery|horror|thriller",
    "keywords": ["%s", "line %d", "subway", "one more keyword"],
    "difficulty": "easy|normal|hard",
    "estimated_length": 4-6
}

Theme guide:
- mystery: riddles, clues, unexplained events
- horror: fear, darkness, an eerie presence
- thriller: tension, pursuit, time pressure

Use only the allowed themes.`, ThemeConstraint(),
		req.StationName, req.LineNumber,
		req.CharacterHealth, req.CharacterSanity,
		req.StationName, req.StationName, req.LineNumber)
}

// PagePrompt asks for a single page of a batch story, pinned to the
// story's theme and fed the tail of the previous page for continuity.
func PagePrompt(req story.BatchStoryRequest, meta story.Metadata, pageNum, totalPages int, previousTail string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate page %d of this story:\n\n", pageNum)
	sb.WriteString("IMPORTANT: theme lock\n")
	fmt.Fprintf(&sb, "- Keep the %q theme on every page\n", meta.Theme)
	sb.WriteString("- Never switch themes\n\n")
	sb.WriteString("Story:\n")
	fmt.Fprintf(&sb, "- Title: %s\n", meta.StoryTitle)
	fmt.Fprintf(&sb, "- Theme: %s (locked)\n", meta.Theme)
	fmt.Fprintf(&sb, "- Setting: %s station (line %d)\n", req.StationName, req.LineNumber)
	fmt.Fprintf(&sb, "- Position: page %d of %d\n", pageNum, totalPages)
	if previousTail != "" {
		fmt.Fprintf(&sb, "- Previous page ended with: %s\n", previousTail)
	}
	sb.WriteString(`
Page requirements:
- 150-300 chars of engaging content
- 2 to 4 meaningful options
- option amounts between -10 and 10
- tone matching the locked theme

Respond with a single JSON object:
{
    "content": "page text",
    "options": [
        {
            "content": "choice text",
            "effect": "health|sanity|none",
            "amount": -5 to 5,
            "effect_preview": "Health +3"
        }
    ]
}`)
	return sb.String()
}

// EvaluationRequest wraps a serialized draft for the quality scorer.
func EvaluationRequest(draftJSON string) string {
	return fmt.Sprintf(`Evaluate this story:

Story data:
%s

Score it on the 5 criteria and respond with the JSON object only.`, draftJSON)
}
