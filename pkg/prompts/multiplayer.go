package prompts

import (
	"fmt"
	"strings"

	"github.com/behindy-dev/storyserver/pkg/multiplayer"
	"github.com/behindy-dev/storyserver/pkg/story"
)

// MultiplayerSystemPrompt is the system prompt shared by all
// cooperative-session phases.
const MultiplayerSystemPrompt = `You narrate a cooperative subway horror-mystery adventure for a party of players.

Rules:
- Stay consistent with the story outline and earlier phase summaries
- React to what the players said and did
- Keep each phase to one vivid scene
- Respond with JSON only, no prose outside the object`

// IntroPrompt builds the prompt for the opening phase of a session.
// The opening must fix a full arc of 5 to 8 phases.
func IntroPrompt(req multiplayer.PhaseRequest) string {
	var sb strings.Builder
	theme := story.FallbackTheme(req.StationName, nil)
	sb.WriteString("Open a new cooperative adventure.\n\n")
	fmt.Fprintf(&sb, "Setting: %s station (line %d)\n", req.StationName, req.LineNumber)
	fmt.Fprintf(&sb, "Theme: %s\n", theme)
	sb.WriteString("Party:\n")
	for _, p := range req.Participants {
		fmt.Fprintf(&sb, "- %s (HP %d, sanity %d)\n", p.CharacterName, p.HP, p.Sanity)
	}
	fmt.Fprintf(&sb, `
Plan the whole story now. The arc must span %d to %d phases and build
to a climax before resolving. Then write the opening scene.

Respond with a single JSON object:
{
    "story_outline": "the full planned arc, phase by phase (200-400 chars)",
    "story_content": {
        "current_situation": "the opening scene (200-400 chars)",
        "special_event": "an event pulling the party in",
        "hint": "a nudge toward what to try first"
    },
    "phase_summary": "one-line summary of the opening"
}`, multiplayer.MinPhases, multiplayer.MaxPhases)
	return sb.String()
}

// PhasePrompt builds the prompt that advances a running session by one
// phase. From the climax phase on it steers toward resolution, and at
// the final phase it demands an ending.
func PhasePrompt(req multiplayer.PhaseRequest) string {
	next := req.Phase + 1
	var sb strings.Builder
	fmt.Fprintf(&sb, "Advance the adventure to phase %d.\n\n", next)
	fmt.Fprintf(&sb, "Setting: %s station (line %d)\n", req.StationName, req.LineNumber)
	if req.StoryOutline != "" {
		fmt.Fprintf(&sb, "\nStory outline:\n%s\n", req.StoryOutline)
	}
	if len(req.PhaseSummaries) > 0 {
		sb.WriteString("\nEarlier phases:\n")
		for _, s := range req.PhaseSummaries {
			fmt.Fprintf(&sb, "- Phase %d: %s\n", s.Phase, s.Summary)
		}
	}
	sb.WriteString("\nParty:\n")
	for _, p := range req.Participants {
		fmt.Fprintf(&sb, "- %s (HP %d, sanity %d)\n", p.CharacterName, p.HP, p.Sanity)
	}
	if msgs := req.WindowedMessages(); len(msgs) > 0 {
		sb.WriteString("\nWhat the players just said and did:\n")
		for _, m := range msgs {
			fmt.Fprintf(&sb, "- %s: %s\n", m.CharacterName, m.Content)
		}
	}

	switch {
	case next >= multiplayer.EndingPhase:
		fmt.Fprintf(&sb, `
This is the FINAL phase. You MUST end the story now. Resolve every
thread from the outline. Set "is_ending" to true and write an
"ending_summary" of 500 to 1000 characters covering the whole story.
`)
	case next >= multiplayer.ClimaxPhase:
		sb.WriteString(`
The story is at or past its climax. Raise the stakes and steer toward
the resolution. You may end the story if the arc is complete: set
"is_ending" to true and include an "ending_summary" of 500 to 1000
characters.
`)
	}

	sb.WriteString(`
Respond with a single JSON object:
{
    "story_content": {
        "current_situation": "the next scene (200-400 chars)",
        "special_event": "what just happened or null",
        "hint": "a nudge toward the next move or null"
    },
    "phase_summary": "one-line summary of this phase",
    "effects": [
        {"character_name": "name", "hp_change": -2 to 1, "sanity_change": -2 to 1}
    ],
    "is_ending": false,
    "ending_summary": null
}`)
	return sb.String()
}
