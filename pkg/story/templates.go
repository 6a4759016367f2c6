package story

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Metadata is the story-level information generated before any pages.
type Metadata struct {
	StoryTitle      string   `json:"story_title"`
	Description     string   `json:"description"`
	Theme           Theme    `json:"theme"`
	Keywords        []string `json:"keywords"`
	Difficulty      string   `json:"difficulty"`
	EstimatedLength int      `json:"estimated_length"`
}

// TemplateGenerator produces deterministic story content keyed by
// station and theme. It backs the local provider and every fallback
// path, so the service can always answer with a well-formed story.
type TemplateGenerator struct {
	rng *rand.Rand
}

// NewTemplateGenerator creates a generator. A nil rng gets a
// time-seeded source; tests pass a seeded one.
func NewTemplateGenerator(rng *rand.Rand) *TemplateGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &TemplateGenerator{rng: rng}
}

// FallbackTheme picks a replacement theme for the station from the
// generator's seeded source.
func (g *TemplateGenerator) FallbackTheme(stationName string) Theme {
	return FallbackTheme(stationName, g.rng)
}

// FirstPageResult returns a raw single-player page result in the same
// shape a remote provider would produce.
func (g *TemplateGenerator) FirstPageResult(stationName string, health, sanity int) map[string]interface{} {
	theme := FallbackTheme(stationName, g.rng)
	options := g.Options(theme)

	rawOptions := make([]interface{}, 0, len(options))
	for _, opt := range options {
		rawOptions = append(rawOptions, map[string]interface{}{
			"content":        opt.Content,
			"effect":         opt.Effect,
			"amount":         opt.Amount,
			"effect_preview": opt.EffectPreview,
		})
	}

	return map[string]interface{}{
		"story_title":      fmt.Sprintf("The %s of %s Station", themeNoun(theme), stationName),
		"page_content":     g.opening(stationName, theme, health, sanity),
		"options":          rawOptions,
		"estimated_length": 6,
		"difficulty":       ThemeDifficulty(theme),
		"theme":            string(theme),
		"station_name":     stationName,
		"line_number":      StationLine(stationName),
	}
}

// Metadata returns deterministic story metadata for a station.
func (g *TemplateGenerator) Metadata(stationName string, lineNumber int) Metadata {
	theme := FallbackTheme(stationName, g.rng)
	return Metadata{
		StoryTitle:  fmt.Sprintf("The %s of %s Station", themeNoun(theme), stationName),
		Description: fmt.Sprintf("A %s story unfolding in the depths of %s station.", theme, stationName),
		Theme:       theme,
		Keywords: []string{
			stationName,
			fmt.Sprintf("line %d", lineNumber),
			"subway",
			string(theme),
			ThemeKeyword(theme),
		},
		Difficulty:      ThemeDifficulty(theme),
		EstimatedLength: 4 + g.rng.Intn(3),
	}
}

// ThemedPage returns the page for position pageNum of total, with an
// opening, middle or ending template depending on position.
func (g *TemplateGenerator) ThemedPage(stationName string, theme Theme, pageNum, total int) Page {
	var content string
	switch {
	case pageNum == 1:
		content = g.opening(stationName, theme, 0, 0)
	case pageNum == total:
		content = ending(stationName, theme)
	default:
		content = middle(stationName, theme, pageNum, total)
	}
	return Page{Content: content, Options: g.Options(theme)[:2]}
}

// FallbackPage is the per-page replacement used when a single page
// fails generation mid-story.
func (g *TemplateGenerator) FallbackPage(pageNum, total int, theme Theme) Page {
	var content string
	var options []Option
	switch theme {
	case ThemeHorror:
		content = fmt.Sprintf("The dread does not let up. (page %d/%d) Something in the dark is still watching you.", pageNum, total)
		options = []Option{
			{Content: "Face the fear head on", Effect: EffectHealth, Amount: -6, EffectPreview: "Health -6"},
			{Content: "Hold your nerve", Effect: EffectSanity, Amount: 2, EffectPreview: "Sanity +2"},
		}
	case ThemeThriller:
		content = fmt.Sprintf("The tension peaks. (page %d/%d) Time is running out and you need to decide fast.", pageNum, total)
		options = []Option{
			{Content: "Act immediately", Effect: EffectHealth, Amount: -4, EffectPreview: "Health -4"},
			{Content: "Keep a cool head", Effect: EffectSanity, Amount: 2, EffectPreview: "Sanity +2"},
		}
	default:
		content = fmt.Sprintf("The riddle deepens. (page %d/%d) A new clue has surfaced, but its meaning escapes you.", pageNum, total)
		options = []Option{
			{Content: "Analyze the clue", Effect: EffectSanity, Amount: 3, EffectPreview: "Sanity +3"},
			{Content: "Investigate in person", Effect: EffectHealth, Amount: -2, EffectPreview: "Health -2"},
		}
	}
	return Page{Content: content, Options: options}
}

// Options returns the themed first-page option set (three choices).
func (g *TemplateGenerator) Options(theme Theme) []Option {
	switch theme {
	case ThemeHorror:
		return []Option{
			{Content: "Walk toward the source of the sound", Effect: EffectHealth, Amount: -8, EffectPreview: "Health -8"},
			{Content: "Calmly observe your surroundings", Effect: EffectSanity, Amount: 2, EffectPreview: "Sanity +2"},
			{Content: "Hurry to find another exit", Effect: EffectSanity, Amount: -3, EffectPreview: "Sanity -3"},
		}
	case ThemeThriller:
		return []Option{
			{Content: "Act boldly, right now", Effect: EffectHealth, Amount: -6, EffectPreview: "Health -6"},
			{Content: "Read the situation coldly", Effect: EffectSanity, Amount: 3, EffectPreview: "Sanity +3"},
			{Content: "Wait for the right moment", Effect: EffectSanity, Amount: -2, EffectPreview: "Sanity -2"},
		}
	default:
		return []Option{
			{Content: "Search aggressively for clues", Effect: EffectHealth, Amount: -3, EffectPreview: "Health -3"},
			{Content: "Reason through what you know", Effect: EffectSanity, Amount: 5, EffectPreview: "Sanity +5"},
			{Content: "Gather information carefully", Effect: EffectNone, Amount: 0, EffectPreview: "No change"},
		}
	}
}

// ContinuePage returns the follow-up page after a player choice. The
// branch is keyed on the wording of the previous choice, mirroring the
// first-page option sets.
func (g *TemplateGenerator) ContinuePage(previousChoice, stationName string) ContinueResponse {
	theme := FallbackTheme(stationName, g.rng)

	var content string
	var options []Option
	switch theme {
	case ThemeHorror:
		switch {
		case strings.Contains(previousChoice, "source"):
			content = "You walk into the dark and the awful truth reveals itself. It cost you, but now you know what haunts this station."
			options = []Option{
				{Content: "See it through", Effect: EffectHealth, Amount: -5, EffectPreview: "Health -5"},
				{Content: "Run", Effect: EffectSanity, Amount: -8, EffectPreview: "Sanity -8"},
			}
		case strings.Contains(previousChoice, "observe"):
			content = "Cold observation pays off. You understand what you are facing, and your mind steadies."
			options = []Option{
				{Content: "Respond with a plan", Effect: EffectSanity, Amount: 3, EffectPreview: "Sanity +3"},
				{Content: "Approach carefully", Effect: EffectHealth, Amount: 2, EffectPreview: "Health +2"},
			}
		default:
			content = "Searching for another way out, you stumble into something worse. The shock is real, but so is the new route you found."
			options = []Option{
				{Content: "Escape by the new route", Effect: EffectHealth, Amount: 3, EffectPreview: "Health +3"},
				{Content: "Go back the way you came", Effect: EffectSanity, Amount: -2, EffectPreview: "Sanity -2"},
			}
		}
	case ThemeThriller:
		switch {
		case strings.Contains(previousChoice, "boldly"):
			content = "Your bold move changes everything. You are drained, but you hold the initiative now."
			options = []Option{
				{Content: "Keep up the pressure", Effect: EffectHealth, Amount: -4, EffectPreview: "Health -4"},
				{Content: "Pause and regroup", Effect: EffectHealth, Amount: 3, EffectPreview: "Health +3"},
			}
		case strings.Contains(previousChoice, "coldly"):
			content = "A cold read of the situation hands you the best response. You are calm, and you are in control."
			options = []Option{
				{Content: "Execute the plan", Effect: EffectHealth, Amount: 2, EffectPreview: "Health +2"},
				{Content: "Refine the plan further", Effect: EffectSanity, Amount: 2, EffectPreview: "Sanity +2"},
			}
		default:
			content = "Waiting was the right call. The tension lingers, but an opening has appeared and you stand in a better spot."
			options = []Option{
				{Content: "Take the opening", Effect: EffectSanity, Amount: 4, EffectPreview: "Sanity +4"},
				{Content: "Wait a little longer", Effect: EffectSanity, Amount: -1, EffectPreview: "Sanity -1"},
			}
		}
	default:
		switch {
		case strings.Contains(previousChoice, "aggressively"):
			content = "Your search turns up a crucial clue. It wore you down, but the truth is one step closer."
			options = []Option{
				{Content: "Study the clue", Effect: EffectSanity, Amount: 4, EffectPreview: "Sanity +4"},
				{Content: "Look for more evidence", Effect: EffectHealth, Amount: -2, EffectPreview: "Health -2"},
			}
		case strings.Contains(previousChoice, "Reason"):
			content = "The pieces fall into place. The whole shape of the case comes into view and a way forward is clear."
			options = []Option{
				{Content: "Verify your reasoning", Effect: EffectSanity, Amount: 2, EffectPreview: "Sanity +2"},
				{Content: "Draw your conclusion", Effect: EffectNone, Amount: 0, EffectPreview: "No change"},
			}
		default:
			content = "Careful inquiry moves you forward without drawing attention. It took time, but you avoided the danger."
			options = []Option{
				{Content: "Collect more information", Effect: EffectSanity, Amount: 3, EffectPreview: "Sanity +3"},
				{Content: "Work with what you have", Effect: EffectHealth, Amount: 1, EffectPreview: "Health +1"},
			}
		}
	}

	return ContinueResponse{
		PageContent: content,
		Options:     options,
		IsLastPage:  len(options) < MinOptions,
	}
}

func (g *TemplateGenerator) opening(stationName string, theme Theme, health, sanity int) string {
	status := ""
	if health > 0 || sanity > 0 {
		status = fmt.Sprintf("\n\nCurrent state - health: %d, sanity: %d", health, sanity)
	}
	switch theme {
	case ThemeHorror:
		return fmt.Sprintf("The moment you step onto the platform at %s station, a chill wraps around you. Something moves in the dark beyond the lights.%s\n\nA strange sound carries down the tunnel. What do you do?", stationName, status)
	case ThemeThriller:
		return fmt.Sprintf("Something is badly wrong at %s station. You can feel eyes on your back, and the clock is against you.%s\n\nThis moment demands a fast decision. How do you act?", stationName, status)
	default:
		return fmt.Sprintf("Something strange is happening at %s station. The mood is off, the signs don't read right, and the people won't meet your eyes.%s\n\nThere is a secret buried here. How do you investigate?", stationName, status)
	}
}

func ending(stationName string, theme Theme) string {
	switch theme {
	case ThemeHorror:
		return fmt.Sprintf("At last the dreadful truth of %s station stands before you. The moment of choice has come...", stationName)
	case ThemeThriller:
		return fmt.Sprintf("The crisis at %s station reaches its peak. You must make the final call...", stationName)
	default:
		return fmt.Sprintf("The riddle of %s station unravels. Every clue connects into a single answer...", stationName)
	}
}

func middle(stationName string, theme Theme, pageNum, total int) string {
	switch theme {
	case ThemeHorror:
		return fmt.Sprintf("The dread keeps building. (page %d/%d) The dark of %s station grows deeper around you.", pageNum, total, stationName)
	case ThemeThriller:
		return fmt.Sprintf("The tension rises. (page %d/%d) The chase through %s station is not over yet.", pageNum, total, stationName)
	default:
		return fmt.Sprintf("The mystery tangles further. (page %d/%d) The hidden truth of %s station shows itself piece by piece.", pageNum, total, stationName)
	}
}

func themeNoun(theme Theme) string {
	switch theme {
	case ThemeHorror:
		return "Horror"
	case ThemeThriller:
		return "Chase"
	default:
		return "Mystery"
	}
}
