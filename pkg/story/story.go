package story

import "fmt"

// Theme is the narrative genre of a story. Only three themes are
// allowed; anything else a provider proposes is replaced by a
// per-station fallback before the story is returned.
type Theme string

const (
	ThemeMystery  Theme = "mystery"
	ThemeHorror   Theme = "horror"
	ThemeThriller Theme = "thriller"
)

// AllowedThemes is the closed set of themes the game backend accepts.
var AllowedThemes = []Theme{ThemeMystery, ThemeHorror, ThemeThriller}

// IsAllowed reports whether the theme is in the allowed set.
func (t Theme) IsAllowed() bool {
	for _, a := range AllowedThemes {
		if t == a {
			return true
		}
	}
	return false
}

// Option effect kinds. An option either changes health, changes sanity,
// or does nothing.
const (
	EffectHealth = "health"
	EffectSanity = "sanity"
	EffectNone   = "none"
)

// Option amount bounds enforced by the structural validator.
const (
	MinEffectAmount = -10
	MaxEffectAmount = 10
)

// Options per page enforced by the structural validator.
const (
	MinOptions = 2
	MaxOptions = 4
)

// Option is a single player choice on a story page.
type Option struct {
	Content       string `json:"content"`
	Effect        string `json:"effect"`
	Amount        int    `json:"amount"`
	EffectPreview string `json:"effect_preview"`
}

// Page is one page of a branching story with 2-4 options.
type Page struct {
	Content string   `json:"content"`
	Options []Option `json:"options"`
}

// BatchStoryRequest is the full-story generation request sent by the
// game backend (scheduler or public caller).
type BatchStoryRequest struct {
	StationName     string `json:"station_name"`
	LineNumber      int    `json:"line_number"`
	CharacterHealth int    `json:"character_health"`
	CharacterSanity int    `json:"character_sanity"`
	StoryType       string `json:"story_type"`
}

func (r *BatchStoryRequest) Validate() error {
	if r.StationName == "" {
		return fmt.Errorf("station_name cannot be empty")
	}
	if r.LineNumber < 1 || r.LineNumber > 4 {
		return fmt.Errorf("line_number must be between 1 and 4")
	}
	if r.CharacterHealth < 0 || r.CharacterHealth > 100 {
		return fmt.Errorf("character_health must be between 0 and 100")
	}
	if r.CharacterSanity < 0 || r.CharacterSanity > 100 {
		return fmt.Errorf("character_sanity must be between 0 and 100")
	}
	return nil
}

// BatchStoryResponse is a complete multi-page story, ready for the game
// backend to persist. EstimatedLength always equals len(Pages).
type BatchStoryResponse struct {
	StoryTitle      string   `json:"story_title"`
	Description     string   `json:"description"`
	Theme           Theme    `json:"theme"`
	Keywords        []string `json:"keywords"`
	Pages           []Page   `json:"pages"`
	EstimatedLength int      `json:"estimated_length"`
	Difficulty      string   `json:"difficulty"`
	StationName     string   `json:"station_name"`
	LineNumber      int      `json:"line_number"`
}

// GenerationRequest asks for the first page of a new single-player story.
type GenerationRequest struct {
	StationName     string `json:"station_name"`
	LineNumber      int    `json:"line_number"`
	CharacterHealth int    `json:"character_health"`
	CharacterSanity int    `json:"character_sanity"`
	ThemePreference string `json:"theme_preference,omitempty"`
}

// ContinueRequest asks for the next page after a player choice.
type ContinueRequest struct {
	StationName     string `json:"station_name"`
	LineNumber      int    `json:"line_number"`
	CharacterHealth int    `json:"character_health"`
	CharacterSanity int    `json:"character_sanity"`
	PreviousChoice  string `json:"previous_choice"`
	StoryContext    string `json:"story_context,omitempty"`
	Theme           Theme  `json:"theme,omitempty"`
}

// GenerationResponse is a single validated story page plus metadata.
// QualityScore and QualityFeedback are attached by the quality pipeline.
type GenerationResponse struct {
	StoryTitle      string   `json:"story_title"`
	PageContent     string   `json:"page_content"`
	Options         []Option `json:"options"`
	EstimatedLength int      `json:"estimated_length"`
	Difficulty      string   `json:"difficulty"`
	Theme           Theme    `json:"theme"`
	StationName     string   `json:"station_name"`
	LineNumber      int      `json:"line_number"`
	QualityScore    float64  `json:"quality_score,omitempty"`
	QualityFeedback string   `json:"quality_feedback,omitempty"`
}

// ContinueResponse is the next page of an in-progress story.
type ContinueResponse struct {
	PageContent string   `json:"page_content"`
	Options     []Option `json:"options"`
	IsLastPage  bool     `json:"is_last_page"`
}
