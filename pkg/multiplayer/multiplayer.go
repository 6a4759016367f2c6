// Package multiplayer defines the wire types for the multi-participant
// phase engine. The engine is stateless between calls: the caller owns
// the conversation state and sends the full history with every request.
package multiplayer

import "fmt"

// MessageWindow is how many of the most recent chat messages the engine
// reads. Older messages are trimmed at the boundary, once, when the
// request is consumed.
const MessageWindow = 20

// Phase thresholds. The story arc is designed to resolve in 5-8 phases:
// from ClimaxPhase the prompt steers toward the climax, and from
// EndingPhase the provider must end the story.
const (
	MinPhases   = 5
	MaxPhases   = 8
	ClimaxPhase = 6
	EndingPhase = 8
)

// Participant is one player character in the room.
type Participant struct {
	CharacterName string `json:"character_name"`
	HP            int    `json:"hp"`
	Sanity        int    `json:"sanity"`
}

// Message is a single chat message from the rolling room history.
type Message struct {
	CharacterName string `json:"character_name"`
	Content       string `json:"content"`
}

// PhaseSummary is the carried-forward summary of one completed phase.
type PhaseSummary struct {
	Phase   int    `json:"phase"`
	Summary string `json:"summary"`
}

// StoryContent is the structured narrative beat of a phase.
type StoryContent struct {
	CurrentSituation string `json:"current_situation"`
	SpecialEvent     string `json:"special_event"`
	Hint             string `json:"hint"`
}

// ParticipantUpdate is a per-character stat delta for one phase. The
// engine emits exactly one update per known participant.
type ParticipantUpdate struct {
	CharacterName string `json:"character_name"`
	HPChange      int    `json:"hp_change"`
	SanityChange  int    `json:"sanity_change"`
}

// PhaseRequest advances a room's story by one phase. IsIntro starts a
// new story; otherwise Phase is the room's current phase and the
// response carries Phase+1.
type PhaseRequest struct {
	RoomID         string         `json:"room_id"`
	StationName    string         `json:"station_name"`
	LineNumber     int            `json:"line_number"`
	Phase          int            `json:"current_phase"`
	IsIntro        bool           `json:"is_intro"`
	StoryOutline   string         `json:"story_outline,omitempty"`
	PhaseSummaries []PhaseSummary `json:"phase_summaries,omitempty"`
	RecentMessages []Message      `json:"recent_messages"`
	Participants   []Participant  `json:"participants"`
}

func (r *PhaseRequest) Validate() error {
	if r.StationName == "" {
		return fmt.Errorf("station_name cannot be empty")
	}
	if r.Phase < 0 {
		return fmt.Errorf("current_phase cannot be negative")
	}
	if len(r.Participants) == 0 {
		return fmt.Errorf("participants cannot be empty")
	}
	for _, p := range r.Participants {
		if p.CharacterName == "" {
			return fmt.Errorf("participant character_name cannot be empty")
		}
	}
	return nil
}

// WindowedMessages returns the most recent MessageWindow messages.
func (r *PhaseRequest) WindowedMessages() []Message {
	if len(r.RecentMessages) <= MessageWindow {
		return r.RecentMessages
	}
	return r.RecentMessages[len(r.RecentMessages)-MessageWindow:]
}

// PhaseResponse is the engine's answer for one phase. It is always
// structurally complete: failure paths return a deterministic fallback
// of this same shape, never an error body.
type PhaseResponse struct {
	Phase         int                 `json:"phase"`
	StoryContent  StoryContent        `json:"story_content"`
	StoryOutline  string              `json:"story_outline,omitempty"`
	PhaseSummary  string              `json:"phase_summary"`
	Effects       []ParticipantUpdate `json:"effects"`
	IsEnding      bool                `json:"is_ending"`
	EndingSummary string              `json:"ending_summary,omitempty"`
}
