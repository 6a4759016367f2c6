package story

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/behindy-dev/storyserver/internal/services"
	"github.com/behindy-dev/storyserver/pkg/prompts"
)

// Score is a quality verdict for one story draft.
type Score struct {
	Total     float64            `json:"total_score"`
	SubScores map[string]float64 `json:"sub_scores"`
	Feedback  string             `json:"feedback"`
	Passed    bool               `json:"passed"`
}

// subScoreKeys are the per-dimension grades the evaluation prompt
// asks for, each on a 0-20 scale.
var subScoreKeys = []string{
	"creativity",
	"coherence",
	"engagement",
	"writing_quality",
	"game_suitability",
}

// Scorer judges drafts by asking the provider to grade them. It fails
// closed: any scoring failure is an error, never a silent pass.
type Scorer struct {
	provider services.Provider
	prompts  *prompts.Manager
	minScore float64
	logger   *slog.Logger
}

func NewScorer(provider services.Provider, pm *prompts.Manager, minScore float64, logger *slog.Logger) *Scorer {
	return &Scorer{
		provider: provider,
		prompts:  pm,
		minScore: minScore,
		logger:   logger,
	}
}

// Evaluate grades a draft against the quality gate.
func (s *Scorer) Evaluate(ctx context.Context, draft map[string]interface{}) (Score, error) {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return Score{}, fmt.Errorf("marshaling draft for evaluation: %w", err)
	}

	result, err := s.provider.Generate(ctx, services.GenerateRequest{
		SystemPrompt: s.prompts.EvaluationPrompt(s.provider.Name()),
		UserPrompt:   prompts.EvaluationRequest(string(draftJSON)),
	})
	if err != nil {
		return Score{}, fmt.Errorf("evaluation call failed: %w", err)
	}

	total, ok := numberField(result, "total_score")
	if !ok {
		return Score{}, fmt.Errorf("evaluation response has no numeric total_score")
	}
	if total < 0 || total > 100 {
		return Score{}, fmt.Errorf("evaluation score %g out of range", total)
	}

	subScores := make(map[string]float64, len(subScoreKeys))
	for _, key := range subScoreKeys {
		sub, ok := numberField(result, key)
		if !ok {
			return Score{}, fmt.Errorf("evaluation response has no numeric %s", key)
		}
		if sub < 0 || sub > 20 {
			return Score{}, fmt.Errorf("evaluation %s score %g out of range", key, sub)
		}
		subScores[key] = sub
	}

	feedback, _ := result["feedback"].(string)
	score := Score{
		Total:     total,
		SubScores: subScores,
		Feedback:  feedback,
		Passed:    total >= s.minScore,
	}

	s.logger.Debug("draft evaluated",
		"total_score", score.Total,
		"passed", score.Passed)
	return score, nil
}

func numberField(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
