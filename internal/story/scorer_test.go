package story

import (
	"context"
	"strings"
	"testing"

	"github.com/behindy-dev/storyserver/internal/services"
)

func newTestScorer(t *testing.T, provider services.Provider) *Scorer {
	t.Helper()
	return NewScorer(provider, testPrompts(t), 70, testLogger())
}

func TestScorerParsesSubScores(t *testing.T) {
	provider := services.NewStubProvider()
	provider.SetGenerateResults(map[string]interface{}{
		"total_score":      82.0,
		"creativity":       18.0,
		"coherence":        16.0,
		"engagement":       17.0,
		"writing_quality":  15.0,
		"game_suitability": 16.0,
		"feedback":         "solid draft",
	})

	score, err := newTestScorer(t, provider).Evaluate(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Total != 82 || !score.Passed {
		t.Errorf("expected passing total 82, got %g passed=%v", score.Total, score.Passed)
	}
	if score.Feedback != "solid draft" {
		t.Errorf("unexpected feedback %q", score.Feedback)
	}
	if len(score.SubScores) != 5 {
		t.Fatalf("expected 5 sub-scores, got %d", len(score.SubScores))
	}
	if score.SubScores["creativity"] != 18 || score.SubScores["writing_quality"] != 15 {
		t.Errorf("unexpected sub-scores: %v", score.SubScores)
	}
}

func TestScorerRejectsMissingSubScore(t *testing.T) {
	result := evaluationResult(80)
	delete(result, "coherence")
	provider := services.NewStubProvider()
	provider.SetGenerateResults(result)

	_, err := newTestScorer(t, provider).Evaluate(context.Background(), validDraft())
	if err == nil {
		t.Fatal("expected an error for a missing sub-score")
	}
	if !strings.Contains(err.Error(), "coherence") {
		t.Errorf("expected the error to name coherence, got %v", err)
	}
}

func TestScorerRejectsOutOfRangeSubScore(t *testing.T) {
	result := evaluationResult(80)
	result["creativity"] = 25.0
	provider := services.NewStubProvider()
	provider.SetGenerateResults(result)

	_, err := newTestScorer(t, provider).Evaluate(context.Background(), validDraft())
	if err == nil {
		t.Fatal("expected an error for an out-of-range sub-score")
	}
}

func TestScorerRejectsMissingTotal(t *testing.T) {
	result := evaluationResult(80)
	delete(result, "total_score")
	provider := services.NewStubProvider()
	provider.SetGenerateResults(result)

	_, err := newTestScorer(t, provider).Evaluate(context.Background(), validDraft())
	if err == nil {
		t.Fatal("expected an error for a missing total_score")
	}
}

func TestScorerFailsBelowThreshold(t *testing.T) {
	provider := services.NewStubProvider()
	provider.SetGenerateResults(evaluationResult(50))

	score, err := newTestScorer(t, provider).Evaluate(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Passed {
		t.Error("expected a 50 total to fail the gate")
	}
}
