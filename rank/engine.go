// Package rank scores stored templates against a search query using hybrid
// relevance: keyword, semantic, recency, and usage signals.
package rank

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/prompts"
)

// Scoring weights and thresholds.
const (
	nameMatchScore        = 10.0
	descriptionMatchScore = 5.0
	tagMatchScore         = 3.0
	semanticWeight        = 25.0
	recencyWindowDays     = 5.0
	usageWeight           = 5.0
	// scoreThreshold drops noise matches with no keyword or semantic
	// signal and only marginal recency/usage contribution.
	scoreThreshold = 0.5
)

// Ranked pairs a template with its relevance score.
type Ranked struct {
	Template *prompts.Template
	Score    float64
}

// TemplateSource supplies the templates to rank.
type TemplateSource interface {
	GetAll() ([]*prompts.Template, error)
}

// Engine scores and sorts templates against queries.
type Engine struct {
	source  TemplateSource
	logger  *zap.SugaredLogger
	timeNow func() time.Time
}

// NewEngine creates a ranking engine with real time.
func NewEngine(source TemplateSource, logger *zap.SugaredLogger) *Engine {
	return NewEngineWithClock(source, logger, time.Now)
}

// NewEngineWithClock creates a ranking engine with an injectable clock
// (for testing recency decay).
func NewEngineWithClock(source TemplateSource, logger *zap.SugaredLogger, timeNow func() time.Time) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{source: source, logger: logger, timeNow: timeNow}
}

// Search scores every stored template against the query and returns matches
// above the noise threshold, sorted by descending score.
//
// An empty query is a pass-through: all templates, unscored, in store order.
// queryEmbedding may be nil; semantic scoring then contributes nothing.
func (e *Engine) Search(query string, queryEmbedding []float32) ([]Ranked, error) {
	templates, err := e.source.GetAll()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		ranked := make([]Ranked, len(templates))
		for i, t := range templates {
			ranked[i] = Ranked{Template: t}
		}
		return ranked, nil
	}

	now := e.timeNow()
	var results []Ranked
	for _, t := range templates {
		score := e.score(t, query, queryEmbedding, now)
		if score > scoreThreshold {
			results = append(results, Ranked{Template: t, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	e.logger.Debugw("Search ranked templates",
		"query", query,
		"candidates", len(templates),
		"matches", len(results),
		"semantic", queryEmbedding != nil,
	)

	return results, nil
}

// score sums the four independent relevance terms.
func (e *Engine) score(t *prompts.Template, query string, queryEmbedding []float32, now time.Time) float64 {
	score := keywordScore(t, query)

	// Semantic term applies only when both sides carry an embedding
	if len(queryEmbedding) > 0 && len(t.Embedding) > 0 {
		score += semanticWeight * CosineSimilarity(queryEmbedding, t.Embedding)
	}

	// Linear recency decay: +5 at zero days, 0 at >= 5 days
	days := now.Sub(t.UpdatedAt).Hours() / 24
	score += math.Max(0, recencyWindowDays-days)

	// Diminishing-returns usage boost
	score += math.Log10(float64(t.UsageCount)+1) * usageWeight

	return score
}

func keywordScore(t *prompts.Template, query string) float64 {
	q := strings.ToLower(query)
	score := 0.0

	if strings.Contains(strings.ToLower(t.Name), q) {
		score += nameMatchScore
	}
	if t.Description != "" && strings.Contains(strings.ToLower(t.Description), q) {
		score += descriptionMatchScore
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += tagMatchScore
			break
		}
	}

	return score
}

// CosineSimilarity computes dot(a,b)/(‖a‖·‖b‖). Mismatched lengths and
// zero-norm vectors return 0 rather than an error or NaN, neutralizing the
// semantic term for degenerate inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
