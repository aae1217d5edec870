package prediction

import (
	"math"
)

// Algorithm labels the scoring pass that produced a Result.
type Algorithm string

const (
	DecisionTree Algorithm = "Decision Tree"
	RandomForest Algorithm = "Random Forest"
	NaiveBayes   Algorithm = "Naive Bayes"
)

// NotFound is reported when no input symptom points to any disease.
const NotFound = "Not Found"

// naiveBayesMissLogProb is the log-likelihood charged to a candidate for each
// input symptom that does not list it. It only affects which candidate wins.
var naiveBayesMissLogProb = math.Log(0.01)

// Result is the top pick of one scoring pass.
type Result struct {
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	Algorithm  Algorithm `json:"algorithm"`
}

// Found reports whether the pass produced a disease.
func (r Result) Found() bool {
	return r.Disease != NotFound
}

// pass describes one scoring heuristic over the shared accumulate-then-pick
// skeleton.
type pass struct {
	algorithm Algorithm
	// ceiling caps the confidence before the final [0,1] clamp.
	ceiling float64
	// increment is added to a candidate each time an input symptom lists it.
	increment func(r RandomSource) float64
	// missPenalty is added to a candidate's ranking score for every input
	// symptom that does not list it. Zero disables it. Confidence is always
	// computed from the accumulated score alone.
	missPenalty float64
	// confidence maps the winner's mean score per input symptom to a raw
	// confidence value.
	confidence func(mean float64, r RandomSource) float64
}

var passes = []pass{
	{
		algorithm: DecisionTree,
		ceiling:   0.95,
		increment: func(RandomSource) float64 { return 1 },
		confidence: func(mean float64, r RandomSource) float64 {
			return mean*0.8 + r.Float64()*0.2
		},
	},
	{
		algorithm: RandomForest,
		ceiling:   0.98,
		increment: func(r RandomSource) float64 { return 0.8 + r.Float64()*0.4 },
		confidence: func(mean float64, r RandomSource) float64 {
			return mean*0.85 + r.Float64()*0.15
		},
	},
	{
		algorithm:   NaiveBayes,
		ceiling:     0.97,
		increment:   func(r RandomSource) float64 { return math.Log(0.7 + r.Float64()*0.3) },
		missPenalty: naiveBayesMissLogProb,
		confidence: func(mean float64, r RandomSource) float64 {
			return math.Exp(mean)*0.9 + r.Float64()*0.1
		},
	},
}

// Algorithms lists the scoring passes in their canonical order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(passes))
	for i, p := range passes {
		out[i] = p.algorithm
	}
	return out
}

func (p pass) run(kb *KnowledgeBase, r RandomSource, symptoms []string) Result {
	notFound := Result{Disease: NotFound, Confidence: 0, Algorithm: p.algorithm}
	if len(symptoms) == 0 {
		return notFound
	}

	scores := make(map[string]float64)
	hits := make(map[string]int)
	for _, symptom := range symptoms {
		for _, disease := range kb.candidates(symptom) {
			scores[disease] += p.increment(r)
			hits[disease]++
		}
	}
	if len(scores) == 0 {
		return notFound
	}

	ranking := scores
	if p.missPenalty != 0 {
		ranking = make(map[string]float64, len(scores))
		for disease, score := range scores {
			ranking[disease] = score + float64(len(symptoms)-hits[disease])*p.missPenalty
		}
	}

	disease, _ := topCandidate(ranking)
	score := scores[disease]
	confidence := math.Min(p.ceiling, p.confidence(score/float64(len(symptoms)), r))

	return Result{
		Disease:    disease,
		Confidence: clampUnit(confidence),
		Algorithm:  p.algorithm,
	}
}

// topCandidate returns the highest scoring disease. Exact ties go to the
// lexicographically smallest name so map iteration order never leaks out.
func topCandidate(scores map[string]float64) (string, float64) {
	var (
		best      string
		bestScore float64
		found     bool
	)
	for disease, score := range scores {
		if !found || score > bestScore || (score == bestScore && disease < best) {
			best, bestScore, found = disease, score, true
		}
	}
	return best, bestScore
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
