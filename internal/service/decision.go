package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const decisionPromptTemplate = `
Analyze the following insurance/policy question and answer to extract structured information:

QUESTION: %s
ANSWER: %s
CONTEXT: %s

Extract the following information in JSON format:
{
    "decision": "approved/rejected/needs_review/not_applicable",
    "amount": null or numeric value if mentioned,
    "waiting_period": null or period if mentioned,
    "conditions": ["list", "of", "conditions"],
    "coverage_type": "type of coverage if applicable"
}

Provide only the JSON response:
`

// DecisionAnalysis is the structured reading of an answer.
type DecisionAnalysis struct {
	Decision      string   `json:"decision"`
	Amount        *float64 `json:"amount"`
	WaitingPeriod *string  `json:"waiting_period"`
	Conditions    []string `json:"conditions"`
	CoverageType  *string  `json:"coverage_type"`
}

func defaultDecision() DecisionAnalysis {
	return DecisionAnalysis{Decision: domain.DecisionNotApplicable, Conditions: []string{}}
}

// DecisionAnalyzer asks the generator to classify an answer.
type DecisionAnalyzer struct {
	generator Generator
}

func NewDecisionAnalyzer(generator Generator) *DecisionAnalyzer {
	return &DecisionAnalyzer{generator: generator}
}

// Analyze never fails; unusable model output yields a not_applicable analysis.
func (a *DecisionAnalyzer) Analyze(ctx context.Context, question, answer, clauses string) DecisionAnalysis {
	raw, err := a.generator.Generate(ctx, fmt.Sprintf(decisionPromptTemplate, question, answer, clauses))
	if err != nil {
		log.Printf("WARN: decision analysis failed: %v", err)
		return defaultDecision()
	}
	return ParseDecision(raw)
}

// ParseDecision decodes a model reply, tolerating a fenced code block around the JSON.
func ParseDecision(raw string) DecisionAnalysis {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out DecisionAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return defaultDecision()
	}
	switch out.Decision {
	case domain.DecisionApproved, domain.DecisionRejected, domain.DecisionNeedsReview, domain.DecisionNotApplicable:
	default:
		out.Decision = domain.DecisionNotApplicable
	}
	if out.Conditions == nil {
		out.Conditions = []string{}
	}
	return out
}
