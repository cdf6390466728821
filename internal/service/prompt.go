package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const answerPromptTemplate = `
You are an intelligent document analysis assistant. Your task is to answer questions based on the provided document clauses.

INSTRUCTIONS:
1. Analyze the provided clauses carefully
2. Answer the question directly and concisely
3. Base your answer ONLY on the information provided in the clauses
4. If the information is not available in the clauses, state that clearly
5. Include relevant clause references in your answer when applicable
6. Provide specific details like waiting periods, coverage amounts, conditions, etc.

QUESTION: %s

RELEVANT CLAUSES:
%s

ANSWER: Provide a clear, direct answer based on the clauses above. Include specific details and reference the relevant clause information.
`

const noContextPromptTemplate = `
You are an intelligent document analysis assistant. The document search service is currently unavailable, so no clauses could be retrieved for this question.

QUESTION: %s

ANSWER: State clearly that the relevant document clauses could not be retrieved and that the question cannot be answered reliably right now. Do not guess at policy details.
`

// FallbackAnswer is returned when the generator fails for question.
func FallbackAnswer(question string) string {
	return "Unable to generate answer for the question: " + question
}

// FormatClauses renders matches as numbered clauses with their similarity.
func FormatClauses(matches []domain.RetrievalMatch) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("[Clause %d] (Similarity: %.3f)\n%s\n", i+1, m.Score, m.Text)
	}
	return strings.Join(parts, "\n")
}

// BuildAnswerPrompt picks the no-context prompt when retrieval was unavailable.
func BuildAnswerPrompt(question string, matches []domain.RetrievalMatch, retrievalAvailable bool) string {
	if !retrievalAvailable {
		return fmt.Sprintf(noContextPromptTemplate, question)
	}
	return fmt.Sprintf(answerPromptTemplate, question, FormatClauses(matches))
}
