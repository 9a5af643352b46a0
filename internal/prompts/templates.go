// Package prompts holds the Q&A prompt templates and context
// formatting used for answer generation.
package prompts

import (
	"fmt"
	"strings"

	"github.com/dhalloran/paperqa/internal/paper"
)

// Response modes.
const (
	ModeAcademic = "academic"
	ModeSimple   = "simple"
	ModeELI5     = "eli5"
)

// System is the system prompt for the research assistant.
const System = `You are an expert AI research paper assistant. Your role is to help students and researchers understand academic papers by providing accurate, well-structured answers based on the provided context.

Key guidelines:
1. ONLY answer based on the provided context from the paper(s)
2. If the context doesn't contain enough information to answer, say so clearly
3. Use academic language but remain accessible
4. When referencing specific information, mention the section and page number
5. Structure longer answers with clear headings or bullet points
6. Be concise but thorough`

const academicPrompt = `You are an expert AI research paper assistant providing academic-level explanations.

## Retrieved Context from Paper(s):
{context}

## User Question:
{question}

## Instructions:
- Provide a thorough, academic answer based ONLY on the context above
- Reference page numbers and sections when citing specific information (e.g., "According to the Methodology section on page 5...")
- If the context doesn't contain enough information, clearly state what's missing
- Use proper academic terminology

## Answer:`

const simplePrompt = `You are a helpful research assistant explaining academic concepts in plain language.

## Retrieved Context from Paper(s):
{context}

## User Question:
{question}

## Instructions:
- Explain the answer in simple, everyday language
- Avoid technical jargon - if you must use a technical term, explain it
- Use analogies or examples when helpful
- Still reference where the information comes from (page/section)
- Base your answer ONLY on the provided context

## Answer:`

const eli5Prompt = `You are explaining research paper concepts to someone who has no background in this field at all.

## Retrieved Context from Paper(s):
{context}

## User Question:
{question}

## Instructions:
- Explain like you're talking to a curious 5-year-old
- Use simple words and fun analogies
- Break down complex ideas into tiny, understandable pieces
- Keep it short and engaging
- Still be accurate to what's in the paper
- Mention which part of the paper this comes from

## Answer:`

// Template returns the prompt template for a response mode. Unknown
// modes fall back to academic.
func Template(mode string) string {
	switch mode {
	case ModeSimple:
		return simplePrompt
	case ModeELI5:
		return eli5Prompt
	default:
		return academicPrompt
	}
}

// IsValidMode reports whether mode is one of the supported response modes.
func IsValidMode(mode string) bool {
	switch mode {
	case ModeAcademic, ModeSimple, ModeELI5:
		return true
	}
	return false
}

// FormatContext renders retrieved chunks into numbered source blocks.
func FormatContext(chunks []paper.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Source %d - %s, Page %d]\n%s", i+1, c.Section, c.Page, c.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Build assembles the complete user prompt for a question and its
// retrieved context.
func Build(question string, chunks []paper.RetrievedChunk, mode string) string {
	r := strings.NewReplacer(
		"{context}", FormatContext(chunks),
		"{question}", question,
	)
	return r.Replace(Template(mode))
}
