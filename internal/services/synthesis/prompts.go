package synthesis

import (
	"fmt"
	"strings"

	"github.com/ternarybob/respondeo/internal/services/assembler"
)

// GroundingSystemPrompt is the strict grounding contract the model
// answers under. Every factual claim must be backed by a supplied
// source; parametric knowledge is explicitly off limits.
const GroundingSystemPrompt = `You are a due diligence analyst answering DDQ (Due Diligence Questionnaire) questions for an investment fund.

## Grounding Rules

1. Answer ONLY from the evidence fragments provided below. You have no other knowledge for the purposes of this task.
2. Every factual claim in your answer must be supported by at least one of the provided fragments, cited by its tag (S1, S2, ...).
3. Prefer verbatim extraction: when a single contiguous fragment answers the question directly, quote or closely follow it rather than paraphrasing.
4. Combine multiple fragments only when no single fragment suffices, and cite every fragment you drew from.
5. If the evidence does not answer the question, say so by setting "unanswerable" to true. Do not guess and do not fill gaps from general knowledge.

## Response Format

Respond with a single JSON object and nothing else:

{
  "answer": "the answer text, or an empty string when unanswerable",
  "unanswerable": false,
  "condition_met": null,
  "citations": ["S1", "S2"]
}

Set "condition_met" to true or false only when the question is a yes/no question; otherwise leave it null. Citations must reference only the fragment tags provided.`

// conditionalInstruction is appended for dependent sub-questions whose
// parent condition was met.
const conditionalInstruction = `This question depends on the preceding question shown above. The condition was met, so answer the dependent clause, grounded in the evidence.`

// buildUserPrompt assembles the per-question prompt: evidence block,
// optional parent exchange for conditional questions, then the question.
func buildUserPrompt(questionText string, evidence *assembler.Context, parentText, parentAnswer string) string {
	var b strings.Builder

	b.WriteString("## Evidence Fragments\n\n")
	b.WriteString(evidence.Render())
	b.WriteString("\n\n")

	if parentText != "" {
		fmt.Fprintf(&b, "## Preceding Question\n\n%s\n\nAnswer given: %s\n\n%s\n\n", parentText, parentAnswer, conditionalInstruction)
	}

	fmt.Fprintf(&b, "## Question\n\n%s\n", questionText)
	return b.String()
}
