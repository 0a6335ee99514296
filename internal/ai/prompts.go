package ai

import (
	"encoding/json"
	"fmt"
)

// systemPrompt is shared by every provider that supports a system role.
const systemPrompt = `You are an expert resume parser. You read raw resume text and return structured JSON. Your core principles are:

- Extract only information that is present in the source text, never invent or embellish
- Return valid JSON and nothing else: no Markdown fences, no commentary, no trailing prose
- Use empty strings or empty arrays for fields the resume does not mention
- Preserve dates, names and contact details exactly as written`

// connectionTestPrompt is a minimal round trip used by TestConnection.
const connectionTestPrompt = `Reply with the single word OK.`

// buildTemplatePrompt renders the template-constrained extraction prompt. The
// template is embedded as JSON so the model sees the exact field set and
// nesting it must produce.
func buildTemplatePrompt(text string, template map[string]any) string {
	templateJSON, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		templateJSON = []byte("{}")
	}

	return fmt.Sprintf(`Extract structured data from the resume below.

Return a JSON object with EXACTLY this structure. Keep every key, even when the resume has no matching information (use "" for strings and [] for arrays). Arrays shown with a single example object mean "one entry per occurrence in the resume".

%s

Resume text:
---
%s
---

Respond with only the JSON object.`, templateJSON, text)
}

// buildOpenPrompt renders the open-ended extraction prompt used when the
// caller supplied no template.
func buildOpenPrompt(text string) string {
	return fmt.Sprintf(`Extract all structured information from the resume below into a single JSON object.

Include at least: full name, contact details, a short professional summary, skills, work experience (one entry per position with company, title, dates and description), education and certifications. Use camelCase keys, "" for unknown strings and [] for empty lists.

Resume text:
---
%s
---

Respond with only the JSON object.`, text)
}
