package preferences

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matchwise-platform/matchwise/internal/metrics"
	"github.com/matchwise-platform/matchwise/internal/provider"
)

// extractionSystemPrompt fixes the facet schema for the structured extraction
// call. Negated phrasing must land in the excluded_* facets; facets the user
// never mentioned must be JSON null, not omitted, so consumers can tell
// "not mentioned" from "empty".
const extractionSystemPrompt = `You are the AI assistant of a career matching service.
Extract the user's job preferences from the conversation, as detailed as possible:

Desired conditions (positive):
- location: desired work locations (array of strings, region or city level)
- salary_min: minimum desired annual salary (number, in the catalog's base currency unit)
- salary_max: maximum desired annual salary (number)
- employment_types: desired employment types (array, e.g. ["full-time", "contract"])
- remote_work: remote work preference (true/false/null)
- job_categories: desired job categories (array, e.g. "engineer", "designer")
- skills: skills and experience (array: technology names, tools, domain experience)
- tech_stack: technologies the user wants to work with (array, e.g. React, Python, AWS)
- industry: desired industries (array, e.g. IT, finance, healthcare)
- company_size: desired company size (e.g. "enterprise", "smb", "startup")
- work_style_preferences: working style wishes (array, e.g. ["work-life balance", "flextime"])
- career_goals: career goals (string, as concrete as possible)
- priorities: the conditions the user cares about most (array, in order)
- experience_years: years of professional experience (number)

Exclusion conditions (negative):
- excluded_job_categories: job categories to avoid (array)
- excluded_skills: technologies the user does not want to use (array)
- excluded_industries: industries to avoid (array)
- excluded_company_types: company types to avoid (array)

Important:
- Negative phrasings such as "no X", "not X", "anything but X", "I don't want X" belong in the excluded_* fields, never in the positive fields.
- Extract information that is implied by context, not only what is stated verbatim.
- Set every field that is not mentioned to null. Do not omit keys.
- Respond with a single JSON object and nothing else.`

const extractionUserPrompt = "Extract my job preferences from the conversation so far and return them as JSON."

// Extractor turns a conversation transcript into a Profile with one
// structured provider call.
type Extractor struct {
	completer provider.JSONCompleter
}

// NewExtractor creates an Extractor backed by the given JSON-capable provider.
func NewExtractor(completer provider.JSONCompleter) *Extractor {
	return &Extractor{completer: completer}
}

// Extract runs the extraction call over the full transcript. Malformed
// provider output is an error; there is no best-effort parsing. The returned
// profile is already normalized (exclusions win over inclusions).
func (e *Extractor) Extract(ctx context.Context, messages []provider.Message) (*Profile, error) {
	msgs := make([]provider.Message, 0, len(messages)+1)
	msgs = append(msgs, messages...)
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: extractionUserPrompt})

	raw, err := e.completer.CompleteChatWithOptions(ctx, msgs, extractionSystemPrompt, provider.ChatOptions{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		metrics.ExtractionsTotal.WithLabelValues("malformed").Inc()
		return nil, &provider.Error{Kind: provider.KindMalformed, Op: "extract", Err: err}
	}

	profile.Normalize()
	metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
	return &profile, nil
}
