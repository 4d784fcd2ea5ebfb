package preferences

import (
	"context"
	"fmt"
	"strings"

	"github.com/matchwise-platform/matchwise/internal/provider"
)

// fallbackQueryText is embedded when the profile yields no inclusion text at
// all, so vectorization never fails on an empty profile.
const fallbackQueryText = "job search"

// Vectorizer turns a Profile into a single search embedding.
type Vectorizer struct {
	embedder provider.SemanticProvider
}

// NewVectorizer creates a Vectorizer backed by the given provider.
func NewVectorizer(embedder provider.SemanticProvider) *Vectorizer {
	return &Vectorizer{embedder: embedder}
}

// QueryText builds the text that gets embedded. Only inclusion facets
// contribute: embedding an exclusion would pull the query vector toward the
// very content the user wants to avoid. High-priority facets (categories,
// tech stack, skills) appear twice, which biases the cosine geometry toward
// them without a weighted embedding space.
func QueryText(p *Profile) string {
	var parts []string

	if len(p.JobCategories) > 0 {
		categories := strings.Join(p.JobCategories, ", ")
		parts = append(parts, "Job categories: "+categories, categories)
	}
	if len(p.TechStack) > 0 {
		tech := strings.Join(p.TechStack, ", ")
		parts = append(parts, "Technologies: "+tech, tech)
	}
	if len(p.Skills) > 0 {
		skills := strings.Join(p.Skills, ", ")
		parts = append(parts, "Skills: "+skills, skills)
	}
	if len(p.Industries) > 0 {
		parts = append(parts, "Industry: "+strings.Join(p.Industries, ", "))
	}
	if p.CareerGoals != nil && *p.CareerGoals != "" {
		parts = append(parts, "Career goals: "+*p.CareerGoals)
	}
	if len(p.WorkStylePreferences) > 0 {
		parts = append(parts, "Work style: "+strings.Join(p.WorkStylePreferences, ", "))
	}
	if len(p.Locations) > 0 {
		parts = append(parts, "Location: "+strings.Join(p.Locations, ", "))
	}
	if p.CompanySize != nil && *p.CompanySize != "" {
		parts = append(parts, "Company size: "+*p.CompanySize)
	}
	if p.ExperienceYears != nil && *p.ExperienceYears > 0 {
		parts = append(parts, fmt.Sprintf("%d years of experience", *p.ExperienceYears))
	}

	return strings.Join(parts, " ")
}

// Vectorize embeds the profile's query text, falling back to a neutral query
// when the profile has no inclusion facets.
func (v *Vectorizer) Vectorize(ctx context.Context, p *Profile) ([]float32, error) {
	text := QueryText(p)
	if text == "" {
		text = fallbackQueryText
	}

	vector, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query text: %w", err)
	}
	return vector, nil
}
