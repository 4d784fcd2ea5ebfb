package preferences

import "strings"

// Profile is the structured output of preference extraction. Nil slices and
// nil pointers mean "not mentioned"; empty slices mean the user mentioned the
// facet and left it empty. JSON tags mirror the extraction schema, so the
// provider's JSON output unmarshals directly into this type.
type Profile struct {
	// Inclusion facets.
	Locations            []string `json:"location"`
	SalaryMin            *int64   `json:"salary_min"`
	SalaryMax            *int64   `json:"salary_max"`
	EmploymentTypes      []string `json:"employment_types"`
	RemoteWork           *bool    `json:"remote_work"`
	JobCategories        []string `json:"job_categories"`
	Skills               []string `json:"skills"`
	TechStack            []string `json:"tech_stack"`
	Industries           []string `json:"industry"`
	CompanySize          *string  `json:"company_size"`
	WorkStylePreferences []string `json:"work_style_preferences"`
	CareerGoals          *string  `json:"career_goals"`
	Priorities           []string `json:"priorities"`
	ExperienceYears      *int     `json:"experience_years"`

	// Exclusion facets. Never embedded; applied as hard filters by the ranker.
	ExcludedJobCategories []string `json:"excluded_job_categories"`
	ExcludedSkills        []string `json:"excluded_skills"`
	ExcludedIndustries    []string `json:"excluded_industries"`
	ExcludedCompanyTypes  []string `json:"excluded_company_types"`
}

// Normalize enforces the disjointness invariant between inclusion and
// exclusion facets: when the extractor reports a term on both sides,
// the exclusion wins and the term is dropped from the inclusion facet.
func (p *Profile) Normalize() {
	p.JobCategories = subtract(p.JobCategories, p.ExcludedJobCategories)
	p.Skills = subtract(p.Skills, p.ExcludedSkills)
	p.TechStack = subtract(p.TechStack, p.ExcludedSkills)
	p.Industries = subtract(p.Industries, p.ExcludedIndustries)
}

// HasExclusions reports whether any exclusion facet is non-empty.
func (p *Profile) HasExclusions() bool {
	return len(p.ExcludedJobCategories) > 0 ||
		len(p.ExcludedSkills) > 0 ||
		len(p.ExcludedIndustries) > 0 ||
		len(p.ExcludedCompanyTypes) > 0
}

// subtract returns include without any term that case-insensitively equals a
// term in exclude. A nil input stays nil so "not mentioned" survives.
func subtract(include, exclude []string) []string {
	if len(include) == 0 || len(exclude) == 0 {
		return include
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	kept := include[:0]
	for _, term := range include {
		if _, hit := excluded[strings.ToLower(strings.TrimSpace(term))]; !hit {
			kept = append(kept, term)
		}
	}
	return kept
}
