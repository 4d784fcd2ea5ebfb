package matching

import (
	"bytes"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/matchwise-platform/matchwise/internal/catalog"
	"github.com/matchwise-platform/matchwise/internal/config"
	"github.com/matchwise-platform/matchwise/internal/preferences"
)

// Recommendation is one ranked catalog item. Scores live on a 0–100 scale.
type Recommendation struct {
	Job   catalog.Job `json:"job"`
	Score float64     `json:"score"`
	Rank  int         `json:"rank"`
}

// Ranker scores a catalog against a query vector and a preference profile.
// It is pure: no I/O, no hidden state, so identical inputs produce identical
// output.
type Ranker struct {
	locationBoost   float64
	employmentBoost float64
	remoteBoost     float64
	salaryBoost     float64
}

// NewRanker creates a Ranker with the configured boost weights.
func NewRanker(cfg config.MatchingConfig) *Ranker {
	return &Ranker{
		locationBoost:   cfg.LocationBoost,
		employmentBoost: cfg.EmploymentBoost,
		remoteBoost:     cfg.RemoteBoost,
		salaryBoost:     cfg.SalaryBoost,
	}
}

// Rank orders the catalog by combined similarity and structured boosts.
//
// Exclusion facets remove items outright; they are never a mere penalty.
// The base score rescales cosine similarity from [-1,1] to [0,100], so a zero
// query vector leaves every item at the 50 baseline and boosts alone decide
// the ordering. Ties break on posting recency, then item id.
func (r *Ranker) Rank(queryVector []float32, profile *preferences.Profile, jobs []catalog.Job, vectors map[uuid.UUID][]float32, topK int) []Recommendation {
	if topK <= 0 || len(jobs) == 0 {
		return nil
	}

	results := make([]Recommendation, 0, len(jobs))
	for _, job := range jobs {
		if excluded(profile, &job) {
			continue
		}
		vec, ok := vectors[job.ID]
		if !ok {
			continue
		}

		score := (cosine(queryVector, vec) + 1) * 50
		score += r.boosts(profile, &job)
		score = math.Max(0, math.Min(100, score))

		results = append(results, Recommendation{Job: job, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Job.PostedAt.Equal(b.Job.PostedAt) {
			return a.Job.PostedAt.After(b.Job.PostedAt)
		}
		return bytes.Compare(a.Job.ID[:], b.Job.ID[:]) < 0
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func (r *Ranker) boosts(p *preferences.Profile, job *catalog.Job) float64 {
	var boost float64

	for _, loc := range p.Locations {
		if termMatches(loc, job.Location) {
			boost += r.locationBoost
			break
		}
	}

	for _, et := range p.EmploymentTypes {
		if strings.EqualFold(et, string(job.EmploymentType)) {
			boost += r.employmentBoost
			break
		}
	}

	if p.RemoteWork != nil && *p.RemoteWork == job.Remote {
		boost += r.remoteBoost
	}

	if salaryOverlaps(p, job) {
		boost += r.salaryBoost
	}

	return boost
}

// salaryOverlaps reports whether the stated salary range intersects the
// posting's numeric range. Unstated bounds are open; a profile with no salary
// facet at all contributes nothing.
func salaryOverlaps(p *preferences.Profile, job *catalog.Job) bool {
	if p.SalaryMin == nil && p.SalaryMax == nil {
		return false
	}
	if job.SalaryMin == nil && job.SalaryMax == nil {
		return false
	}
	if p.SalaryMin != nil && job.SalaryMax != nil && *p.SalaryMin > *job.SalaryMax {
		return false
	}
	if p.SalaryMax != nil && job.SalaryMin != nil && *p.SalaryMax < *job.SalaryMin {
		return false
	}
	return true
}

func excluded(p *preferences.Profile, job *catalog.Job) bool {
	for _, term := range p.ExcludedJobCategories {
		if termMatches(term, job.Category) {
			return true
		}
	}
	for _, term := range p.ExcludedSkills {
		if anyTermMatches(term, job.Skills) || anyTermMatches(term, job.Tags) {
			return true
		}
	}
	for _, term := range p.ExcludedIndustries {
		if termMatches(term, job.Industry) {
			return true
		}
	}
	for _, term := range p.ExcludedCompanyTypes {
		if termMatches(term, job.CompanyType) {
			return true
		}
	}
	return false
}

// termMatches is a case-insensitive substring match in either direction,
// so "Tokyo" matches "Tokyo, Japan" and "Greater Tokyo" alike.
func termMatches(term, value string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	value = strings.ToLower(strings.TrimSpace(value))
	if term == "" || value == "" {
		return false
	}
	return strings.Contains(value, term) || strings.Contains(term, value)
}

func anyTermMatches(term string, values []string) bool {
	for _, v := range values {
		if termMatches(term, v) {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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
