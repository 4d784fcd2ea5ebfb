package preferences

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchwise-platform/matchwise/internal/provider"
)

type recordingEmbedder struct {
	lastText string
}

func (e *recordingEmbedder) CompleteChat(ctx context.Context, messages []provider.Message, systemPrompt string) (string, error) {
	return "", nil
}

func (e *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.lastText = text
	return []float32{0.1, 0.2}, nil
}

func (e *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestQueryText(t *testing.T) {
	t.Run("high priority facets appear twice", func(t *testing.T) {
		p := &Profile{
			JobCategories: []string{"Backend Engineer"},
			TechStack:     []string{"Go", "PostgreSQL"},
		}
		text := QueryText(p)
		assert.Equal(t, 2, strings.Count(text, "Backend Engineer"))
		assert.Equal(t, 2, strings.Count(text, "Go, PostgreSQL"))
	})

	t.Run("facets follow priority order", func(t *testing.T) {
		p := &Profile{
			JobCategories: []string{"Data Engineer"},
			Locations:     []string{"Tokyo"},
			CareerGoals:   strPtr("become a tech lead"),
		}
		text := QueryText(p)
		assert.Less(t, strings.Index(text, "Data Engineer"), strings.Index(text, "tech lead"))
		assert.Less(t, strings.Index(text, "tech lead"), strings.Index(text, "Tokyo"))
	})

	t.Run("exclusions contribute nothing", func(t *testing.T) {
		p := &Profile{
			Skills:             []string{"Go"},
			ExcludedSkills:     []string{"PHP"},
			ExcludedIndustries: []string{"gambling"},
		}
		text := QueryText(p)
		assert.NotContains(t, text, "PHP")
		assert.NotContains(t, text, "gambling")
	})

	t.Run("salary and remote facets are not embedded", func(t *testing.T) {
		p := &Profile{
			Skills:    []string{"Go"},
			SalaryMin: func() *int64 { v := int64(5_000_000); return &v }(),
		}
		assert.NotContains(t, QueryText(p), "5000000")
	})

	t.Run("experience years are rendered", func(t *testing.T) {
		p := &Profile{ExperienceYears: intPtr(7)}
		assert.Contains(t, QueryText(p), "7 years of experience")
	})

	t.Run("empty profile yields empty text", func(t *testing.T) {
		assert.Equal(t, "", QueryText(&Profile{}))
	})
}

func TestVectorizer_Vectorize(t *testing.T) {
	t.Run("embeds the query text", func(t *testing.T) {
		e := &recordingEmbedder{}
		v := NewVectorizer(e)

		vec, err := v.Vectorize(context.Background(), &Profile{Skills: []string{"Go"}})
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2}, vec)
		assert.Contains(t, e.lastText, "Go")
	})

	t.Run("empty profile falls back to a neutral query", func(t *testing.T) {
		e := &recordingEmbedder{}
		v := NewVectorizer(e)

		_, err := v.Vectorize(context.Background(), &Profile{})
		require.NoError(t, err)
		assert.Equal(t, "job search", e.lastText)
	})
}
