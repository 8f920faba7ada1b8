// Package similarity resolves how closely two skill names refer to the same
// ability, using generated variations (synonyms, abbreviations, spellings).
package similarity

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/logger"
)

const (
	// MaxVariations caps the list kept per skill, the skill itself included.
	MaxVariations = 10

	ExactScore     = 1.0
	SynonymScore   = 0.95
	SubstringScore = 0.6

	component = "similarity"
	cacheName = "variations"
)

var variationOptions = ai.Options{Temperature: 0.1, MaxTokens: 200}

// PromptSource supplies the feedback section appended to prompts.
type PromptSource interface {
	PromptSection() string
}

// Recorder receives cache and fallback events.
type Recorder interface {
	RecordCacheLookup(cache string, hit bool)
	RecordFallback(component string)
}

type Option func(*Resolver)

func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// Resolver implements the exact / synonym / substring similarity ladder.
type Resolver struct {
	gen      ai.Generator
	cache    Cache
	feedback PromptSource
	recorder Recorder
	logger   *zap.Logger
	group    singleflight.Group
}

// New builds a resolver. A nil generator behaves like ai.Disabled and a nil
// cache is replaced by a fresh MemoryCache.
func New(gen ai.Generator, cache Cache, feedback PromptSource, log *zap.Logger, opts ...Option) *Resolver {
	if gen == nil {
		gen = ai.Disabled{}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	r := &Resolver{
		gen:      gen,
		cache:    cache,
		feedback: feedback,
		logger:   logger.WithFields(log, logger.Component(component)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Similarity returns a score in [0,1]. It is symmetric in a and b.
func (r *Resolver) Similarity(ctx context.Context, a, b, field string) float64 {
	if Normalize(a) == Normalize(b) {
		return ExactScore
	}

	va := r.Variations(ctx, a, field)
	vb := r.Variations(ctx, b, field)

	set := make(map[string]struct{}, len(va))
	for _, v := range va {
		set[v] = struct{}{}
	}
	for _, v := range vb {
		if _, ok := set[v]; ok {
			return SynonymScore
		}
	}

	for _, x := range va {
		if len(x) <= 2 {
			continue
		}
		for _, y := range vb {
			if len(y) <= 2 {
				continue
			}
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return SubstringScore
			}
		}
	}
	return 0
}

// Variations returns the cached or freshly generated variation list for
// skill. The first element is always the normalized skill. It never fails.
func (r *Resolver) Variations(ctx context.Context, skill, field string) []string {
	key := cacheKey(skill, field)
	if v, ok := r.cache.Get(ctx, key); ok {
		r.recordLookup(true)
		return v
	}
	r.recordLookup(false)

	v, _, _ := r.group.Do(key, func() (any, error) {
		if cached, ok := r.cache.Get(ctx, key); ok {
			return cached, nil
		}
		variations := r.generate(ctx, skill, field)
		r.cache.Set(ctx, key, variations)
		return variations, nil
	})
	return append([]string(nil), v.([]string)...)
}

// Seed stores variations for skill without asking the generator.
func (r *Resolver) Seed(ctx context.Context, skill, field string, variations []string) {
	list := make([]string, 0, len(variations)+1)
	list = append(list, Normalize(skill))
	for _, v := range variations {
		if v = Normalize(v); v != "" {
			list = append(list, v)
		}
	}
	list = dedupe(list)
	if len(list) > MaxVariations {
		list = list[:MaxVariations]
	}
	r.cache.Set(ctx, cacheKey(skill, field), list)
}

func (r *Resolver) generate(ctx context.Context, skill, field string) []string {
	out := r.gen.Generate(ctx, r.prompt(skill, field), variationOptions)
	if !out.Usable() {
		r.logger.Warn("using fallback skill variations",
			zap.String("skill", skill),
			zap.String("field", field),
			zap.String("reason", out.Status.String()),
			zap.Error(out.Err),
		)
		if r.recorder != nil {
			r.recorder.RecordFallback(component)
		}
		return fallbackVariations(skill)
	}
	return ParseVariations(out.Text, skill)
}

func (r *Resolver) recordLookup(hit bool) {
	if r.recorder != nil {
		r.recorder.RecordCacheLookup(cacheName, hit)
	}
}

func (r *Resolver) prompt(skill, field string) string {
	feedback := ""
	if r.feedback != nil {
		feedback = r.feedback.PromptSection()
	}
	return fmt.Sprintf(`
Generate synonyms and variations for the skill "%[1]s" in %[2]s careers.

Include:
- Common abbreviations and acronyms
- Related technologies, tools, or concepts
- Different ways this skill might be written on resumes
- Limit to maximum 10 most relevant variations

%[3]s

Skill: %[1]s
Career Field: %[2]s

Variations (comma-separated):
`, skill, field, feedback)
}

var (
	labelPattern     = regexp.MustCompile(`(?i)variations:`)
	separatorPattern = regexp.MustCompile(`[,\n\r\t;]`)
	markerPattern    = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
	preambles        = []string{"note:", "here are", "these include", "variations:"}
)

// ParseVariations turns a free-text generator response into a variation list
// headed by the normalized skill.
func ParseVariations(response, skill string) []string {
	variations := []string{Normalize(skill)}
	seen := map[string]struct{}{variations[0]: {}}

	response = strings.TrimSpace(labelPattern.ReplaceAllString(response, ""))
	for _, token := range separatorPattern.Split(response, -1) {
		token = markerPattern.ReplaceAllString(strings.TrimSpace(token), "")
		token = Normalize(strings.Trim(token, "\"'`"))
		if len(token) < 2 || len(token) >= 50 || hasPreamble(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		variations = append(variations, token)
		if len(variations) == MaxVariations {
			break
		}
	}
	return variations
}

func hasPreamble(s string) bool {
	for _, p := range preambles {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
