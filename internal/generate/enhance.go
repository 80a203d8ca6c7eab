package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const defaultVisionModel = "gemini-1.5-flash"

const enhanceTemplate = `Analyze this image and enhance the video generation prompt: %q

Provide an improved, detailed prompt for video generation that includes:
1. Specific motion suggestions based on image content
2. Style recommendations
3. Camera movement ideas
4. Lighting and atmosphere
5. Object-specific animations

Return ONLY the enhanced prompt, nothing else.`

// Enhancer asks a vision model to rewrite the user's raw prompt based on the
// image content. Enhancement is best effort and must never block generation.
type Enhancer struct {
	model string

	// generate and listModels are swapped out in tests.
	generate   func(ctx context.Context, parts []*genai.Part) (string, error)
	listModels func(ctx context.Context) ([]string, error)
}

// NewEnhancer builds a Gemini-backed enhancer. The client reads nothing from
// the environment; the key is passed explicitly.
func NewEnhancer(ctx context.Context, apiKey, model string) (*Enhancer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(model) == "" {
		model = defaultVisionModel
	}

	e := &Enhancer{model: model}
	e.generate = func(ctx context.Context, parts []*genai.Part) (string, error) {
		contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
		res, err := client.Models.GenerateContent(ctx, e.model, contents, nil)
		if err != nil {
			return "", err
		}
		return extractText(res), nil
	}
	e.listModels = func(ctx context.Context) ([]string, error) {
		var names []string
		for m, err := range client.Models.All(ctx) {
			if err != nil {
				return nil, err
			}
			if strings.Contains(strings.ToLower(m.Name), "gemini") {
				names = append(names, m.Name)
			}
		}
		return names, nil
	}
	return e, nil
}

// Model reports the configured vision model name.
func (e *Enhancer) Model() string { return e.model }

// ListModels returns the Gemini model names visible to the configured key.
// Backs the /models command.
func (e *Enhancer) ListModels(ctx context.Context) ([]string, error) {
	return e.listModels(ctx)
}

// Enhance returns a richer prompt derived from the image, or the original
// prompt unchanged when the vision call fails for any reason. The fallback
// is an explicit branch, not a recovery.
func (e *Enhancer) Enhance(ctx context.Context, image []byte, mime, prompt string) string {
	parts := []*genai.Part{
		genai.NewPartFromText(fmt.Sprintf(enhanceTemplate, prompt)),
		{InlineData: &genai.Blob{MIMEType: mime, Data: image}},
	}

	text, err := e.generate(ctx, parts)
	if err != nil {
		log.Warn().Err(err).Msg("prompt enhancement failed, using original prompt")
		return prompt
	}
	enhanced := strings.TrimSpace(text)
	if enhanced == "" {
		return prompt
	}
	log.Debug().Str("enhanced_prompt", enhanced).Msg("prompt enhanced")
	return enhanced
}

// Passthrough never rewrites the prompt. Used when no vision provider is
// configured, so the strategy order stays fixed.
type Passthrough struct{}

func (Passthrough) Enhance(_ context.Context, _ []byte, _, prompt string) string { return prompt }

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
