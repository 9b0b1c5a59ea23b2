package llm

import (
	"context"
	"fmt"
	"strings"
)

const enhanceSystemPrompt = "You are a transcription enhancement expert. Your job is to rewrite transcripts while preserving all nuance, slang, cultural references, humor, and tone. Make the text more readable and natural while keeping the creator's authentic voice."

const translateSystemPrompt = "You are a professional translator specializing in preserving nuance, humor, and cultural context. Your job is to translate content while maintaining the creator's authentic voice and style in the target language. Always consider cultural differences and adapt appropriately."

// Rewriter exposes the two transcript rewrite operations.
type Rewriter struct {
	client *Client
	cfg    Config
}

// NewRewriter creates a Rewriter.
func NewRewriter(client *Client, cfg Config) *Rewriter {
	cfg.ApplyDefaults()
	return &Rewriter{client: client, cfg: cfg}
}

// Enhance rewrites a raw transcript for readability, keeping slang and
// tone intact.
func (r *Rewriter) Enhance(ctx context.Context, rawText string) (string, error) {
	prompt := fmt.Sprintf(`Rewrite this transcript preserving slang, cultural nuance, humor, tone, and meaning. Do not make it formal unless needed.

Raw Transcript:
%s

Instructions:
- Keep the original meaning and context
- Preserve slang, informal language, and cultural references
- Maintain humor and tone
- Keep it natural and conversational
- Only make it formal if the original content requires it
- Ensure readability while maintaining authenticity

Enhanced Transcript:`, rawText)

	out, err := r.client.Complete(ctx, []Message{
		{Role: "system", Content: enhanceSystemPrompt},
		{Role: "user", Content: prompt},
	}, 0.3, 2000, r.cfg.EnhanceTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Translate renders the transcript in the target language, preserving
// slang, humor, and cultural nuance.
func (r *Rewriter) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if sourceLanguage == "" {
		sourceLanguage = "english"
	}
	prompt := fmt.Sprintf(`Translate this transcript into %[1]s, keeping slang, humor, tone, and cultural nuance intact.

Original Text (%[2]s):
%[3]s

Instructions:
- Translate to %[1]s
- Preserve all slang, informal language, and cultural references
- Maintain the original humor and tone
- Keep it natural and conversational in %[1]s
- Adapt cultural references appropriately for %[1]s speakers
- Ensure the translation sounds natural to native %[1]s speakers
- Preserve any jokes, puns, or wordplay if possible

Translated Text (%[1]s):`, targetLanguage, sourceLanguage, text)

	out, err := r.client.Complete(ctx, []Message{
		{Role: "system", Content: translateSystemPrompt},
		{Role: "user", Content: prompt},
	}, 0.2, 3000, r.cfg.TranslateTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
