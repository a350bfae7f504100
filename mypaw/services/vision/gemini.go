package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"mypaw/mypaw/utils/httputils"
	"mypaw/mypaw/utils/jsonutils"
	"mypaw/mypaw/utils/logging"

	"go.uber.org/zap"
)

// ErrIdentification means the vision model returned nothing usable for the
// supplied image.
var ErrIdentification = errors.New("unable to identify pet")

const defaultPrompt = `Analyze this pet image and provide detailed information in JSON format with these exact fields:
{
  "type": "animal type (dog, cat, bird, etc.)",
  "breed": "specific breed if identifiable",
  "description": "detailed description of the pet",
  "characteristics": ["list", "of", "key", "characteristics"],
  "care_tips": ["list", "of", "care", "tips"]
}`

// PetProfile is the structured identification result.
type PetProfile struct {
	Type            string   `json:"type"`
	Breed           string   `json:"breed,omitempty"`
	Description     string   `json:"description"`
	Characteristics []string `json:"characteristics"`
	CareTips        []string `json:"care_tips"`
}

type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	prompt  string
}

// NewGeminiClient builds a client for the generateContent endpoint.
// promptOverride replaces the built-in identification prompt when non-empty.
func NewGeminiClient(apiKey, model, promptOverride string) *GeminiClient {
	prompt := defaultPrompt
	if promptOverride != "" {
		prompt = promptOverride
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		prompt:  prompt,
	}
}

// WithBaseURL repoints the client, used by tests.
func (c *GeminiClient) WithBaseURL(u string) *GeminiClient {
	c.baseURL = u
	return c
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Identify sends the image to the vision model and normalizes the answer
// into a PetProfile. Any unusable response maps to ErrIdentification.
func (c *GeminiClient) Identify(ctx context.Context, image []byte, mimeType string) (*PetProfile, error) {
	defer logging.LogDuration(ctx, "gemini_identify")()

	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: c.prompt},
				{InlineData: &geminiBlobPart{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	var resp geminiResponse
	if err := httputils.PostJSON(ctx, url, req, &resp); err != nil {
		logging.ErrorLogger.Error("gemini request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrIdentification, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrIdentification
	}
	text := resp.Candidates[0].Content.Parts[0].Text

	var profile PetProfile
	if err := jsonutils.DecodeObject(text, &profile); err != nil {
		logging.ErrorLogger.Error("gemini response not parseable", zap.String("raw", text))
		return nil, ErrIdentification
	}
	if profile.Type == "" || profile.Description == "" {
		return nil, ErrIdentification
	}
	return &profile, nil
}

// BreedOrType is what prompts call the animal when no breed was identified.
func (p *PetProfile) BreedOrType() string {
	if p.Breed != "" {
		return p.Breed
	}
	return p.Type
}
