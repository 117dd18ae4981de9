package openrouter

import (
	"sort"
	"strconv"
	"strings"

	"madlen/internal/chat"
)

// visionKeywords are id fragments of models known to accept images
var visionKeywords = []string{
	"vision",
	"gpt-4o",
	"gpt-4-turbo",
	"claude-3",
	"gemini-pro-vision",
	"gemini-1.5",
}

// FallbackModels is served when the upstream list cannot be fetched
func FallbackModels() []chat.Model {
	return []chat.Model{
		{ID: "google/gemma-2-9b-it:free", Name: "Google Gemma 2 (Free)"},
		{ID: "meta-llama/llama-3-8b-instruct:free", Name: "Llama 3 (Free)"},
	}
}

// FreeModels keeps models that cost nothing to call and sorts them by name
func FreeModels(data []apiModel) []chat.Model {
	models := make([]chat.Model, 0, len(data))
	for _, m := range data {
		if !isFree(m) {
			continue
		}
		models = append(models, chat.Model{
			ID:             m.ID,
			Name:           m.Name,
			SupportsVision: supportsVision(m),
		})
	}

	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})
	return models
}

func isFree(m apiModel) bool {
	if strings.Contains(m.ID, ":free") {
		return true
	}
	return price(m.Pricing.Prompt) == 0 && price(m.Pricing.Completion) == 0
}

// price parses an upstream price string; missing or bad values count as paid
func price(s string) float64 {
	if s == "" {
		return -1
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return -1
	}
	return v
}

func supportsVision(m apiModel) bool {
	modality := strings.ToLower(m.Architecture.Modality)
	if strings.Contains(modality, "image") || strings.Contains(modality, "vision") {
		return true
	}

	id := strings.ToLower(m.ID)
	for _, kw := range visionKeywords {
		if strings.Contains(id, kw) {
			return true
		}
	}

	return strings.Contains(strings.ToLower(m.Name), "vision")
}
