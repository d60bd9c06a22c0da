package models

import (
	"regexp"
	"slices"
)

const (
	SlotFlash  = "flash"
	SlotFlash2 = "flash2"
	SlotPro    = "pro"
)

// LLMModel represents a single image model option.
type LLMModel struct {
	Slot         string `json:"slot"`
	DisplayName  string `json:"displayName"`
	APIName      string `json:"apiName"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
}

// LLMModelGroup groups models by their provider for presentation.
type LLMModelGroup struct {
	ProviderID   string     `json:"providerId"`
	ProviderName string     `json:"providerName"`
	Models       []LLMModel `json:"models"`
}

var (
	proModelPattern    = regexp.MustCompile(`gemini-3-pro`)
	flash2ModelPattern = regexp.MustCompile(`gemini-3\.1`)

	flash2ImageSizes = []string{"512", "1K", "2K", "4K"}
	proImageSizes    = []string{"1K", "2K", "4K"}
)

// IsFlash2Model reports whether the model accepts reasoning effort and web search.
func IsFlash2Model(model string) bool {
	return flash2ModelPattern.MatchString(model)
}

func IsProModel(model string) bool {
	return proModelPattern.MatchString(model)
}

// ImageSizes lists the explicit image sizes a model accepts. The empty size
// (model default) is always accepted and is not part of the list.
func ImageSizes(model string) []string {
	switch {
	case IsFlash2Model(model):
		return slices.Clone(flash2ImageSizes)
	case IsProModel(model):
		return slices.Clone(proImageSizes)
	default:
		return nil
	}
}

func SupportsImageSize(model, size string) bool {
	if size == "" {
		return true
	}
	return slices.Contains(ImageSizes(model), size)
}
