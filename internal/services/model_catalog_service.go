package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"contextimage/internal/assets"
	"contextimage/internal/llm/client"
	"contextimage/internal/models"
)

// ModelCatalogService exposes the embedded provider/model catalog.
type ModelCatalogService interface {
	Startup(ctx context.Context) error
	ListModelGroups() []models.LLMModelGroup
	HasProvider(provider string) bool
	HasModel(provider, apiName string) bool
	GetModel(provider, slot string) (*models.LLMModel, error)
	// ResolveModelForProvider keeps the model slot (flash, flash2, pro) of
	// currentModel when switching to provider.
	ResolveModelForProvider(provider, currentModel string) string
}

type modelCatalogService struct {
	ctx context.Context

	mu            sync.RWMutex
	providerOrder []string
	providerNames map[string]string
	models        map[string][]models.LLMModel
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Models      []rawModel `json:"models"`
}

type rawModel struct {
	Slot        string `json:"slot"`
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
}

func NewModelCatalogService() ModelCatalogService {
	return &modelCatalogService{
		providerNames: make(map[string]string),
		models:        make(map[string][]models.LLMModel),
	}
}

func (s *modelCatalogService) Startup(ctx context.Context) error {
	s.ctx = ctx

	var parsed rawModelFile
	if err := sonic.Unmarshal(assets.ModelsData, &parsed); err != nil {
		return fmt.Errorf("parse models asset: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.providerOrder = make([]string, 0, len(parsed.Providers))
	s.providerNames = make(map[string]string, len(parsed.Providers))
	s.models = make(map[string][]models.LLMModel, len(parsed.Providers))
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		providerName := strings.TrimSpace(provider.DisplayName)
		s.providerNames[providerID] = providerName
		s.providerOrder = append(s.providerOrder, providerID)
		for _, mdl := range provider.Models {
			s.models[providerID] = append(s.models[providerID], models.LLMModel{
				Slot:         strings.TrimSpace(mdl.Slot),
				DisplayName:  strings.TrimSpace(mdl.DisplayName),
				APIName:      strings.TrimSpace(mdl.APIName),
				ProviderID:   providerID,
				ProviderName: providerName,
			})
		}
	}
	if _, ok := s.models[client.DefaultProvider]; !ok {
		return fmt.Errorf("models asset is missing provider %s", client.DefaultProvider)
	}

	return nil
}

func (s *modelCatalogService) ListModelGroups() []models.LLMModelGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.providerOrder))
	for _, providerID := range s.providerOrder {
		list := make([]models.LLMModel, len(s.models[providerID]))
		copy(list, s.models[providerID])
		groups = append(groups, models.LLMModelGroup{
			ProviderID:   providerID,
			ProviderName: s.providerName(providerID),
			Models:       list,
		})
	}
	return groups
}

func (s *modelCatalogService) HasProvider(provider string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.models[strings.TrimSpace(provider)]
	return ok
}

func (s *modelCatalogService) HasModel(provider, apiName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mdl := range s.models[strings.TrimSpace(provider)] {
		if mdl.APIName == apiName {
			return true
		}
	}
	return false
}

func (s *modelCatalogService) GetModel(provider, slot string) (*models.LLMModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.models[strings.TrimSpace(provider)]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", provider)
	}
	for _, mdl := range list {
		if mdl.Slot == slot {
			m := mdl
			return &m, nil
		}
	}
	return nil, fmt.Errorf("model slot %s not found for provider %s", slot, provider)
}

func (s *modelCatalogService) ResolveModelForProvider(provider, currentModel string) string {
	if !s.HasProvider(provider) {
		provider = client.DefaultProvider
	}
	mdl, err := s.GetModel(provider, slotForModel(currentModel))
	if err != nil {
		return currentModel
	}
	return mdl.APIName
}

func (s *modelCatalogService) providerName(providerID string) string {
	if name, ok := s.providerNames[providerID]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	return providerID
}

func slotForModel(model string) string {
	switch {
	case strings.Contains(model, "pro") || strings.Contains(model, "3-pro"):
		return models.SlotPro
	case strings.Contains(model, "3.1") || strings.Contains(model, "3-1"):
		return models.SlotFlash2
	default:
		return models.SlotFlash
	}
}
