package usecase

import (
	"SmcDesk/internal/services/params"
)

// SetupDocument is the parameter catalog as served to clients.
type SetupDocument struct {
	Schema        []params.SchemaItem `json:"schema"`
	Groups        []params.Group      `json:"groups"`
	Presets       []params.Preset     `json:"presets"`
	DefaultParams map[string]any      `json:"defaultParams"`
	Version       string              `json:"version"`
}

type SetupParamsUseCase struct {
	catalog *params.Catalog
}

func NewSetupParamsUseCase(catalog *params.Catalog) *SetupParamsUseCase {
	return &SetupParamsUseCase{catalog: catalog}
}

func (uc *SetupParamsUseCase) Document() SetupDocument {
	return SetupDocument{
		Schema:        uc.catalog.Schema(),
		Groups:        uc.catalog.Groups(),
		Presets:       uc.catalog.Presets(),
		DefaultParams: uc.catalog.Defaults(),
		Version:       uc.catalog.Version(),
	}
}

// Resolve layers defaults, preset and overrides, then clamps the result.
func (uc *SetupParamsUseCase) Resolve(presetID string, overrides map[string]any) params.Result {
	return uc.catalog.ResolveAndValidate(presetID, overrides)
}
