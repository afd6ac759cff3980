package checks

import (
	"errors"

	"repo-sync/core/provider"
)

// ProviderStatus describes one enabled provider kind.
type ProviderStatus struct {
	Kind     string `json:"kind"`
	Label    string `json:"label,omitempty"`
	HelpText string `json:"help_text,omitempty"`
	Status   string `json:"status"` // "ok", "error"
	Error    string `json:"error,omitempty"`
}

// ProvidersReport is the result of a providers check.
type ProvidersReport struct {
	Matched    bool             `json:"matched"`
	Registered []string         `json:"registered"`
	Providers  []ProviderStatus `json:"providers"`
}

// CheckProviders resolves every enabled kind through the registry.
func CheckProviders(reg *provider.Registry, enabled []string) (*ProvidersReport, error) {
	if reg == nil {
		return nil, errors.New("provider registry is nil")
	}

	report := &ProvidersReport{
		Matched:    true,
		Registered: reg.Kinds(),
		Providers:  []ProviderStatus{},
	}

	for _, kind := range enabled {
		p, err := reg.Get(kind)
		if err != nil {
			report.Matched = false
			report.Providers = append(report.Providers, ProviderStatus{Kind: kind, Status: "error", Error: err.Error()})
			continue
		}
		report.Providers = append(report.Providers, ProviderStatus{
			Kind:     kind,
			Label:    p.Label(),
			HelpText: p.HelpText(),
			Status:   "ok",
		})
	}

	if len(report.Providers) == 0 {
		report.Matched = false
	}

	return report, nil
}
