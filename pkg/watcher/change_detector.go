package watcher

import (
	"fmt"
	"strings"

	"github.com/ritzau/crystal-bonds/pkg/analysis"
)

// ChangeAnalysis describes what changed and which inputs need to be reloaded
type ChangeAnalysis struct {
	ReloadCrystal bool
	ReloadRadii   bool
	ReloadRules   bool
	ChangedFiles  []string
}

// AnalyzeChanges determines which inputs need to be reloaded for a batch
func AnalyzeChanges(batch []ChangeEvent) *ChangeAnalysis {
	ca := &ChangeAnalysis{}
	for _, event := range batch {
		ca.ChangedFiles = append(ca.ChangedFiles, event.Paths...)
		switch event.Type {
		case ChangeTypeCrystal:
			ca.ReloadCrystal = true
		case ChangeTypeRadii:
			// Derived rules follow the radii; the runner rebuilds them.
			ca.ReloadRadii = true
		case ChangeTypeRules:
			ca.ReloadRules = true
		}
	}
	return ca
}

// Empty reports whether nothing needs to be reloaded.
func (ca *ChangeAnalysis) Empty() bool {
	return !ca.ReloadCrystal && !ca.ReloadRadii && !ca.ReloadRules
}

// RunOptions converts the analysis into options for a watch-triggered run.
func (ca *ChangeAnalysis) RunOptions() analysis.RunOptions {
	var parts []string
	if ca.ReloadCrystal {
		parts = append(parts, "crystal")
	}
	if ca.ReloadRadii {
		parts = append(parts, "radii")
	}
	if ca.ReloadRules {
		parts = append(parts, "rules")
	}
	return analysis.RunOptions{
		Trigger:       analysis.TriggerWatch,
		Reason:        fmt.Sprintf("%s changed", strings.Join(parts, ", ")),
		ReloadCrystal: ca.ReloadCrystal,
		ReloadRadii:   ca.ReloadRadii,
		ReloadRules:   ca.ReloadRules,
	}
}
