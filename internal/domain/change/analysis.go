package change

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Classification tags a batch of edits by the scope of the change. Severity
// is ordered: dependency > structural > interface-only > logic. The most
// severe classification observed across a batch wins.
type Classification string

const (
	ClassLogic         Classification = "logic"
	ClassInterfaceOnly Classification = "interface_only"
	ClassStructural    Classification = "structural"
	ClassDependency    Classification = "dependency"
)

// severity returns the ordering rank of a classification.
func (c Classification) severity() int {
	switch c {
	case ClassDependency:
		return 3
	case ClassStructural:
		return 2
	case ClassInterfaceOnly:
		return 1
	default:
		return 0
	}
}

// Analysis is the derived result of classifying one batch of edits. It lives
// for a single orchestration cycle and is never persisted.
type Analysis struct {
	Classification     Classification
	AffectedPaths      []string
	AffectedComponents []string
	ForcesFullRebuild  bool
	EstimatedCost      time.Duration
}

// ManifestFile is the project manifest whose edits invalidate every cached
// assumption about the module graph.
const ManifestFile = "Package.swift"

var (
	// viewMarkers identify SwiftUI view declarations in file content.
	viewMarkers = []string{"some View", "#Preview", "PreviewProvider"}

	// structuralPattern matches declarations that can change the public
	// shape of the module graph.
	structuralPattern = regexp.MustCompile(`(?m)^\s*(import\s+\w|(?:public\s+|open\s+|final\s+)*(?:class|struct|protocol|enum|extension|typealias)\s)`)

	// entryPointMarker identifies the application entry point.
	entryPointMarker = "@main"
)

// Unit costs and ceilings for the advisory cost estimate. The estimate feeds
// telemetry and status output; it never gates correctness.
const (
	costPerInterfaceFile  = 500 * time.Millisecond
	costPerLogicFile      = 1 * time.Second
	costPerStructuralFile = 3 * time.Second

	ceilingInterface  = 2 * time.Second
	ceilingLogic      = 5 * time.Second
	ceilingStructural = 15 * time.Second
	costDependency    = 30 * time.Second
)

// Classify analyzes a batch of records and produces an Analysis. It is a
// pure function: no side effects, deterministic for the same input.
func Classify(records []Record) Analysis {
	result := Analysis{Classification: ClassLogic}
	components := make(map[string]struct{})

	for _, rec := range records {
		result.AffectedPaths = append(result.AffectedPaths, rec.Path)
		if comp := componentOf(rec.Path); comp != "" {
			components[comp] = struct{}{}
		}

		class := classifyFile(rec)
		if class.severity() > result.Classification.severity() {
			result.Classification = class
		}
	}

	for comp := range components {
		result.AffectedComponents = append(result.AffectedComponents, comp)
	}

	result.ForcesFullRebuild = result.Classification == ClassDependency ||
		result.Classification == ClassStructural
	result.EstimatedCost = estimateCost(result.Classification, len(records))
	return result
}

// classifyFile classifies a single record. Dependency signals dominate, then
// the view-file convention, then structural declaration keywords.
func classifyFile(rec Record) Classification {
	name := filepath.Base(rec.Path)
	if name == ManifestFile || strings.Contains(rec.Content, entryPointMarker) {
		return ClassDependency
	}
	if isViewFile(name, rec.Content) {
		return ClassInterfaceOnly
	}
	if rec.Kind != KindDeleted && structuralPattern.MatchString(rec.Content) {
		return ClassStructural
	}
	return ClassLogic
}

// isViewFile reports whether a file follows the view/presentation naming
// convention or contains SwiftUI view-declaration markers.
func isViewFile(name, content string) bool {
	if strings.HasSuffix(name, "View.swift") {
		return true
	}
	for _, marker := range viewMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// componentOf derives the logical component a path belongs to: the first
// directory under the source root, or the file itself at top level.
func componentOf(path string) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	parts := strings.Split(clean, "/")
	for i, part := range parts {
		if part == "Sources" || part == "Tests" {
			if i+1 < len(parts) {
				return parts[i+1]
			}
		}
	}
	if len(parts) > 1 {
		return parts[0]
	}
	return strings.TrimSuffix(parts[0], filepath.Ext(parts[0]))
}

// estimateCost multiplies a per-file unit cost by the batch size, clamped to
// a per-classification ceiling. Dependency changes have a flat cost.
func estimateCost(class Classification, count int) time.Duration {
	switch class {
	case ClassDependency:
		return costDependency
	case ClassStructural:
		return clamp(costPerStructuralFile*time.Duration(count), ceilingStructural)
	case ClassInterfaceOnly:
		return clamp(costPerInterfaceFile*time.Duration(count), ceilingInterface)
	default:
		return clamp(costPerLogicFile*time.Duration(count), ceilingLogic)
	}
}

func clamp(d, ceiling time.Duration) time.Duration {
	if d > ceiling {
		return ceiling
	}
	return d
}
