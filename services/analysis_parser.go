package services

import (
	"regexp"
	"strconv"
	"strings"

	"github/mosaic/backend/models"
)

// section is the parser's state: which labeled block of the generated text
// the current line belongs to.
type section int

const (
	sectionNone section = iota
	sectionDifferences
	sectionConnections
	sectionSurprising
	sectionExamples
)

const defaultUnityScore = 0.7

// Filler used for any section the model failed to emit, so the response is
// always fully populated.
var (
	fillerDifferences = []string{"Different backgrounds and circumstances"}
	fillerConnections = []string{"Shared human experiences"}
	fillerSurprising  = "These stories reveal unexpected common ground"
	fillerExamples    = []string{"Each story carries its own moment of connection"}
	fillerHumanTruth  = "We are more alike than we are different"
)

var numberPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// partialAnalysis collects whatever the marker walk managed to extract;
// finish() merges in the defaults.
type partialAnalysis struct {
	unityScore  *float64
	differences []string
	connections []string
	surprising  []string
	examples    []string
	humanTruth  string
}

// ParseAnalysis walks the generated text line by line, switching state on the
// labeled section markers and accumulating bulleted lines into the matching
// field. Any section the model skipped is backfilled with filler, so the
// returned Analysis is always complete.
func ParseAnalysis(text string) models.Analysis {
	var p partialAnalysis
	state := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		// The model sometimes prefixes illustrative lines; those are never
		// content.
		if strings.HasPrefix(line, "Example:") {
			continue
		}

		switch {
		case strings.Contains(line, "SURFACE_DIFFERENCES:"):
			state = sectionDifferences
			p.accumulate(state, markerRest(line, "SURFACE_DIFFERENCES:"))
		case strings.Contains(line, "DEEP_CONNECTIONS:"):
			state = sectionConnections
			p.accumulate(state, markerRest(line, "DEEP_CONNECTIONS:"))
		case strings.Contains(line, "SURPRISING_UNITY:"):
			state = sectionSurprising
			p.accumulate(state, markerRest(line, "SURPRISING_UNITY:"))
		case strings.Contains(line, "CONCRETE_EXAMPLES:"):
			state = sectionExamples
			p.accumulate(state, markerRest(line, "CONCRETE_EXAMPLES:"))
		case strings.Contains(line, "UNITY_SCORE:"):
			if score, ok := extractScore(line); ok {
				p.unityScore = &score
			}
			state = sectionNone
		case strings.Contains(line, "THE_HUMAN_TRUTH:"):
			if _, after, found := strings.Cut(line, ":"); found {
				p.humanTruth = strings.TrimSpace(after)
			}
			state = sectionNone
		default:
			p.accumulate(state, line)
		}
	}

	return p.finish()
}

// accumulate files one content line under the active section. Bulleted lines
// are always appended; a bare line only counts as the section's sole value
// while the section is still empty.
func (p *partialAnalysis) accumulate(state section, line string) {
	if line == "" {
		return
	}
	var target *[]string
	switch state {
	case sectionDifferences:
		target = &p.differences
	case sectionConnections:
		target = &p.connections
	case sectionSurprising:
		target = &p.surprising
	case sectionExamples:
		target = &p.examples
	default:
		return
	}

	if stripped, wasBullet := stripBullet(line); wasBullet {
		*target = append(*target, stripped)
	} else if len(*target) == 0 {
		*target = append(*target, line)
	}
}

// finish merges the collected fields with the canned defaults.
func (p *partialAnalysis) finish() models.Analysis {
	analysis := models.Analysis{
		UnityScore:         defaultUnityScore,
		SurfaceDifferences: p.differences,
		DeepConnections:    p.connections,
		SurprisingUnity:    fillerSurprising,
		ConcreteExamples:   p.examples,
		HumanTruth:         fillerHumanTruth,
	}
	if p.unityScore != nil {
		analysis.UnityScore = *p.unityScore
	}
	if len(analysis.SurfaceDifferences) == 0 {
		analysis.SurfaceDifferences = fillerDifferences
	}
	if len(analysis.DeepConnections) == 0 {
		analysis.DeepConnections = fillerConnections
	}
	if len(p.surprising) > 0 {
		analysis.SurprisingUnity = strings.Join(p.surprising, " ")
	}
	if len(analysis.ConcreteExamples) == 0 {
		analysis.ConcreteExamples = fillerExamples
	}
	if p.humanTruth != "" {
		analysis.HumanTruth = p.humanTruth
	}
	return analysis
}

// markerRest returns whatever content follows the section marker on the same
// line. Models frequently answer single-value sections inline.
func markerRest(line, marker string) string {
	_, after, found := strings.Cut(line, marker)
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}

// stripBullet removes a single leading bullet character. The second return
// reports whether the line was bulleted at all.
func stripBullet(line string) (string, bool) {
	for _, bullet := range []string{"-", "•", "*"} {
		if strings.HasPrefix(line, bullet) {
			return strings.TrimSpace(strings.TrimPrefix(line, bullet)), true
		}
	}
	return line, false
}

// extractScore pulls the first numeral out of a UNITY_SCORE line, clamped to
// [0,1]. Out-of-range numerals are a model formatting accident, not a signal.
func extractScore(line string) (float64, bool) {
	match := numberPattern.FindString(line)
	if match == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, true
}
