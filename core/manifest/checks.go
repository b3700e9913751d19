package manifest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/davidahmann/jadegate/core/schema/v1/skill"
)

// SupportedJadeVersions is the jade_version range this verifier understands.
const SupportedJadeVersions = "^1.0.0"

var supportedRange = mustConstraint(SupportedJadeVersions)

// CheckSchema reports structural defects. Every check runs; an empty result
// means the schema layer passes.
func CheckSchema(m skill.Manifest) []string {
	var problems []string
	if blank(m.JadeVersion) {
		problems = append(problems, "missing jade_version")
	}
	if blank(m.SkillID) {
		problems = append(problems, "missing skill_id")
	}
	if blank(m.Metadata.Name) {
		problems = append(problems, "missing metadata.name")
	}
	if len(m.ExecutionGraph.Nodes) == 0 {
		problems = append(problems, "execution graph has no nodes")
	}

	seen := make(map[string]int, len(m.ExecutionGraph.Nodes))
	for _, node := range m.ExecutionGraph.Nodes {
		seen[node.ID]++
		if seen[node.ID] == 2 {
			problems = append(problems, fmt.Sprintf("duplicate node id: %s", node.ID))
		}
	}
	for _, edge := range m.ExecutionGraph.Edges {
		if _, ok := seen[edge.From]; !ok {
			problems = append(problems, fmt.Sprintf("edge references unknown node: %s", edge.From))
		}
		if _, ok := seen[edge.To]; !ok {
			problems = append(problems, fmt.Sprintf("edge references unknown node: %s", edge.To))
		}
	}
	return problems
}

// Advise returns non-blocking observations about version strings and tags.
func Advise(m skill.Manifest) []string {
	var advisories []string
	if version, err := semver.NewVersion(strings.TrimSpace(m.JadeVersion)); err != nil {
		advisories = append(advisories, fmt.Sprintf("jade_version %q is not a semantic version", m.JadeVersion))
	} else if !supportedRange.Check(version) {
		advisories = append(advisories, fmt.Sprintf("jade_version %s is outside the supported range %s", version, SupportedJadeVersions))
	}
	if !blank(m.Metadata.Version) {
		if _, err := semver.NewVersion(strings.TrimSpace(m.Metadata.Version)); err != nil {
			advisories = append(advisories, fmt.Sprintf("metadata.version %q is not a semantic version", m.Metadata.Version))
		}
	}
	tags := make(map[string]struct{}, len(m.Metadata.Tags))
	for _, tag := range m.Metadata.Tags {
		key := strings.ToLower(strings.TrimSpace(tag))
		if _, ok := tags[key]; ok {
			advisories = append(advisories, fmt.Sprintf("duplicate tag: %s", tag))
			continue
		}
		tags[key] = struct{}{}
	}
	return advisories
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

func mustConstraint(value string) *semver.Constraints {
	constraint, err := semver.NewConstraint(value)
	if err != nil {
		panic(fmt.Sprintf("invalid version constraint %q: %v", value, err))
	}
	return constraint
}
