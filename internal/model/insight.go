package model

import "time"

// AgentOutput is one agent's immutable output for a session. Shape follows
// spec §9's "tagged-union AgentOutput" design note: a name/turn tag plus a
// schema-validated payload, no inheritance hierarchy.
type AgentOutput struct {
	AgentName  string
	Turn       int
	Payload    map[string]any
	Confidence float64
	Timestamp  time.Time
}

// OrganizationStyle is ProjectProfile's classification of repo layout.
type OrganizationStyle string

const (
	OrgDomainDriven OrganizationStyle = "domain_driven"
	OrgLayerBased   OrganizationStyle = "layer_based"
	OrgFeatureBased OrganizationStyle = "feature_based"
	OrgFlat         OrganizationStyle = "flat"
	OrgHybrid       OrganizationStyle = "hybrid"
)

// ProjectProfile is phase 1's immutable output, assembled from seven
// characterization agents across three turns (spec §4.5 Phase 1).
type ProjectProfile struct {
	OrganizationStyle OrganizationStyle
	DependencyMap     map[string][]string // path -> imported paths
	EntryPoints       []string
	Purposes          map[string]string // path -> purpose summary
	TechnicalTraits   []string
	Terminology       map[string]string // term -> definition
	SectionPlan       []string
}

// Section is one labeled part of a FileInsight's body.
type Section struct {
	Title string
	Body  string
}

// ResearchIteration records one Planning/Investigating/Synthesizing turn of
// the deep-research loop (spec §4.6), kept for audit and for the aspects
// novelty check.
type ResearchIteration struct {
	Phase          string // "planning", "investigating", "synthesizing"
	AspectsCovered []string
	Output         string
	Usage          TokenUsage
}

// FileInsight is the single analyzed-file record (spec §3).
type FileInsight struct {
	Path                string
	Tier                Tier
	PurposeSummary      string
	Sections            []Section
	KeyInsights         []string
	CrossRefs           []string // paths this insight references
	HiddenAssumptions   []string
	ModificationRisks   []string
	ResearchIterations  []ResearchIteration // empty for Leaf/Standard
	ChildContextPaths   []string            // which lower-tier insights were used as context
	Diagram             string              // mermaid source, empty if none/invalid
	Confidence          float64
	AnalyzedAt          time.Time
}

// WordCountPurpose is the word count of PurposeSummary, used by the quality
// controller's clarity dimension (spec §4.7).
func (fi *FileInsight) WordCountPurpose() int {
	return countWords(fi.PurposeSummary)
}

func countWords(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !isSpace && !inWord {
			n++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return n
}

// ProjectInsightAgent names the four phase-4 top-down agents.
type ProjectInsightAgent string

const (
	AgentArchitecture ProjectInsightAgent = "architecture"
	AgentFlow         ProjectInsightAgent = "flow"
	AgentRisk         ProjectInsightAgent = "risk"
	AgentDomain       ProjectInsightAgent = "domain"
)

// ProjectInsight is one phase-4 agent's output (spec §3).
type ProjectInsight struct {
	Agent   ProjectInsightAgent
	Payload map[string]any
}

// DomainInsight is one phase-5 semantic domain grouping (spec §3).
type DomainInsight struct {
	Label            string
	Description      string
	FolderPaths      []string
	MemberFilePaths  []string
	SynthesizedBody  []Section
	RelatedDomains   []string
	HasDiagram       bool
	CrossLinkCount   int
}

// WordCount sums the body sections' word counts, used by gap detection
// (spec §4.5 Phase 5: "<100 words of content" flags a gap).
func (d *DomainInsight) WordCount() int {
	n := 0
	for _, s := range d.SynthesizedBody {
		n += countWords(s.Body)
	}
	return n
}

// DocumentationBlueprint is phase 5.5's declarative output plan (spec §3).
type DocumentationBlueprint struct {
	HierarchyDepth     int
	BaseSections       []string
	PerDomainStructure map[string][]string // domain label -> section selector
}
