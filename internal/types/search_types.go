package types

import (
	"time"
)

// Intent is a coarse category of what kind of source best answers a query.
type Intent string

const (
	IntentAcademic     Intent = "academic"
	IntentNews         Intent = "news"
	IntentGeneral      Intent = "general"
	IntentTechnical    Intent = "technical"
	IntentBusiness     Intent = "business"
	IntentDefinition   Intent = "definition"
	IntentComparison   Intent = "comparison"
	IntentRecentEvents Intent = "recent_events"
)

// TemporalScope describes how time-sensitive a query is.
type TemporalScope string

const (
	TemporalRecent      TemporalScope = "recent"
	TemporalCurrentYear TemporalScope = "current_year"
	TemporalHistorical  TemporalScope = "historical"
	TemporalAllTime     TemporalScope = "all_time"
)

// ToolCategory identifies the kind of backend a provider talks to.
type ToolCategory string

const (
	CategoryWeb       ToolCategory = "web"
	CategoryNews      ToolCategory = "news"
	CategoryAcademic  ToolCategory = "academic"
	CategoryPatent    ToolCategory = "patent"
	CategoryExpert    ToolCategory = "expert"
	CategoryKnowledge ToolCategory = "knowledge"
)

// QueryAnalysis is the structured interpretation of one raw query.
// It is created once per orchestration call and never mutated afterwards.
type QueryAnalysis struct {
	Query           string        `json:"query"`
	MainTopic       string        `json:"main_topic"`
	Keywords        []string      `json:"keywords"`
	Intents         []Intent      `json:"intents"`
	TemporalScope   TemporalScope `json:"temporal_scope"`
	ComplexityScore float64       `json:"complexity_score"`
	RequiresRecent  bool          `json:"requires_recent"`
	RequiresFactual bool          `json:"requires_factual"`
}

// HasIntent reports whether the analysis detected the given intent.
func (qa *QueryAnalysis) HasIntent(intent Intent) bool {
	for _, i := range qa.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

// ExecutionPlanEntry is one tool's slice of an orchestration plan.
type ExecutionPlanEntry struct {
	ToolName          string                 `json:"tool_name"`
	Category          ToolCategory           `json:"category"`
	ReformulatedQuery string                 `json:"reformulated_query"`
	MaxResults        int                    `json:"max_results"`
	Priority          float64                `json:"priority"`
	ProviderParams    map[string]interface{} `json:"provider_params,omitempty"`
}

// OutcomeStatus is the terminal state of one tool's unit of work.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeEmpty   OutcomeStatus = "empty"
	OutcomeError   OutcomeStatus = "error"
	OutcomeTimeout OutcomeStatus = "timeout"
)

// ToolOutcome records what one planned tool produced. Exactly one outcome
// exists per planned tool per orchestration call, regardless of how many
// reformulation retries ran inside that tool's unit of work.
type ToolOutcome struct {
	ToolName          string         `json:"tool_name"`
	Status            OutcomeStatus  `json:"status"`
	Results           []SearchResult `json:"results"`
	Error             string         `json:"error,omitempty"`
	Latency           time.Duration  `json:"latency"`
	Attempts          int            `json:"attempts"`
	ReformulationUsed string         `json:"reformulation_used,omitempty"`
}

// SearchResult is the normalized shape every provider's hits are mapped into.
// The normalized URL is the identity key for deduplication. Backend-specific
// extras live in ProviderMetadata so the ranker never branches per provider.
type SearchResult struct {
	Title            string                 `json:"title"`
	URL              string                 `json:"url"`
	Snippet          string                 `json:"snippet"`
	SourceName       string                 `json:"source_name"`
	SourceTool       string                 `json:"source_tool,omitempty"`
	Category         ToolCategory           `json:"category,omitempty"`
	PublishedAt      *time.Time             `json:"published_at,omitempty"`
	BaseRelevance    float64                `json:"base_relevance"`
	ToolPriority     float64                `json:"tool_priority"`
	FinalScore       float64                `json:"final_score"`
	ProviderMetadata map[string]interface{} `json:"provider_metadata,omitempty"`
}

// AnalysisSummary is the caller-facing slice of a QueryAnalysis.
type AnalysisSummary struct {
	MainTopic       string        `json:"main_topic"`
	Intents         []Intent      `json:"intents"`
	TemporalScope   TemporalScope `json:"temporal_scope"`
	ComplexityScore float64       `json:"complexity_score"`
}

// OutcomeSummary is the per-tool slice of a ToolOutcome that survives into
// the response envelope. ReformulationUsed carries the rewritten query when
// a tool only produced results after a retry.
type OutcomeSummary struct {
	Status            OutcomeStatus `json:"status"`
	ReformulationUsed string        `json:"reformulation_used,omitempty"`
}

// OrchestrationMetadata explains which sources contributed and which failed.
type OrchestrationMetadata struct {
	ExecutionID       string                    `json:"execution_id"`
	AgentType         string                    `json:"agent_type,omitempty"`
	TotalSources      int                       `json:"total_sources"`
	ToolsUsed         []string                  `json:"tools_used"`
	Outcomes          map[string]OutcomeSummary `json:"outcomes"`
	ExecutionStrategy string                    `json:"execution_strategy"`
	ExecutionTime     time.Duration             `json:"execution_time"`
}

// OrchestrationResponse is the envelope returned by one orchestration call.
type OrchestrationResponse struct {
	Success  bool                  `json:"success"`
	Query    string                `json:"query"`
	Error    string                `json:"error,omitempty"`
	Analysis AnalysisSummary       `json:"analysis"`
	Results  []SearchResult        `json:"results"`
	Metadata OrchestrationMetadata `json:"metadata"`
}
