package domain

// Priority names the ordering policy a context window was built with.
type Priority string

const (
	PriorityChronological Priority = "chronological"
	PriorityImportance    Priority = "importance"
	PrioritySemantic      Priority = "semantic"
)

// ContextWindow is a token-bounded, read-only selection of chunks.
// TotalTokens never exceeds MaxTokens.
type ContextWindow struct {
	Chunks      []EnrichedChunk `json:"chunks"`
	TotalTokens int             `json:"totalTokens"`
	MaxTokens   int             `json:"maxTokens"`
	Priority    Priority        `json:"priority"`
}

// Task selects a context policy.
type Task string

const (
	TaskSummarize   Task = "summarize"
	TaskQA          Task = "qa"
	TaskAnalysis    Task = "analysis"
	TaskTranslation Task = "translation"
)
