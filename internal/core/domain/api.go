package domain

// API data transfer objects for the Humbet RAG backend. Field names and JSON
// tags match the backend contract exactly.

// ChatRequest submits a query, optionally bound to an existing conversation.
type ChatRequest struct {
	Query          string `json:"query"`
	ConversationID *int   `json:"conversation_id,omitempty"`
}

// Source identifies a retrieved document chunk cited in an answer.
type Source struct {
	ID      int    `json:"id"`
	Source  string `json:"source,omitempty"`
	ChunkID string `json:"chunk_id,omitempty"`
}

// TraceEntry records one iteration of the adaptive retrieval loop.
type TraceEntry struct {
	Iteration            int     `json:"iteration"`
	RefinedQuery         string  `json:"refined_query"`
	NumDocuments         int     `json:"num_documents"`
	Retrieve             bool    `json:"retrieve"`
	RetrievalConfidence  float64 `json:"retrieval_confidence"`
	Reason               string  `json:"reason"`
	RawQuery             string  `json:"raw_query,omitempty"`
}

// DebugRqRag describes the query-refinement stage of the pipeline.
type DebugRqRag struct {
	RefinedQuery  string   `json:"refined_query"`
	SubQueries    []string `json:"sub_queries"`
	DocsRetrieved int      `json:"docs_retrieved"`
	SourceNames   []string `json:"source_names"`
}

// DebugDragin describes an entropy-based retrieval trigger decision.
type DebugDragin struct {
	Entropy            float64 `json:"entropy"`
	TriggeredRetrieval bool    `json:"triggered_retrieval"`
	Reason             string  `json:"reason"`
}

// DebugIterRetgen describes one retrieve-then-generate step.
type DebugIterRetgen struct {
	IterQuery        string `json:"iter_query"`
	CurrentDraft     string `json:"current_draft"`
	NewDocsFound     int    `json:"new_docs_found"`
	PruningDiscarded int    `json:"pruning_discarded"`
	PruningKept      int    `json:"pruning_kept"`
	Executing        string `json:"executing"`
}

// DebugEtc carries the entropy trend classification for a step.
type DebugEtc struct {
	CurrentTrend string `json:"current_trend"`
}

// DebugIteration bundles the per-step debug payloads.
type DebugIteration struct {
	Step       int             `json:"step"`
	Dragin     *DebugDragin    `json:"dragin,omitempty"`
	IterRetgen DebugIterRetgen `json:"iter_retgen"`
	Etc        DebugEtc        `json:"etc"`
}

// DebugFinalStatus summarizes why generation stopped.
type DebugFinalStatus struct {
	StopReason     string    `json:"stop_reason"`
	IsFallback     bool      `json:"is_fallback"`
	EntropyHistory []float64 `json:"entropy_history"`
}

// DebugLogs is the full per-request pipeline trace.
type DebugLogs struct {
	RqRag       DebugRqRag       `json:"rq_rag"`
	Iterations  []DebugIteration `json:"iterations"`
	FinalStatus DebugFinalStatus `json:"final_status"`
}

// ChatResponse is the backend's answer to a chat query.
type ChatResponse struct {
	Answer         string       `json:"answer"`
	ConversationID int          `json:"conversation_id"`
	Sources        []Source     `json:"sources"`
	Iterations     int          `json:"iterations"`
	Confidence     float64      `json:"confidence"`
	Trace          []TraceEntry `json:"trace"`
	DebugLogs      *DebugLogs   `json:"debug_logs,omitempty"`
}

// ConversationSummary is one row of the paginated history listing.
type ConversationSummary struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// ConversationMessage is a single message within a conversation.
type ConversationMessage struct {
	ID            int      `json:"id"`
	Role          string   `json:"role"`
	Content       string   `json:"content"`
	CreatedAt     string   `json:"created_at"`
	Confidence    *float64 `json:"confidence"`
	RagIterations *int     `json:"rag_iterations"`
}

// ConversationDetail is a full conversation with its messages.
type ConversationDetail struct {
	ID        int                   `json:"id"`
	Title     string                `json:"title"`
	CreatedAt string                `json:"created_at"`
	Messages  []ConversationMessage `json:"messages"`
}

// DashboardStats aggregates usage statistics across all conversations.
type DashboardStats struct {
	TotalConversations int      `json:"total_conversations"`
	TotalMessages      int      `json:"total_messages"`
	AvgConfidence      float64  `json:"avg_confidence"`
	LastActivity       string   `json:"last_activity"`
	TotalFeedback      int      `json:"total_feedback"`
	AvgFeedbackScore   *float64 `json:"avg_feedback_score"`
}

// FeedbackRequest attaches a 1-5 score and optional comment to a message.
type FeedbackRequest struct {
	MessageID int     `json:"message_id"`
	Score     int     `json:"score"`
	Comment   *string `json:"comment"`
}

// FeedbackResponse echoes the stored feedback entry.
type FeedbackResponse struct {
	ID        int     `json:"id"`
	MessageID int     `json:"message_id"`
	Score     int     `json:"score"`
	Comment   *string `json:"comment,omitempty"`
}

// EvaluateRequest runs retrieval/generation evaluation over a question set.
type EvaluateRequest struct {
	Questions          []string   `json:"questions"`
	GroundTruthAnswers []string   `json:"ground_truth_answers,omitempty"`
	RelevantDocIDs     [][]string `json:"relevant_doc_ids,omitempty"`
}

// EvaluateResponse carries the retrieval and RAGAS metrics.
type EvaluateResponse struct {
	HitRate float64            `json:"hit_rate"`
	MRR     float64            `json:"mrr"`
	Ragas   map[string]float64 `json:"ragas"`
}

// IngestResponse reports how a document was indexed.
type IngestResponse struct {
	Source    string `json:"source"`
	NumChunks int    `json:"num_chunks"`
}

// VectorResetResponse acknowledges a vector-store wipe.
type VectorResetResponse struct {
	Success bool `json:"success"`
}

// VectorDeleteRequest removes all chunks for one source.
type VectorDeleteRequest struct {
	Source string `json:"source"`
}

// VectorDeleteResponse reports how many chunks were removed.
type VectorDeleteResponse struct {
	Source       string `json:"source"`
	DeletedCount int    `json:"deleted_count"`
}

// VectorSourceEntry is one indexed source with its chunk count.
type VectorSourceEntry struct {
	Source    string `json:"source"`
	NumChunks int    `json:"num_chunks"`
}

// VectorSourcesResponse lists all indexed sources.
type VectorSourcesResponse struct {
	Sources []VectorSourceEntry `json:"sources"`
}

// ChunkEntry is a single stored chunk for a source.
type ChunkEntry struct {
	DocID   string `json:"doc_id"`
	ChunkID string `json:"chunk_id,omitempty"`
	Content string `json:"content"`
}

// VectorSourceDetailResponse lists the chunks for one source.
type VectorSourceDetailResponse struct {
	Source    string       `json:"source"`
	NumChunks int          `json:"num_chunks"`
	Chunks    []ChunkEntry `json:"chunks"`
}
