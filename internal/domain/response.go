package domain

// Usage is the per-run accounting block of a successful response.
type Usage struct {
	SearchTime      int64 `json:"searchTime"`
	AITokensUsed    int64 `json:"aiTokensUsed"`
	SourcesSearched int   `json:"sourcesSearched"`
}

// SearchResponse is returned by the HTTP endpoint and the orchestrator.
type SearchResponse struct {
	Success     bool            `json:"success"`
	Programs    []ProgramRecord `json:"programs,omitzero"`
	TotalFound  *int            `json:"totalFound,omitempty"`
	SearchQuery string          `json:"searchQuery,omitempty"`
	Usage       *Usage          `json:"usage,omitempty"`
	Timestamp   string          `json:"timestamp"`
	Error       string          `json:"error,omitempty"`
	ErrorType   string          `json:"errorType,omitempty"`
}
