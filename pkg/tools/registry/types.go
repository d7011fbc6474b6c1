// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package registry

// These types stand in for what was, in the teacher repo, a generated
// protobuf package (gen/go/loom/v1). No .proto sources or generated code
// for that package exist anywhere in this project's history, so the search
// index speaks plain Go structs instead of a wire-generated schema.

// ToolSource identifies where an indexed tool came from.
type ToolSource int32

const (
	ToolSourceUnspecified ToolSource = iota
	ToolSourceBuiltin
	ToolSourceMCP
	ToolSourceCustom
)

// String renders the tool source for display and logging.
func (s ToolSource) String() string {
	switch s {
	case ToolSourceBuiltin:
		return "builtin"
	case ToolSourceMCP:
		return "mcp"
	case ToolSourceCustom:
		return "custom"
	default:
		return "unspecified"
	}
}

// SearchMode trades search latency against result quality.
type SearchMode int32

const (
	SearchModeUnspecified SearchMode = iota
	SearchModeFast                   // FTS5 only
	SearchModeBalanced                // FTS5 + LLM re-rank
	SearchModeAccurate                // query expansion + FTS5 + LLM re-rank
)

// String renders the search mode for display and logging.
func (m SearchMode) String() string {
	switch m {
	case SearchModeFast:
		return "fast"
	case SearchModeBalanced:
		return "balanced"
	case SearchModeAccurate:
		return "accurate"
	default:
		return "unspecified"
	}
}

// ToolExample is a worked usage example surfaced in search results.
type ToolExample struct {
	Description string
	Arguments   string
}

// RateLimitInfo describes a tool's declared rate limit, if any.
type RateLimitInfo struct {
	RequestsPerMinute int32
	BurstSize         int32
}

// IndexedTool is a single row of the tool search index.
type IndexedTool struct {
	Id               string
	Name             string
	Description      string
	Source           ToolSource
	McpServer        string
	InputSchema      string
	OutputSchema     string
	Capabilities     []string
	Keywords         []string
	Examples         []*ToolExample
	IndexedAt        string
	Version          string
	RequiresApproval bool
	RateLimit        *RateLimitInfo
}

// RelevanceSignal documents one contribution to a search result's score.
type RelevanceSignal struct {
	SignalType  string
	Description string
	Weight      float64
}

// ToolSearchResult pairs an indexed tool with its ranking for one query.
type ToolSearchResult struct {
	Tool        *IndexedTool
	Confidence  float64
	MatchReason string
	Signals     []*RelevanceSignal
}

// SearchMetadata reports how a Search call was actually executed.
type SearchMetadata struct {
	ModeUsed             SearchMode
	TotalIndexed         int32
	ExpandedTerms        []string
	CandidatesRetrieved  int32
	QueryUnderstandingMs int64
	FtsRetrievalMs       int64
	LlmRerankingMs       int64
	TotalMs              int64
}

// SearchToolsRequest is the input to Registry.Search.
type SearchToolsRequest struct {
	Query             string
	TaskContext       string
	Mode              SearchMode
	MaxResults        int32
	IncludeSchema     bool
	CapabilityFilters []string
	SourceFilters     []ToolSource
}

// SearchToolsResponse is the output of Registry.Search.
type SearchToolsResponse struct {
	Results  []*ToolSearchResult
	Metadata *SearchMetadata
}

// IndexError records one indexer's failure during IndexAll.
type IndexError struct {
	Source       ToolSource
	ServerName   string
	ErrorMessage string
}

// IndexToolsResponse summarizes one IndexAll run.
type IndexToolsResponse struct {
	BuiltinCount int32
	McpCount     int32
	CustomCount  int32
	TotalCount   int32
	Errors       []*IndexError
	DurationMs   int64
}

// ToolSourceInfo is one row of the tool_sources tracking table.
type ToolSourceInfo struct {
	Name          string
	Type          ToolSource
	Description   string
	ToolCount     int32
	LastIndexed   string
	Available     bool
	StatusMessage string
}
