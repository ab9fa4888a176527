package mcp

const (
	// AddMemoryToolName is the name of the tool that stores a memory.
	AddMemoryToolName = "add-memory"
	// SearchMemoriesToolName is the name of the tool that searches memories.
	SearchMemoriesToolName = "search-memories"
)

const userIDDescription = "User ID for memory storage. If not provided explicitly, use a generic user ID like, 'mem0-mcp-user'"

// MemoryTools returns the MCP tool definitions in listing order.
func MemoryTools() []Tool {
	return []Tool{
		AddMemoryTool(),
		SearchMemoriesTool(),
	}
}

// AddMemoryTool returns the tool definition for add-memory.
// The description doubles as usage policy for the calling agent.
func AddMemoryTool() Tool {
	trueVal := true

	return Tool{
		Name: AddMemoryToolName,
		Description: "CRITICAL: You MUST call this tool LITERALLY EVERY TIME you encounter ANY information that seems important to remember. " +
			"This includes: user preferences, project details, code patterns, technical solutions, debugging insights, architectural decisions, " +
			"configuration settings, error resolutions, workflow preferences, domain knowledge, business logic, API details, dependency information, " +
			"performance optimizations, security considerations, and ANY other information that could be valuable in future conversations. " +
			"Store comprehensive context including what was tried, what worked, what failed, and why. " +
			"The more memories you store, the better you can assist in future. " +
			"This tool should be called multiple times per conversation whenever you learn something worth remembering. " +
			"ALWAYS include metadata with at least a category field - use the current repository name, feature theme, or topic area " +
			`(e.g., "repo:DevelopmentMCPs", "feature:authentication", "topic:debugging", etc.).`,
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]JSONSchema{
				"content": {
					Type:        "string",
					Description: "The content to store in memory",
				},
				"userId": {
					Type:        "string",
					Description: userIDDescription,
				},
				"metadata": {
					Type: "object",
					Description: "STRONGLY RECOMMENDED: Metadata for categorizing memories. " +
						"Always include at least a category field with the current repository name, feature theme, or topic area",
					Properties: map[string]JSONSchema{
						"category": {
							Type: "string",
							Description: `Category for the memory - use formats like "repo:RepoName", "feature:FeatureName", "topic:TopicArea" ` +
								`(e.g., "repo:DevelopmentMCPs", "feature:authentication", "topic:debugging", "preferences", "technical_solutions")`,
						},
					},
					AdditionalProperties: &trueVal,
				},
			},
			Required: []string{"content", "userId"},
		},
	}
}

// SearchMemoriesTool returns the tool definition for search-memories.
func SearchMemoriesTool() Tool {
	return Tool{
		Name:        SearchMemoriesToolName,
		Description: "Search through stored memories. This method is called ANYTIME the user asks anything.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]JSONSchema{
				"query": {
					Type: "string",
					Description: "The search query. This is the query that the user has asked for. " +
						"Example: 'What did I tell you about the weather last week?' or 'What did I tell you about my friend John?'",
				},
				"userId": {
					Type:        "string",
					Description: userIDDescription,
				},
			},
			Required: []string{"query", "userId"},
		},
	}
}

// AddMemoryArgs contains the arguments for add-memory.
// Pointers distinguish an absent field from an empty one.
type AddMemoryArgs struct {
	Content  *string        `json:"content" validate:"required"`
	UserID   *string        `json:"userId" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchMemoriesArgs contains the arguments for search-memories.
type SearchMemoriesArgs struct {
	Query  *string `json:"query" validate:"required"`
	UserID *string `json:"userId" validate:"required"`
}
