package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexLibraryTool returns the tool definition for index_library
func indexLibraryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_library",
		Description: "Discover documents in the library and start indexing them into passages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the library directory (defaults to the configured library)",
				},
			},
		},
	}
}

// indexNextBatchTool returns the tool definition for index_next_batch
func indexNextBatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_next_batch",
		Description: "Index the next batch of unindexed files, retrying previously failed ones",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Number of files to index in this batch",
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// randomPassageTool returns the tool definition for random_passage
func randomPassageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "random_passage",
		Description: "Return a random passage from the library, avoiding recently shown ones",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// relatedPassagesTool returns the tool definition for related_passages
func relatedPassagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "related_passages",
		Description: "Find passages similar to a given passage, drawn from other documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"passage_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the passage to find related passages for",
				},
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of related passages to return",
					"default":     3,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"passage_id"},
		},
	}
}

// passageContextTool returns the tool definition for passage_context
func passageContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "passage_context",
		Description: "Return a passage with surrounding text from its source document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"passage_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the passage to expand",
				},
			},
			Required: []string{"passage_id"},
		},
	}
}

// savePassageTool returns the tool definition for save_passage
func savePassageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_passage",
		Description: "Save a passage to the personal collection and export it to CSV",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"passage_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the passage to save",
				},
				"note": map[string]interface{}{
					"type":        "string",
					"description": "Optional note to store with the passage",
				},
			},
			Required: []string{"passage_id"},
		},
	}
}

// indexingStatusTool returns the tool definition for indexing_status
func indexingStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "indexing_status",
		Description: "Report indexing progress and passage counts for the library",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// resetSessionsTool returns the tool definition for reset_sessions
func resetSessionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reset_sessions",
		Description: "Clear the session history so all passages are eligible to be shown again",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
