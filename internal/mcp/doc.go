// Package mcp implements the Model Context Protocol (MCP) server for the
// passage explorer.
//
// The server exposes eight tools to MCP clients:
//   - index_library: discover documents and start indexing them into passages
//   - index_next_batch: index the next batch of unindexed files on demand
//   - random_passage: a random passage, avoiding recently shown ones
//   - related_passages: passages similar to a given one, from other documents
//   - passage_context: a passage with surrounding text from its source
//   - save_passage: save a passage to the personal collection and CSV export
//   - indexing_status: indexing progress and passage counts
//   - reset_sessions: clear the session history
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Indexing Model
//
// index_library registers every supported file in the library as pending,
// indexes a first batch synchronously, and starts a background worker that
// drains the rest in small batches. A single lock serializes indexing:
// index_next_batch returns error -32002 while a run is in progress rather
// than queuing behind it.
//
// # Error Handling
//
// Tools return standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {"param": "path", "reason": "path does not exist"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: No passages indexed yet
//   - -32002: Indexing in progress
//   - -32003: Passage not found
package mcp
