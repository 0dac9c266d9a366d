// Package tools defines the agent's fixed toolbox.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - NewTool[T](): typed handlers; arguments are decoded and checked before the handler runs.
//   - Registry: name-indexed, immutable after construction.
//   - Tools: arithmetic, reverse_string, wiki/web/arxiv search, CSV and Excel
//     analysis, website and YouTube scraping, Python script execution, and
//     read access to question attachments.
package tools
