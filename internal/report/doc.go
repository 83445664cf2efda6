// Package report renders sync results and page artifacts.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown tables and a mermaid chart for a sync log
//   - JSONWriter: Structured JSON output for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
//
// WritePage renders the Markdown artifact written for each visited page.
package report
