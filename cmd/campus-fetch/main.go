// Package main provides the entry point for the campus-fetch CLI.
//
// campus-fetch mirrors the courses of a Moodle campus into a local
// directory tree: page text as Markdown, files, folders, shortcuts and
// forums. Runs are incremental; files whose content did not change are
// reclaimed from the previous run instead of being downloaded again.
//
// Usage:
//
//	campus-fetch sync 1234:algoritmos-i 5678:analisis-ii
//	campus-fetch fetch https://campus.exactas.uba.ar/mod/folder/view.php?id=9
//
// See --help for all available options.
package main

// main is the entry point for campus-fetch.
func main() {
	Execute()
}
