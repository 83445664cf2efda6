// Package freshness validates previously downloaded files against the origin.
//
// Moodle serves stored files with an ETag equal to the sha1 of their content.
// Comparing that token, obtained with a HEAD request, to the digest of the
// shadow copy tells whether the file changed without downloading it again.
// A mismatch never means "delete", only "download again".
package freshness
