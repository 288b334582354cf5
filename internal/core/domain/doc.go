// Package domain holds rlm's entities and the rules that need no I/O.
//
// Chunks move through three tiers. An active chunk lives as a markdown
// file with a metadata row; an ArchivedChunk is the same content gzipped
// into the archive directory; a PurgeRecord is all that remains once the
// archive copy is deleted. Insights are short permanent facts that never
// enter that lifecycle. Sessions group chunks by project and suggest
// domain names. TagSet is shared by chunks, insights and the retention
// policy.
//
// The package imports only the standard library.
package domain
