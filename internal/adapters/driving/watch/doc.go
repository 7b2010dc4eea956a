// Package watch ingests documents dropped into a directory.
//
// Created and modified files with a supported extension are uploaded after a
// short debounce. When a watched file is rewritten, the new upload replaces the
// document previously ingested from that path; when it is removed or renamed
// away, that document is deleted. Hidden files and subdirectories are ignored.
package watch
