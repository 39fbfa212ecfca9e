// Package main hosts the cepstra CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration, builds the dual filter bank
// extractor, and renders results as tables or JSON. Feature computation and
// storage live in the internal packages; commands here only translate flags
// into calls and print what comes back.
package main
