// Package pipeline is the default content pipeline: it renders a directory of
// Markdown into the output directory as a sequence of named stages.
//
// Stages run in order: clean, render, static, manifest, inject. Each stage
// sees the shared buildState; the first error stops the run.
package pipeline
