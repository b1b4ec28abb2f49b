// Package preview wires the build coordinator, dev server, live reload channel
// and change watcher into one session. Build-only sessions run a single build
// and exit.
package preview
