// Package build serializes rebuilds of a single output directory.
//
// A Coordinator run records an Epoch, waits for the shared Lock, and aborts
// without side effects when a newer run was recorded in the meantime. The
// winning run tears down the previous artifact, invokes the content Pipeline,
// releases the Lock, activates the new artifact in the Registry and notifies
// listeners outside the Lock.
//
// The same Lock is held by request handlers of the development server, so no
// response is ever served from a partially rewritten output tree.
package build
