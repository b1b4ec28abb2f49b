// Package git resolves the source revision stamped on builds using go-git.
package git
