// Package devserver serves the output directory during development.
//
// Requests are resolved against the output tree before anything is served:
//
//	/posts/  -> posts/index.html, or 302 to /posts when posts.html exists
//	/about   -> about.html, or 302 to /about/ when about/index.html exists
//
// Everything else falls through to a static file handler. Serving and the
// fallthrough run while holding the build lock, so a response never observes a
// half written tree.
package devserver
