// Package app contains the core application logic: configuration layering,
// logger construction, pipeline loading, and the run lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
package app
