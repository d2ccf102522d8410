// Package cli translates command-line arguments into an app.Config, layered
// on top of the file/environment configuration: flags always win.
package cli
