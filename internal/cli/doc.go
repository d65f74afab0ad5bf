// Package cli holds the cobra command tree of the buildgrid binary. It
// layers command-line flags over the settings file and the defaults, and
// maps run outcomes onto process exit codes.
package cli
