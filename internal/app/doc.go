// Package app contains the core application logic. It wires configuration,
// build-file loading, plugin registration and execution into one lifecycle,
// decoupled from any specific entrypoint like a CLI.
package app
