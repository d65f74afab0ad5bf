// Package registry provides the central "glue" for the plugin system.
//
// The Registry stores the mapping between plugin identifiers used in build
// descriptions (e.g., "lang.haskell") and the compiled Go configuration
// logic that implements them. It is the project.PluginResolver handed to a
// project tree, so plugin resolution stays an injected dependency rather
// than process-wide state.
//
// During application startup, every compiled-in Module registers its plugins
// and the registry is then validated.
package registry
