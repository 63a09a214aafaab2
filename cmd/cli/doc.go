// Package cli constructs the reposync command-line interface. It wires the
// Cobra command hierarchy (sync, mirror, inventory) to the Viper-backed
// configuration loader and the zap logger, and exposes Execute for main.
package cli
