// Package utils exposes reusable helpers consumed by the reposync commands.
//
// It houses the Viper-backed ConfigurationLoader, the zap LoggerFactory, and the
// context accessors that carry the configuration path and run identifier.
package utils
