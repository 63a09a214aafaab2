// Package remote retrieves the repositories owned by a GitHub account through the search API and
// normalizes them into inventory descriptors.
package remote
