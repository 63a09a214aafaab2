// Package workspace maps repository names onto directories under a target root and performs the
// filesystem and clone side effects requested during reconciliation.
package workspace
