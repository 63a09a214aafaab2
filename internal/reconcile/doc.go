// Package reconcile compares the persisted inventory with the freshly fetched remote inventory, decides
// a disposition for every repository, performs the resulting side effects, and produces the next
// inventory.
//
// Repositories are processed one at a time in name order. A failure on one repository is recorded on
// its Action and never stops the pass; only context cancellation does.
//
// Repositories excluded by filter rules keep their records unless the unmatched policy removes their
// clones. Automatic deletions can be deferred for a configured number of passes.
package reconcile
