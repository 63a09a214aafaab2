// Package mirror pushes locally materialized repositories to a secondary hosting provider.
//
// A Provider makes sure the destination repository exists (creating it when absent) and reports the URL
// to push to. The Pusher walks the inventory, asks the provider for each non-ignored repository and runs
// git push --mirror from the local clone.
package mirror
