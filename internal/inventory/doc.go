// Package inventory defines the persisted repository records and the JSON store that loads and saves them.
package inventory
