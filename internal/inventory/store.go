package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// DefaultInventoryFileName is used when no inventory path is configured.
	DefaultInventoryFileName = ".github_backup_config.json"

	inventoryJSONIndentConstant           = "  "
	inventoryTemporaryPatternConstant     = ".reposync-inventory-*.tmp"
	inventoryFilePermissionsConstant      = fs.FileMode(0o600)
	inventoryDirectoryPermissionsConstant = fs.FileMode(0o755)
	inventoryTrailingNewlineConstant      = '\n'
	loadErrorTemplateConstant             = "failed to load inventory %s: %s"
	saveErrorTemplateConstant             = "failed to save inventory %s: %s"
	inventoryPathRequiredMessageConstant  = "inventory path must not be empty"
)

// ErrInventoryPathRequired indicates the store was asked to operate on an empty path.
var ErrInventoryPathRequired = errors.New(inventoryPathRequiredMessageConstant)

// LoadError reports an inventory file that exists but cannot be read or decoded.
type LoadError struct {
	Path  string
	Cause error
}

// Error describes the load failure.
func (loadError LoadError) Error() string {
	return fmt.Sprintf(loadErrorTemplateConstant, loadError.Path, loadError.Cause)
}

// Unwrap exposes the underlying cause.
func (loadError LoadError) Unwrap() error {
	return loadError.Cause
}

// SaveError reports an inventory that could not be written.
type SaveError struct {
	Path  string
	Cause error
}

// Error describes the save failure.
func (saveError SaveError) Error() string {
	return fmt.Sprintf(saveErrorTemplateConstant, saveError.Path, saveError.Cause)
}

// Unwrap exposes the underlying cause.
func (saveError SaveError) Unwrap() error {
	return saveError.Cause
}

// Store loads and persists the inventory document.
type Store struct{}

// NewStore constructs a Store.
func NewStore() Store {
	return Store{}
}

// Load reads the inventory at path. A missing file yields an empty inventory and found=false.
func (store Store) Load(path string) (Inventory, bool, error) {
	if len(path) == 0 {
		return Inventory{}, false, ErrInventoryPathRequired
	}

	content, readError := os.ReadFile(path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return NewInventory(), false, nil
		}
		return Inventory{}, false, LoadError{Path: path, Cause: readError}
	}

	loaded := NewInventory()
	if len(bytes.TrimSpace(content)) > 0 {
		if decodeError := json.Unmarshal(content, &loaded); decodeError != nil {
			return Inventory{}, true, LoadError{Path: path, Cause: decodeError}
		}
	}

	return normalizeInventory(loaded), true, nil
}

// Save writes the inventory with two-space indentation, replacing the previous file in a single rename.
func (store Store) Save(path string, inventory Inventory) error {
	if len(path) == 0 {
		return ErrInventoryPathRequired
	}

	encoded, encodeError := json.MarshalIndent(normalizeInventory(inventory), "", inventoryJSONIndentConstant)
	if encodeError != nil {
		return SaveError{Path: path, Cause: encodeError}
	}
	encoded = append(encoded, inventoryTrailingNewlineConstant)

	directory := filepath.Dir(path)
	if mkdirError := os.MkdirAll(directory, inventoryDirectoryPermissionsConstant); mkdirError != nil {
		return SaveError{Path: path, Cause: mkdirError}
	}

	temporaryFile, createError := os.CreateTemp(directory, inventoryTemporaryPatternConstant)
	if createError != nil {
		return SaveError{Path: path, Cause: createError}
	}
	temporaryPath := temporaryFile.Name()

	if writeError := writeAndClose(temporaryFile, encoded); writeError != nil {
		_ = os.Remove(temporaryPath)
		return SaveError{Path: path, Cause: writeError}
	}

	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		_ = os.Remove(temporaryPath)
		return SaveError{Path: path, Cause: renameError}
	}

	return nil
}

func writeAndClose(file *os.File, content []byte) error {
	if _, writeError := file.Write(content); writeError != nil {
		_ = file.Close()
		return writeError
	}
	if chmodError := file.Chmod(inventoryFilePermissionsConstant); chmodError != nil {
		_ = file.Close()
		return chmodError
	}
	if syncError := file.Sync(); syncError != nil {
		_ = file.Close()
		return syncError
	}
	return file.Close()
}

func normalizeInventory(inventory Inventory) Inventory {
	normalizedRepos := make(map[string]RepoRecord, len(inventory.Repos))
	for name, record := range inventory.Repos {
		if len(record.Name) == 0 {
			record.Name = name
		}
		normalizedRepos[name] = record
	}
	inventory.Repos = normalizedRepos
	return inventory
}
