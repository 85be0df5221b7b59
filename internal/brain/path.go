package brain

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot returns the root directory for all brains.
// Defaults to ~/.aimlbot/brains, falls back to ./.aimlbot/brains if the home
// directory is unavailable.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".aimlbot", "brains")
	}
	return filepath.Join(home, ".aimlbot", "brains")
}

// EncodePath encodes a brain ID for filesystem use.
// Replaces "/" with "__" for path-style brain IDs.
func EncodePath(brainID string) string {
	return strings.ReplaceAll(brainID, "/", "__")
}

// DecodePath decodes an encoded brain path back to a brain ID.
func DecodePath(encoded string) string {
	return strings.ReplaceAll(encoded, "__", "/")
}

// DBPath returns the full path to a brain's database file.
// Example: DBPath("bots/alice") -> ~/.aimlbot/brains/bots__alice/brain.db
func DBPath(brainID string) string {
	encoded := EncodePath(brainID)
	return filepath.Join(DefaultRoot(), encoded, "brain.db")
}
