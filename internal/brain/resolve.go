package brain

import (
	"fmt"
	"os"
)

// Resolve determines the brain ID to use based on the priority chain:
// explicit > AIMLBOT_BRAIN env > "default".
// Returns the resolved brain ID and any validation error.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if err := ValidateID(explicit); err != nil {
			return "", fmt.Errorf("invalid brain ID %q: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv("AIMLBOT_BRAIN"); env != "" {
		if err := ValidateID(env); err != nil {
			return "", fmt.Errorf("invalid AIMLBOT_BRAIN %q: %w", env, err)
		}
		return env, nil
	}

	return "default", nil
}
