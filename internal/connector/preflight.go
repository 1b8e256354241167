package connector

import (
	"fmt"
	"os/exec"
	"strings"
)

// LookPath matches exec.LookPath.
type LookPath func(file string) (string, error)

// CheckTools makes sure every named binary can be found.
func CheckTools(look LookPath, tools ...string) error {
	if look == nil {
		look = exec.LookPath
	}
	var missing []string
	for _, tool := range tools {
		if _, err := look(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrToolMissing, strings.Join(missing, ", "))
	}
	return nil
}
