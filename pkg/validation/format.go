// Package validation provides scenario and output validation utilities.
package validation

import (
	"fmt"

	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
)

// ValidateOutputFormat checks if the output format is valid
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV:
		return nil
	default:
		return fmt.Errorf("unknown output format %s", format)
	}
}
