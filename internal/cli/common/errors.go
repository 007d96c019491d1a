package common

import (
	"github.com/analyzere/analyzere-go/faults"
)

func ValidationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
