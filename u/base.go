package u

import (
	"fmt"
)

// PanicIf panics with a formatted message if cond is true
// PanicIf(len(args) == 0, "need %d args", 2)
func PanicIf(cond bool, args ...any) {
	if !cond {
		return
	}
	s := "condition failed"
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}

// getErr returns the first non-nil error
func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
