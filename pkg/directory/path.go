package directory

import (
	"fmt"
	"strings"

	. "github.com/weberc2/blockfs/pkg/types"
)

// Components splits a slash-delimited path into its names. Empty components
// and `.` are dropped, so "", "/" and "/./" all name the root.
func Components(path string) []string {
	var components []string
	for _, c := range strings.Split(path, "/") {
		if c != "" && c != "." {
			components = append(components, c)
		}
	}
	return components
}

// SplitPath separates a path into its parent directory and final name. The
// root has neither a parent nor a name, so it splits into "/" and "".
func SplitPath(path string) (parent string, name string, err error) {
	components := Components(path)
	if len(components) < 1 {
		return "/", "", nil
	}
	name = components[len(components)-1]
	if err := ValidateName(name); err != nil {
		return "", "", fmt.Errorf("splitting path `%s`: %w", path, err)
	}
	return "/" + strings.Join(components[:len(components)-1], "/"), name, nil
}

func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("validating name `%s`: %w", name, InvalidNameErr)
	}
	if Byte(len(name)) > NameMax {
		return fmt.Errorf(
			"validating name `%s`: `%d` bytes exceeds `%d`: %w",
			name,
			len(name),
			NameMax,
			NameTooLongErr,
		)
	}
	return nil
}

const InvalidNameErr ConstError = "invalid name"
