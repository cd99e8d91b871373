package transpiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DefinitionMissingError is returned when the primary definition file does not exist.
type DefinitionMissingError struct {
	Path string
}

func (e *DefinitionMissingError) Error() string {
	return fmt.Sprintf("definition not found at %s", e.Path)
}

// DefinitionMalformedError is returned when a definition (or a skill fragment)
// violates the frontmatter rules.
type DefinitionMalformedError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DefinitionMalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed definition %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed definition %s: %s", e.Path, e.Reason)
}

func (e *DefinitionMalformedError) Unwrap() error {
	return e.Err
}

// SkillNotFoundError is returned when a declared skill cannot be found in any
// candidate location. AttemptedPaths lists every location in search order.
type SkillNotFoundError struct {
	Skill          string
	AttemptedPaths []string
}

func (e *SkillNotFoundError) Error() string {
	return fmt.Sprintf("skill '%s' not found. Looked in: %s", e.Skill, strings.Join(e.AttemptedPaths, ", "))
}

// IsDefinitionMissing reports whether err is, or wraps, a DefinitionMissingError.
func IsDefinitionMissing(err error) bool {
	var target *DefinitionMissingError
	return errors.As(err, &target)
}

// IsDefinitionMalformed reports whether err is, or wraps, a DefinitionMalformedError.
func IsDefinitionMalformed(err error) bool {
	var target *DefinitionMalformedError
	return errors.As(err, &target)
}

// IsSkillNotFound reports whether err is, or wraps, a SkillNotFoundError.
func IsSkillNotFound(err error) bool {
	var target *SkillNotFoundError
	return errors.As(err, &target)
}

func malformed(path, reason string) error {
	return &DefinitionMalformedError{Path: path, Reason: reason}
}
