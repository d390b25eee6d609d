package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
)

// ValidationError reports a single parameter that failed schema validation.
// Validation failures never reach the remote boundary.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Message)
}

// ValidateValue checks one raw value against its spec and returns the
// canonical string form (enum values are canonicalized to their declared
// casing). Used both by the dispatcher and by the engine during parameter
// collection, so a value is rejected at the turn that supplies it.
func ValidateValue(spec command.ParamSpec, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", &ValidationError{Param: spec.Name, Message: "value must not be empty"}
	}

	switch spec.Type {
	case command.ParamInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", &ValidationError{Param: spec.Name, Message: "must be a whole number"}
		}
	case command.ParamEnum:
		matched := false
		for _, v := range spec.Values {
			if strings.EqualFold(v, value) {
				value = v
				matched = true
				break
			}
		}
		if !matched {
			return "", &ValidationError{
				Param:   spec.Name,
				Message: "must be one of " + strings.Join(spec.Values, ", "),
			}
		}
	case command.ParamPath:
		if !strings.HasPrefix(value, "/") {
			return "", &ValidationError{Param: spec.Name, Message: "must be an absolute path"}
		}
	}

	if spec.Pattern != nil && !spec.Pattern.MatchString(value) {
		return "", &ValidationError{Param: spec.Name, Message: "has an invalid format"}
	}
	return value, nil
}

// ValidateParams checks a collected parameter map against the full command
// schema and returns the coerced values to send over the boundary: integers
// become int64, everything else stays a string.
func ValidateParams(def *command.Definition, raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(raw))

	for name := range raw {
		if _, ok := def.Param(name); !ok {
			return nil, &ValidationError{Param: name, Message: "not accepted by " + def.Name}
		}
	}

	for _, spec := range def.Params {
		value, present := raw[spec.Name]
		if !present {
			if spec.Required {
				return nil, &ValidationError{Param: spec.Name, Message: "is required"}
			}
			continue
		}

		canonical, err := ValidateValue(spec, value)
		if err != nil {
			return nil, err
		}

		if spec.Type == command.ParamInteger {
			n, _ := strconv.ParseInt(canonical, 10, 64)
			out[spec.Name] = n
		} else {
			out[spec.Name] = canonical
		}
	}
	return out, nil
}
