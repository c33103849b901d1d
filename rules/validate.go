package rules

import (
	"fmt"
	"regexp"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validModuleTypeUID additionally allows the "." and ":" separators used by
// namespaced system types ("timer.Cron") and composite custom types
// ("timer.Cron:MyCron").
var validModuleTypeUID = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*(:[a-zA-Z_][a-zA-Z0-9_]*)?$`)

var validConfigTypes = map[string]bool{
	"int": true, "int64": true, "float64": true, "string": true,
	"bool": true, "bytes": true, "timestamp": true, "duration": true,
}

var reservedIdentifiers = map[string]bool{
	"true": true, "false": true, "null": true,
	"if": true, "else": true, "for": true, "while": true, "break": true, "continue": true, "return": true,
	"var": true, "let": true, "const": true, "function": true,
	"in": true, "as": true, "import": true, "package": true, "namespace": true,
}

// ValidateModuleType checks that a module type's declared inputs, outputs,
// and configuration keys are well-formed before it is registered: every
// name is a valid identifier, not a reserved word, and every declared type
// is one this engine's handler factories can actually bind against.
func ValidateModuleType(mt *ModuleType) error {
	if !validModuleTypeUID.MatchString(mt.UID) {
		return fmt.Errorf("moduletype: invalid UID %q", mt.UID)
	}

	for _, in := range mt.Inputs {
		if err := validateNamedType(in.Name, in.Type); err != nil {
			return fmt.Errorf("moduletype %q: input: %w", mt.UID, err)
		}
	}
	for _, out := range mt.Outputs {
		if err := validateNamedType(out.Name, out.Type); err != nil {
			return fmt.Errorf("moduletype %q: output: %w", mt.UID, err)
		}
	}
	for _, cfg := range mt.ConfigDescriptions {
		if err := validateNamedType(cfg.Name, cfg.Type); err != nil {
			return fmt.Errorf("moduletype %q: configuration: %w", mt.UID, err)
		}
	}
	return nil
}

func validateNamedType(name, typeName string) error {
	if err := validateIdentifier(name); err != nil {
		return fmt.Errorf("name %q: %w", name, err)
	}
	if typeName != "" && !validConfigTypes[typeName] {
		return fmt.Errorf("field %q has unsupported type %q", name, typeName)
	}
	return nil
}

func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("identifier length %d exceeds maximum of 100", len(name))
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("must match ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}
	if reservedIdentifiers[name] {
		return fmt.Errorf("%q is a reserved word", name)
	}
	return nil
}
