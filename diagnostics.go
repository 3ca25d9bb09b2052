package reqdep

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Status is a diagnostic tool that returns a string describing the state of the scope:
// every dependency resolved so far, the providers it can still draw from and the
// teardowns waiting for the scope to close.
func (s *Scope) Status() string {
	var lines []string
	for key, label := range s.labels {
		if _, ok := s.values[key]; !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s - resolved", describeKey(key, label)))
	}
	sort.Strings(lines)

	result := strings.Builder{}
	fmt.Fprintf(&result, "scope %s", s.id)
	for _, line := range lines {
		result.WriteString("\n")
		result.WriteString(line)
	}

	var provided []string
	for _, v := range s.providers.values {
		provided = append(provided, fmt.Sprintf("%v - provided value", v.typ))
	}
	for _, g := range s.providers.generators {
		provided = append(provided, fmt.Sprintf("%v - generator: %s", g.typ, g.producer.label()))
	}
	sort.Strings(provided)
	if len(provided) > 0 {
		result.WriteString("\n----\nproviders:")
		for _, line := range provided {
			result.WriteString("\n")
			result.WriteString(line)
		}
	}

	if len(s.teardowns) > 0 {
		fmt.Fprintf(&result, "\n----\npending teardowns: %d", len(s.teardowns))
	}
	return result.String()
}

func describeKey(key depKey, label string) string {
	switch key.kind {
	case keyType:
		return fmt.Sprintf("%v (%s)", key.typ, label)
	case keyUnion:
		return "union " + label
	default:
		return label
	}
}

// formatGeneratorDebug simply returns a string representation of a function type. This is
// used instead of the native `%#v` formatter to not return the raw address of the generator
// as that's not important for this and simplifies testing.
func formatGeneratorDebug(genType reflect.Type) string {
	if genType.Kind() != reflect.Func {
		// We should never get here
		return "non-function!"
	}
	builder := strings.Builder{}
	builder.WriteString("(")
	for i := 0; i < genType.NumIn(); i++ {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(genType.In(i).String())
	}
	builder.WriteString(") ")
	for i := 0; i < genType.NumOut(); i++ {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(genType.Out(i).String())
	}
	return builder.String()
}
