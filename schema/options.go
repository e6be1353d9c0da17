package schema

import (
	"context"
	"sort"
	"strings"
)

// ResolveOptions returns the legal dropdown values for a field whose
// OptionContainer points at another type in "<TypeName>.<fieldName>" form:
// the named field's value is collected from every stored entity of that
// type. Malformed containers and store failures degrade to an empty list
// with a warning, so one bad field never aborts a bulk conversion.
func (r *Registry) ResolveOptions(ctx context.Context, f Field) []string {
	typeName, fieldName, ok := splitOptionContainer(f.OptionContainer)
	if !ok {
		if f.OptionContainer != "" {
			r.logger.Warn("malformed option container",
				"field", f.Name,
				"optionContainer", f.OptionContainer,
			)
		}
		return nil
	}

	docs, err := r.store.ListDocuments(ctx, r.scope.EntityCollectionPath(typeName))
	if err != nil {
		r.logger.Warn("failed to list option values",
			"field", f.Name,
			"optionType", typeName,
			"error", err,
		)
		return nil
	}

	seen := make(map[string]bool)
	var values []string
	for _, doc := range docs {
		v, ok := doc.Fields[fieldName].(string)
		if !ok || v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// splitOptionContainer splits "<TypeName>.<fieldName>" into its parts.
func splitOptionContainer(container string) (typeName, fieldName string, ok bool) {
	container = strings.TrimSpace(container)
	i := strings.IndexByte(container, '.')
	if i <= 0 || i == len(container)-1 {
		return "", "", false
	}
	return container[:i], container[i+1:], true
}
