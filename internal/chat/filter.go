package chat

import "strings"

// FilterModels returns the models whose name contains term, ignoring case.
// An empty term matches everything. The input slice is never modified.
func FilterModels(models []Model, term string) []Model {
	needle := strings.ToLower(term)
	result := make([]Model, 0, len(models))
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			result = append(result, m)
		}
	}
	return result
}

// FindModel looks a model up by id, then by case-insensitive name
func FindModel(models []Model, ref string) (Model, bool) {
	for _, m := range models {
		if m.ID == ref {
			return m, true
		}
	}
	for _, m := range models {
		if strings.EqualFold(m.Name, ref) {
			return m, true
		}
	}
	return Model{}, false
}
