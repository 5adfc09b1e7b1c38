package utils

// UniqueStrings removes duplicate and empty values from a slice of strings,
// preserving first-seen order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]bool)
	list := []string{}
	for _, entry := range slice {
		if entry == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		list = append(list, entry)
	}
	return list
}
