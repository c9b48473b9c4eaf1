package utils

// Filter returns a new slice containing only the elements for which
// filterFunc returns true.
func Filter[T any](slice []T, filterFunc func(T) bool) []T {
	var result []T
	for _, item := range slice {
		if filterFunc(item) {
			result = append(result, item)
		}
	}
	return result
}
