package utils

func InString(hay []string, needle string) bool {
	for _, x := range hay {
		if x == needle {
			return true
		}
	}

	return false
}

func DeduplicateStringSlice(in []string) (result []string) {
	for _, i := range in {
		if !InString(result, i) {
			result = append(result, i)
		}
	}
	return result
}
