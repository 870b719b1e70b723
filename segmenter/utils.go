package segmenter

func isAlphaNum(r rune) bool {
	if r < 128 {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}
	return false
}

func isPureAlphaNum(runes []rune) bool {
	for _, r := range runes {
		if !isAlphaNum(r) {
			return false
		}
	}
	return len(runes) > 0
}
