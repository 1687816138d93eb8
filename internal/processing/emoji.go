package processing

type runeRange struct{ lo, hi rune }

// Pictographic and emoticon blocks counted as emoji.
var emojiRanges = []runeRange{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F680, 0x1F6FF}, // transport & map
	{0x1F900, 0x1F9FF}, // supplemental symbols & pictographs
	{0x2600, 0x26FF},   // miscellaneous symbols
	{0x2702, 0x27B0},   // dingbats
	{0x1F170, 0x1F251}, // enclosed alphanumerics & ideographs
}

const (
	regionalIndicatorLo = 0x1F1E6
	regionalIndicatorHi = 0x1F1FF
)

func isEmoji(r rune) bool {
	for _, rr := range emojiRanges {
		if r >= rr.lo && r <= rr.hi {
			return true
		}
	}
	return false
}

func isRegionalIndicator(r rune) bool {
	return r >= regionalIndicatorLo && r <= regionalIndicatorHi
}

// ExtractEmoji returns every emoji in text in order of appearance, duplicates
// included. Two consecutive regional indicators form one flag.
func ExtractEmoji(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isRegionalIndicator(r):
			if i+1 < len(runes) && isRegionalIndicator(runes[i+1]) {
				out = append(out, string(runes[i:i+2]))
				i++
				continue
			}
			out = append(out, string(r))
		case isEmoji(r):
			out = append(out, string(r))
		}
	}
	return out
}
