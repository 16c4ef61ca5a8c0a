package domain

// SummaryLength selects how long the generated summary should be.
type SummaryLength string

const (
	LengthShort  SummaryLength = "short"
	LengthMedium SummaryLength = "medium"
	LengthLong   SummaryLength = "long"
)

// SummaryStyle selects the output shape of the generated summary.
type SummaryStyle string

const (
	StyleBullet    SummaryStyle = "bullet"
	StyleParagraph SummaryStyle = "paragraph"
)

// SummaryOptions parameterize one summarization request.
type SummaryOptions struct {
	Length SummaryLength
	Style  SummaryStyle
}

// DefaultOptions is what the automatic watch-channel path always uses.
func DefaultOptions() SummaryOptions {
	return SummaryOptions{Length: LengthMedium, Style: StyleBullet}
}

// ParseLength maps a user-supplied value to a SummaryLength. Unrecognized
// values fall back to medium, never error.
func ParseLength(s string) SummaryLength {
	switch SummaryLength(s) {
	case LengthShort, LengthMedium, LengthLong:
		return SummaryLength(s)
	}
	return LengthMedium
}

// ParseStyle maps a user-supplied value to a SummaryStyle, falling back to
// bullet.
func ParseStyle(s string) SummaryStyle {
	switch SummaryStyle(s) {
	case StyleBullet, StyleParagraph:
		return SummaryStyle(s)
	}
	return StyleBullet
}
