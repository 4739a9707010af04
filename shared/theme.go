package shared

import "fmt"

// Theme represents a chart color theme.
type Theme int

const (
	Light Theme = iota
	Dark
	DarkBlue
)

// Themes lists all supported themes.
var Themes = []Theme{Light, Dark, DarkBlue}

// String stringifies the provided theme.
func (t Theme) String() string {
	switch t {
	case Light:
		return "light"
	case Dark:
		return "dark"
	case DarkBlue:
		return "darkblue"
	default:
		return "unknown"
	}
}

// ParseTheme parses the provided theme string.
func ParseTheme(s string) (Theme, error) {
	for _, theme := range Themes {
		if theme.String() == s {
			return theme, nil
		}
	}

	return 0, fmt.Errorf("unknown theme '%s', available themes: %v", s, Themes)
}

// MarshalText encodes the theme as its string form.
func (t Theme) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes the theme from its string form.
func (t *Theme) UnmarshalText(b []byte) error {
	theme, err := ParseTheme(string(b))
	if err != nil {
		return err
	}

	*t = theme
	return nil
}
