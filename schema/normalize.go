package schema

import "strings"

// maxPaneIDLen bounds pane identifiers so they stay usable in URLs and logs.
const maxPaneIDLen = 64

// ValidatePaneID ensures a pane id matches [A-Za-z0-9._-] with no normalization.
func ValidatePaneID(id PaneID) error {
	raw := string(id)
	if raw == "" || len(raw) > maxPaneIDLen {
		return ErrInvalidPane
	}
	if strings.TrimSpace(raw) != raw {
		return ErrInvalidPane
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return ErrInvalidPane
		}
	}
	if raw == "." || raw == ".." {
		return ErrInvalidPane
	}
	return nil
}

// NormalizeTitle trims a pane title, falling back to the pane id.
func NormalizeTitle(title string, id PaneID) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return string(id)
	}
	return title
}
