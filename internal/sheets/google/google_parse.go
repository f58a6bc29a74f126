package google

import (
	"fmt"
	"strings"

	ports "nudgify/internal/sheets"
)

// defaultColumns is appended when a range names only a sheet.
const defaultColumns = "A:Z"

// normalizeRange turns a bare sheet name into an A1 range and quotes sheet
// names containing spaces or punctuation. Ranges that already carry a '!'
// keep their cell part.
func normalizeRange(rng string) (string, error) {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return "", fmt.Errorf("%w: no range given", ports.ErrInvalidRange)
	}

	sheet, cells, found := strings.Cut(rng, "!")
	if !found {
		cells = defaultColumns
	}
	sheet = strings.TrimSpace(sheet)
	cells = strings.TrimSpace(cells)
	if sheet == "" {
		return "", fmt.Errorf("%w %q: missing sheet name", ports.ErrInvalidRange, rng)
	}
	if cells == "" {
		return "", fmt.Errorf("%w %q: missing cells", ports.ErrInvalidRange, rng)
	}
	return quoteSheet(sheet) + "!" + cells, nil
}

func quoteSheet(name string) string {
	if strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") && len(name) > 1 {
		return name
	}
	plain := true
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
