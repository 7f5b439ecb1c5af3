package storagepath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPath      = errors.New("storage path is empty")
	ErrUnmappedDrive  = errors.New("drive letter has no storage mapping")
	ErrInvalidMapping = errors.New("invalid drive mapping")
)

// DriveMap maps a drive letter or UNC share name (upper-cased) to a storage
// root folder.
type DriveMap map[string]string

// DefaultDriveMap maps P: to /Production.
func DefaultDriveMap() DriveMap {
	return DriveMap{"P": "Production"}
}

// ParseDriveMappings accepts either a JSON object ({"P":"Production"}) or
// LETTER:ShareName pairs separated by commas, semicolons or spaces. An empty
// string yields the default mapping.
func ParseDriveMappings(raw string) (DriveMap, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDriveMap(), nil
	}

	m := DriveMap{}
	if strings.HasPrefix(raw, "{") {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
		for k, v := range parsed {
			if err := m.add(k, v); err != nil {
				return nil, err
			}
		}
		return m, nil
	}

	pairs := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not LETTER:ShareName", ErrInvalidMapping, pair)
		}
		if err := m.add(key, value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m DriveMap) add(key, value string) error {
	key = strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(key), ":")))
	value = strings.Trim(strings.TrimSpace(strings.ReplaceAll(value, `\`, "/")), "/")
	if key == "" || value == "" {
		return fmt.Errorf("%w: empty key or share in %q:%q", ErrInvalidMapping, key, value)
	}
	m[key] = value
	return nil
}

// ToStoragePath converts a logical Windows path (drive letter or UNC) into the
// root-relative form the storage API expects. Paths already starting with a
// slash pass through after backslash normalization.
func (m DriveMap) ToStoragePath(logical string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(logical, `\`, "/"))
	if p == "" {
		return "", ErrEmptyPath
	}

	switch {
	case strings.HasPrefix(p, "//"):
		parts := strings.SplitN(strings.TrimLeft(p, "/"), "/", 3)
		if len(parts) < 2 || parts[1] == "" {
			return "", fmt.Errorf("%w: UNC path %q has no share", ErrEmptyPath, logical)
		}
		root, ok := m[strings.ToUpper(parts[1])]
		if !ok {
			root = parts[1]
		}
		rest := ""
		if len(parts) == 3 {
			rest = parts[2]
		}
		return Join(root, rest), nil

	case len(p) >= 2 && p[1] == ':' && isLetter(p[0]):
		letter := strings.ToUpper(p[:1])
		root, ok := m[letter]
		if !ok {
			return "", fmt.Errorf("%w: %s:", ErrUnmappedDrive, letter)
		}
		return Join(root, p[2:]), nil
	}

	return Join(p), nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
