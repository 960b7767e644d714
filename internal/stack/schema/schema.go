package schema

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FS is the embedded filesystem containing the schema files.
//
//go:embed **/*.json
var fs embed.FS

var (
	// versionRegex matches version strings in the format "v1-alpha.1", "v1-beta.2", etc.
	versionRegex = regexp.MustCompile(`^v(\d+)(?:-(alpha|beta|rc)\.(\d+))?$`)
	// preReleaseOrder defines the order of pre-release types.
	preReleaseOrder = map[string]int{"alpha": 0, "beta": 1, "rc": 2, "": 3}
)

// GetStackSchema retrieves the JSON schema for validating stack files at a
// specific version. The schema file must be named "stack.json" within the
// version directory.
func GetStackSchema(version string) ([]byte, error) {
	fileName := version + "/stack.json"
	if _, err := fs.Open(fileName); err != nil {
		return nil, fmt.Errorf("stack schema not found for version %s", version)
	}
	return fs.ReadFile(fileName)
}

// GetStackSchemas returns a map of version string to stack schema bytes.
func GetStackSchemas() (map[string][]byte, error) {
	files, err := fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	schemas := make(map[string][]byte)
	for _, file := range files {
		if !file.IsDir() {
			continue
		}
		version := file.Name()
		schema, err := GetStackSchema(version)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema for version %s: %w", version, err)
		}
		schemas[version] = schema
	}

	return schemas, nil
}

// getSortedVersions returns a sorted slice of version strings (ascending order)
func getSortedVersions() ([]string, error) {
	schemas, err := GetStackSchemas()
	if err != nil {
		return nil, fmt.Errorf("failed to get stack schemas: %w", err)
	}

	versions := make([]string, 0, len(schemas))
	for v := range schemas {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return compareSchemaVersions(versions[i], versions[j]) < 0
	})
	return versions, nil
}

// GetLatestStackVersion returns the latest stack schema version (string).
func GetLatestStackVersion() (string, error) {
	versions, err := getSortedVersions()
	if err != nil {
		return "", fmt.Errorf("failed to get sorted versions: %w", err)
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no stack schemas found")
	}
	return versions[len(versions)-1], nil
}

// GetValidStackVersions returns all schema versions in ascending order.
func GetValidStackVersions() ([]string, error) {
	versions, err := getSortedVersions()
	if err != nil {
		return nil, fmt.Errorf("failed to get sorted versions: %w", err)
	}
	return versions, nil
}

// compareSchemaVersions returns -1 if a < b, 0 if a == b, 1 if a > b
func compareSchemaVersions(a, b string) int {
	parse := func(v string) (major int, pre string, preNum int, valid bool) {
		m := versionRegex.FindStringSubmatch(v)
		if m == nil {
			return 0, "", 0, false
		}
		major, _ = strconv.Atoi(m[1])
		pre = m[2]
		if m[3] != "" {
			preNum, _ = strconv.Atoi(m[3])
		}
		return major, pre, preNum, true
	}

	majA, preA, numA, validA := parse(a)
	majB, preB, numB, validB := parse(b)

	// Invalid versions sort last, falling back to lexicographical order
	if !validA && !validB {
		return strings.Compare(a, b)
	} else if !validA {
		return 1
	} else if !validB {
		return -1
	}

	if majA != majB {
		return compareInts(majA, majB)
	}

	// alpha < beta < rc < ""
	if preReleaseOrder[preA] != preReleaseOrder[preB] {
		return compareInts(preReleaseOrder[preA], preReleaseOrder[preB])
	}

	return compareInts(numA, numB)
}

// compareInts returns -1 if a < b, 0 if a == b, 1 if a > b
func compareInts(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
