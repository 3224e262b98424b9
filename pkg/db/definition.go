package db

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

const (
	// Newest definition file version we understand.
	MAX_DATABASE_VERSION = 1
	DEFINITION_EXTENSION = ".db"
)

var (
	blankLine        = regexp.MustCompile(`^\s*(#.*)?$`)
	versionLine      = regexp.MustCompile(`^\s*version\s+(\d+)`)
	dependenciesLine = regexp.MustCompile(`^\s*dependencies\s+(\d+)`)
	dependencyLine   = regexp.MustCompile(`^\s*(\d+)\s+(.*\S)`)
)

// DependencyLine is one "<index> <path>" entry of a definition file.
type DependencyLine struct {
	Line  int
	Index uint16
	// As written, relative to the definition file's directory
	Path string
}

// Definition is the parsed text of a database definition file.
type Definition struct {
	Version      uint32
	Declared     int
	Dependencies []DependencyLine
}

func malformed(line int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, line, fmt.Sprintf(format, args...))
}

// ParseDefinition reads a whole definition file and checks its dependency
// table: every index in 1..65535, no index twice, and exactly as many
// entries as declared. The version is not checked here.
func ParseDefinition(reader io.Reader) (*Definition, error) {
	definition := Definition{}
	scanner := bufio.NewScanner(reader)

	seenVersion := false
	declared := false
	used := make(map[uint16]int)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()

		if blankLine.MatchString(text) {
			continue
		}

		if match := versionLine.FindStringSubmatch(text); match != nil {
			if seenVersion {
				return nil, malformed(line, "version given twice")
			}

			version, err := strconv.ParseUint(match[1], 10, 32)
			if err != nil {
				return nil, malformed(line, "bad version %q", match[1])
			}

			definition.Version = uint32(version)
			seenVersion = true
			continue
		}

		if match := dependenciesLine.FindStringSubmatch(text); match != nil {
			if declared {
				return nil, malformed(line, "dependencies declared twice")
			}

			count, err := strconv.ParseUint(match[1], 10, 16)
			if err != nil {
				return nil, malformed(line, "bad dependency count %q", match[1])
			}

			definition.Declared = int(count)
			declared = true
			continue
		}

		if match := dependencyLine.FindStringSubmatch(text); match != nil {
			if !declared {
				return nil, malformed(line, "dependency before dependency count")
			}

			if len(definition.Dependencies) == definition.Declared {
				return nil, malformed(line, "more than the %d declared dependencies", definition.Declared)
			}

			index, err := strconv.ParseUint(match[1], 10, 16)
			if err != nil {
				return nil, malformed(line, "dependency index %s out of range", match[1])
			}

			if index == 0 {
				return nil, malformed(line, "dependency index 0 is reserved")
			}

			if previous, ok := used[uint16(index)]; ok {
				return nil, malformed(line, "dependency index %d already used on line %d", index, previous)
			}
			used[uint16(index)] = line

			definition.Dependencies = append(definition.Dependencies, DependencyLine{
				Line:  line,
				Index: uint16(index),
				Path:  match[2],
			})
			continue
		}

		return nil, malformed(line, "unrecognized statement %q", text)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	if len(definition.Dependencies) != definition.Declared {
		return nil, fmt.Errorf(
			"%w: declared %d dependencies but found %d",
			ErrMalformed,
			definition.Declared,
			len(definition.Dependencies),
		)
	}

	return &definition, nil
}
