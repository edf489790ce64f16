package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

type Kind string

const (
	KindHelp        Kind = "help"
	KindSetLevel    Kind = "set_level"
	KindRemoveLevel Kind = "remove_level"
	KindListLevels  Kind = "list_levels"
	KindRank        Kind = "rank"
	KindTop         Kind = "top"
)

// A Command is a parsed operator command
type Command struct {
	Kind     Kind
	Level    int
	Target   int64
	RoleName string
}

// UsageError is returned for arguments that don't fit the command's grammar. It matches
// models.ErrValidation.
type UsageError struct {
	Usage string
	Msg   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s (usage: %s)", e.Msg, e.Usage)
}

func (e *UsageError) Unwrap() error {
	return models.ErrValidation
}

func usage(prefix string, k Kind) string {
	switch k {
	case KindSetLevel:
		return prefix + " set level <level> <target> <role name>"
	case KindRemoveLevel:
		return prefix + " remove level <level>"
	case KindListLevels:
		return prefix + " list levels"
	}
	return prefix + " set level | remove level | list levels | rank | top"
}

// Parse reads the text after the prefix. Anything it doesn't recognise is a request for help.
func Parse(prefix, args string) (Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return Command{Kind: KindHelp}, nil
	}

	verb := strings.ToLower(fields[0])
	noun := ""
	if len(fields) > 1 {
		noun = strings.ToLower(fields[1])
	}

	switch {
	case verb == "set" && noun == "level":
		return parseSetLevel(prefix, fields[2:])
	case verb == "remove" && noun == "level":
		return parseRemoveLevel(prefix, fields[2:])
	case verb == "list" && noun == "levels":
		return Command{Kind: KindListLevels}, nil
	case verb == "rank" && len(fields) == 1:
		return Command{Kind: KindRank}, nil
	case verb == "top" && len(fields) == 1:
		return Command{Kind: KindTop}, nil
	}

	return Command{Kind: KindHelp}, nil
}

func parseSetLevel(prefix string, args []string) (Command, error) {
	bad := func(msg string) (Command, error) {
		return Command{}, &UsageError{Usage: usage(prefix, KindSetLevel), Msg: msg}
	}

	if len(args) < 3 {
		return bad("level, target and role name are required")
	}
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return bad(fmt.Sprintf("level %q is not a number", args[0]))
	}
	target, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return bad(fmt.Sprintf("target %q is not a number", args[1]))
	}
	if level < 1 {
		return bad("level must be at least 1")
	}
	if target < 0 {
		return bad("target can't be negative")
	}

	return Command{
		Kind:     KindSetLevel,
		Level:    level,
		Target:   target,
		RoleName: strings.Join(args[2:], " "),
	}, nil
}

func parseRemoveLevel(prefix string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &UsageError{Usage: usage(prefix, KindRemoveLevel), Msg: "a single level is required"}
	}
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return Command{}, &UsageError{Usage: usage(prefix, KindRemoveLevel), Msg: fmt.Sprintf("level %q is not a number", args[0])}
	}

	return Command{Kind: KindRemoveLevel, Level: level}, nil
}
