// Package columns decides which annotation columns a run emits. Selection
// is a single pure transformation over the canonical column order, so the
// order invariant lives in exactly one place.
package columns

import (
	"fmt"
	"strings"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/common"
)

// Mode is the annotation column selection mode.
type Mode int

const (
	ModeAll     Mode = 1
	ModeNone    Mode = 2
	ModeExclude Mode = 3
	ModeInclude Mode = 4
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "ALL"
	case ModeNone:
		return "NONE"
	case ModeExclude:
		return "EXCLUDE"
	case ModeInclude:
		return "INCLUDE"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode validates a numeric mode from the CLI.
func ParseMode(n int) (Mode, error) {
	switch Mode(n) {
	case ModeAll, ModeNone, ModeExclude, ModeInclude:
		return Mode(n), nil
	}
	msg := fmt.Sprintf("ai mode must be 1 (all), 2 (none), 3 (exclude) or 4 (include), got %d", n)
	return 0, common.NewAppError("COLUMN_ERROR", msg, common.ErrInvalidInput)
}

// Spec is one column selection: a mode plus the bare column names it
// applies to. Names are ignored for ALL and NONE.
type Spec struct {
	Mode  Mode
	Names []string
}

// Select resolves a spec to the annotation columns to emit, always in
// canonical order regardless of how Names is ordered. EXCLUDE and INCLUDE
// require a non-empty name set; any name outside the canonical set fails
// the whole selection.
func Select(spec Spec) ([]string, error) {
	named := map[constants.AIColumn]struct{}{}

	switch spec.Mode {
	case ModeAll, ModeNone:
		// names ignored
	case ModeExclude, ModeInclude:
		if len(spec.Names) == 0 {
			msg := fmt.Sprintf("mode %s requires at least one column name", spec.Mode)
			return nil, common.NewAppError("COLUMN_ERROR", msg, common.ErrEmptySelection)
		}
		for _, name := range spec.Names {
			col, ok := constants.CanonicalizeAIColumn(name)
			if !ok {
				msg := fmt.Sprintf("unknown column %q (known: %s)",
					name, strings.Join(constants.AIColumns(), ", "))
				return nil, common.NewAppError("COLUMN_ERROR", msg, common.ErrUnknownColumn)
			}
			named[col] = struct{}{}
		}
	default:
		return nil, common.NewAppError("COLUMN_ERROR",
			fmt.Sprintf("invalid selection mode %d", int(spec.Mode)), common.ErrInvalidInput)
	}

	var selected []string
	for _, name := range constants.AIColumns() {
		_, isNamed := named[constants.AIColumn(name)]
		keep := false
		switch spec.Mode {
		case ModeAll:
			keep = true
		case ModeNone:
			keep = false
		case ModeExclude:
			keep = !isNamed
		case ModeInclude:
			keep = isNamed
		}
		if keep {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

// SplitNames parses a CLI column list, accepting comma and whitespace
// separators.
func SplitNames(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}
