package cmd

import (
	"fmt"
	"strings"

	"chunkdl/internal/ids"
)

// resolveTaskID accepts a full UUID or an unambiguous prefix of one, as
// printed by `add` and `ls`.
func resolveTaskID(arg string) (ids.TaskID, error) {
	if id, err := ids.Parse(arg); err == nil {
		return id, nil
	}

	var matches []ids.TaskID
	for _, rec := range manager.List() {
		if strings.HasPrefix(rec.ID.String(), arg) {
			matches = append(matches, rec.ID)
		}
	}

	switch len(matches) {
	case 0:
		return ids.TaskID{}, fmt.Errorf("no task matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return ids.TaskID{}, fmt.Errorf("%q matches %d tasks, be more specific", arg, len(matches))
	}
}
