package toolkit

import (
	"fmt"
	"strings"
)

// Cleanup batch-deletes memories and stops servers, returning a
// per-item result log. Empty input is a no-op, not an error.
func (r *Router) Cleanup(memoryTitles, serverNames []string) string {
	if len(memoryTitles) == 0 && len(serverNames) == 0 {
		return "Nothing to clean up."
	}

	var lines []string
	for _, title := range memoryTitles {
		lines = append(lines, r.mem.Delete(title))
	}
	for _, name := range serverNames {
		if IsVirtualGroup(name) {
			lines = append(lines, fmt.Sprintf("Error: '%s' is a built-in group and cannot be stopped.", name))
			continue
		}
		if r.sup.Stop(name) {
			lines = append(lines, fmt.Sprintf("Server %s stopped.", name))
		} else {
			lines = append(lines, fmt.Sprintf("Server %s was not running.", name))
		}
	}
	return strings.Join(lines, "\n")
}
