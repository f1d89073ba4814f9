package printer

import (
	"regexp"
	"strconv"
	"strings"

	"chamberctl/internal/models"
)

// knownMaterials is ordered longest first so substring matching prefers the
// most specific name (NYLON before PLA inside "NYLON-PLA blend" style tags).
var knownMaterials = []string{"NYLON", "PETG", "HIPS", "ABS", "ASA", "PLA", "TPU", "PC"}

var filenamePatterns = buildFilenamePatterns()

func buildFilenamePatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(knownMaterials))
	for _, m := range knownMaterials {
		// Word-boundary style match so "PLAte_holder.3mf" does not read as PLA.
		out[m] = regexp.MustCompile(`(?i)(?:^|[_\-\s])` + m + `(?:$|[_\-\s.])`)
	}
	return out
}

// ResolveMaterial decides which filament material the active print uses.
// Precedence: per-slot operator override, then the AMS tray type of the
// active slot, then the external spool setting, then the print filename,
// then the previously resolved value. The previous value only carries over
// while a print is actually in progress; outside one there is nothing for
// it to describe.
func ResolveMaterial(st models.PrinterStatus, cfg models.Settings, previous string) string {
	slot := activeTray(st)

	if slot == trayExternal {
		if m := matchMaterial(cfg.ExternalSpool); m != "" {
			return m
		}
		if m := matchMaterial(st.ExternalSpool); m != "" {
			return m
		}
	}

	if slot >= 0 && slot < len(st.AMSSlots) {
		if override := cfg.SlotOverrides[strconv.Itoa(slot)]; override != "" {
			if m := matchMaterial(override); m != "" {
				return m
			}
		}
		if m := matchMaterial(st.AMSSlots[slot]); m != "" {
			return m
		}
	}

	if m := materialFromFilename(st.File); m != "" {
		return m
	}
	if st.Phase == PhasePrinting || st.Phase == PhasePaused {
		return previous
	}
	return ""
}

// matchMaterial maps a free-form tray type or override string ("ABS-GF",
// "PETG Basic") onto a known material by substring.
func matchMaterial(trayType string) string {
	upper := strings.ToUpper(strings.TrimSpace(trayType))
	if upper == "" {
		return ""
	}
	for _, m := range knownMaterials {
		if strings.Contains(upper, m) {
			return m
		}
	}
	return ""
}

func materialFromFilename(name string) string {
	if name == "" {
		return ""
	}
	for _, m := range knownMaterials {
		if filenamePatterns[m].MatchString(name) {
			return m
		}
	}
	return ""
}
