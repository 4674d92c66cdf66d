package novel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Inline context mentions of the form @kind(key) that users may embed in
// writing or revision instructions.
var mentionPattern = regexp.MustCompile(`@(chapter|character|world|plot)\(([^)]*)\)`)

const (
	contextBegin = "[REFERENCED CONTEXT START]"
	contextEnd   = "[REFERENCED CONTEXT END]"
)

// ExpandMentions resolves every @chapter(n), @character(name), @world(field)
// and @plot(title) mention in instruction against the current plan and
// chapters, and prepends the deduplicated context blocks between literal
// markers. Unresolvable mentions are dropped from the context (not an error)
// and returned so callers can log them as a non-fatal diagnostic. When no
// mention resolves, the instruction passes through unchanged.
func ExpandMentions(instruction string, plan *Plan, chapters []Chapter) (string, []string) {
	matches := mentionPattern.FindAllStringSubmatch(instruction, -1)
	if len(matches) == 0 {
		return instruction, nil
	}

	var blocks []string
	var unresolved []string
	seen := make(map[string]bool)

	for _, m := range matches {
		kind, key := m[1], strings.TrimSpace(m[2])
		block, ok := resolveMention(kind, key, plan, chapters)
		if !ok {
			unresolved = append(unresolved, m[0])
			continue
		}
		if seen[block] {
			continue
		}
		seen[block] = true
		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		return instruction, unresolved
	}

	expanded := contextBegin + "\n" + strings.Join(blocks, "\n\n") + "\n" + contextEnd + "\n\n" + instruction
	return expanded, unresolved
}

func resolveMention(kind, key string, plan *Plan, chapters []Chapter) (string, bool) {
	switch kind {
	case "chapter":
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(chapters) {
			return "", false
		}
		ch := chapters[n-1]
		return fmt.Sprintf("Chapter %d (%s):\n%s", ch.ID, ch.Title, ch.Content), true

	case "character":
		if plan == nil {
			return "", false
		}
		for _, c := range plan.CharacterSettings {
			if strings.EqualFold(c.Name, key) {
				return fmt.Sprintf("Character %s:\n%s\nMotivation: %s", c.Name, c.Description, c.Motivation), true
			}
		}
		return "", false

	case "world":
		if plan == nil {
			return "", false
		}
		w := plan.WorldSettings
		switch strings.ToLower(key) {
		case "summary":
			return "World summary:\n" + w.Summary, true
		case "locations":
			return "World locations:\n" + w.Locations, true
		case "history":
			return "World history:\n" + w.History, true
		case "magicsystems", "magic":
			return "World magic/systems:\n" + w.MagicSystems, true
		}
		return "", false

	case "plot":
		if plan == nil {
			return "", false
		}
		for _, pt := range plan.PlotOutline {
			if strings.Contains(strings.ToLower(pt.Title), strings.ToLower(key)) {
				return fmt.Sprintf("Plot point %s:\n%s", pt.Title, pt.Description), true
			}
		}
		return "", false
	}
	return "", false
}
