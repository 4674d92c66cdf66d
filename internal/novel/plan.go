package novel

import (
	"fmt"
	"strings"
)

// FormatForPrompt renders the plan as the markdown block every generation
// prompt embeds.
func (p *Plan) FormatForPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, `**World Settings:**
- Summary: %s
- Key Locations: %s
- History/Lore: %s
- Magic/Systems: %s`,
		p.WorldSettings.Summary,
		p.WorldSettings.Locations,
		p.WorldSettings.History,
		p.WorldSettings.MagicSystems)

	b.WriteString("\n\n**Character Settings:**\n")
	characters := make([]string, 0, len(p.CharacterSettings))
	for _, c := range p.CharacterSettings {
		characters = append(characters, fmt.Sprintf("- **%s:** %s\n  *Motivation:* %s", c.Name, c.Description, c.Motivation))
	}
	b.WriteString(strings.Join(characters, "\n\n"))

	b.WriteString("\n\n**Plot Outline:**\n")
	plot := make([]string, 0, len(p.PlotOutline))
	for _, pt := range p.PlotOutline {
		plot = append(plot, fmt.Sprintf("- **%s:** %s", pt.Title, pt.Description))
	}
	b.WriteString(strings.Join(plot, "\n"))

	fmt.Fprintf(&b, "\n\n**Tone:**\n%s", p.Tone)

	return b.String()
}

// PlotPointForChapter returns the plot point whose position matches the
// 1-based chapter number, or nil when the outline is shorter.
func (p *Plan) PlotPointForChapter(chapterNumber int) *PlotPoint {
	if chapterNumber < 1 || chapterNumber > len(p.PlotOutline) {
		return nil
	}
	return &p.PlotOutline[chapterNumber-1]
}

// Clone returns a deep copy so concurrent completions can never interleave
// partial writes to a shared plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CharacterSettings = append([]CharacterProfile(nil), p.CharacterSettings...)
	cp.PlotOutline = append([]PlotPoint(nil), p.PlotOutline...)
	return &cp
}

// CloneChapters deep-copies a chapter list.
func CloneChapters(chapters []Chapter) []Chapter {
	out := append([]Chapter(nil), chapters...)
	for i := range out {
		if out[i].Feedback != nil {
			fb := *out[i].Feedback
			fb.Thoughts.DetailedFeedback = append([]string(nil), fb.Thoughts.DetailedFeedback...)
			out[i].Feedback = &fb
		}
	}
	return out
}
