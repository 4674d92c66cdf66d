package novel

import "github.com/google/uuid"

// WorldSettings holds the free-text worldbuilding sections of a plan.
type WorldSettings struct {
	Summary      string `json:"summary"`
	Locations    string `json:"locations"`
	History      string `json:"history"`
	MagicSystems string `json:"magicSystems"`
}

// CharacterProfile describes one character. IDs are never produced by the
// model; they are assigned locally and stay stable across edits.
type CharacterProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Motivation  string `json:"motivation"`
	Portrait    string `json:"portrait,omitempty"`
}

// PlotPoint is one chapter or act of the intended story.
type PlotPoint struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Plan is the structured blueprint guiding all generation: world, characters,
// plot outline and tone. It is replaced wholesale on refine and sync, never
// partially merged.
type Plan struct {
	WorldSettings     WorldSettings      `json:"worldSettings"`
	CharacterSettings []CharacterProfile `json:"characterSettings"`
	PlotOutline       []PlotPoint        `json:"plotOutline"`
	Tone              string             `json:"tone"`
}

// EnsureIDs assigns a fresh UUID to every character and plot point that lacks
// one. The model is never asked for ids, so this runs after every plan-shaped
// response and after loading older session files.
func (p *Plan) EnsureIDs() {
	for i := range p.CharacterSettings {
		if p.CharacterSettings[i].ID == "" {
			p.CharacterSettings[i].ID = uuid.NewString()
		}
	}
	for i := range p.PlotOutline {
		if p.PlotOutline[i].ID == "" {
			p.PlotOutline[i].ID = uuid.NewString()
		}
	}
}

// Verdict values the checker is allowed to return.
const (
	VerdictApproved      = "Approved"
	VerdictNeedsRevision = "Needs Revision"
)

// CheckerThoughts carries the checker's prose feedback.
type CheckerThoughts struct {
	OverallImpression string   `json:"overallImpression"`
	DetailedFeedback  []string `json:"detailedFeedback"`
}

// CheckerFeedback is the structured result of checking one chapter.
type CheckerFeedback struct {
	Verdict  string          `json:"verdict"`
	Thoughts CheckerThoughts `json:"thoughts"`
}

// Chapter is one unit of manuscript prose. The id is positional (1-based
// position at creation time); chapters are only ever appended, never deleted
// or reordered.
type Chapter struct {
	ID       int              `json:"id"`
	Title    string           `json:"title"`
	Content  string           `json:"content"`
	Feedback *CheckerFeedback `json:"feedback,omitempty"`
}

// AppSettings are pass-through configuration owned by the user.
type AppSettings struct {
	GlobalSystemPrompt      string  `json:"globalSystemPrompt"`
	ContinueFromLastChapter bool    `json:"continueFromLastChapter"`
	FontSize                float64 `json:"fontSize"`
	ParagraphSpacing        float64 `json:"paragraphSpacing"`
}

// Defaults for settings fields absent from older session files.
const (
	DefaultFontSize         = 1.125
	DefaultParagraphSpacing = 1.6
)

// DefaultSettings returns settings with display defaults filled in.
func DefaultSettings() AppSettings {
	return AppSettings{
		FontSize:         DefaultFontSize,
		ParagraphSpacing: DefaultParagraphSpacing,
	}
}

// AppState is the coarse UI-level state persisted in a snapshot.
type AppState string

const (
	StateInitial  AppState = "INITIAL"
	StatePlanning AppState = "PLANNING"
	StateWriting  AppState = "WRITING"
	StateError    AppState = "ERROR"
)

// ActiveTasks tracks in-flight operations. Whole-document resources are plain
// booleans; per-chapter resources are sparse maps keyed by chapter index,
// where presence means busy and absence means idle.
type ActiveTasks struct {
	WritingChapter  bool         `json:"writingChapter"`
	CheckingChapter map[int]bool `json:"checkingChapter"`
	RevisingChapter map[int]bool `json:"revisingChapter"`
	SyncingPlan     map[int]bool `json:"syncingPlan"`
	AgentRunning    bool         `json:"agentRunning"`
}

// Snapshot is the serializable session state. ActiveTasks are deliberately
// not part of it: in-flight work is never persisted as running.
type Snapshot struct {
	InitialIdea string      `json:"initialIdea"`
	Plan        *Plan       `json:"plan"`
	Chapters    []Chapter   `json:"chapters"`
	Settings    AppSettings `json:"settings"`
	AppState    AppState    `json:"appState"`
}

// AgentLogEntry kinds emitted by the free-form agent runner.
type AgentLogKind string

const (
	LogThought AgentLogKind = "thought"
	LogAction  AgentLogKind = "action"
	LogResult  AgentLogKind = "result"
	LogError   AgentLogKind = "error"
	LogFinish  AgentLogKind = "finish"
)

// AgentLogEntry is one line of the agent runner's streamed transcript.
type AgentLogEntry struct {
	Kind    AgentLogKind `json:"type"`
	Content string       `json:"content"`
}
