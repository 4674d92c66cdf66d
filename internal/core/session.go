package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/novelist/internal/novel"
	"github.com/vampirenirmal/novelist/internal/phase"
)

// PlanService produces and maintains the novel plan.
type PlanService interface {
	Generate(ctx context.Context, idea, globalPrompt string) (*novel.Plan, error)
	Refine(ctx context.Context, current *novel.Plan, instruction, globalPrompt string) (*novel.Plan, error)
	SyncWithChapter(ctx context.Context, current *novel.Plan, chapter novel.Chapter, globalPrompt string) (*novel.Plan, error)
}

// ChapterWriter produces new chapter prose.
type ChapterWriter interface {
	Write(ctx context.Context, req phase.WriteRequest) (string, error)
}

// ChapterChecker reviews a chapter against the plan.
type ChapterChecker interface {
	Check(ctx context.Context, plan *novel.Plan, chapterContent, globalPrompt string) (*novel.CheckerFeedback, error)
}

// ChapterReviser rewrites one chapter through the tool loop.
type ChapterReviser interface {
	Revise(ctx context.Context, plan *novel.Plan, chapters []novel.Chapter, chapterIndex int, instruction, globalPrompt string) (string, error)
}

// AgentRunner executes free-form manuscript tasks.
type AgentRunner interface {
	Run(ctx context.Context, plan *novel.Plan, chapters []novel.Chapter, task, globalPrompt string, sink phase.Sink) (*novel.Plan, []novel.Chapter, error)
}

// UserError carries the message shown to the author while wrapping the
// underlying cause for logs.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) Unwrap() error { return e.Err }

// Limits bounds the document-facing parameters of session operations.
type Limits struct {
	SummaryPrefixChars int
	ContinuationChars  int
}

// Session owns the document (idea, plan, chapters, settings, app state) and
// coordinates every operation against it. All generation happens outside the
// document lock; only the reservation and the final application of results
// hold it, so per-chapter operations on different chapters can be in flight
// at the same time.
type Session struct {
	mu sync.Mutex

	idea     string
	plan     *novel.Plan
	chapters []novel.Chapter
	settings novel.AppSettings
	state    novel.AppState
	selected int

	coord   *Coordinator
	planner PlanService
	writer  ChapterWriter
	checker ChapterChecker
	reviser ChapterReviser
	runner  AgentRunner
	limits  Limits
	logger  *slog.Logger
}

// NewSession wires the services into an empty session.
func NewSession(planner PlanService, writer ChapterWriter, checker ChapterChecker, reviser ChapterReviser, runner AgentRunner, limits Limits) *Session {
	return &Session{
		settings: novel.DefaultSettings(),
		state:    novel.StateInitial,
		selected: -1,
		coord:    NewCoordinator(),
		planner:  planner,
		writer:   writer,
		checker:  checker,
		reviser:  reviser,
		runner:   runner,
		limits:   limits,
		logger:   slog.Default().With("component", "session"),
	}
}

// SetIdea records the author's story idea.
func (s *Session) SetIdea(idea string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idea = idea
}

// GeneratePlan produces a fresh plan from the current idea and moves the
// session into the planning state.
func (s *Session) GeneratePlan(ctx context.Context) error {
	s.mu.Lock()
	idea := s.idea
	global := s.settings.GlobalSystemPrompt
	s.mu.Unlock()

	if strings.TrimSpace(idea) == "" {
		return &UserError{Message: "Please enter your story idea first."}
	}
	if !s.coord.TryStartPlanning() {
		return nil
	}
	defer s.coord.FinishPlanning()

	plan, err := s.planner.Generate(ctx, idea, global)
	if err != nil {
		s.setState(novel.StateError)
		s.logger.Error("plan generation failed", "error", err)
		return &UserError{Message: "Failed to generate a plan. Please check your API key and try again.", Err: err}
	}

	s.mu.Lock()
	s.plan = plan
	s.state = novel.StatePlanning
	s.mu.Unlock()
	return nil
}

// RefinePlan regenerates the whole plan according to an instruction.
func (s *Session) RefinePlan(ctx context.Context, instruction string) error {
	s.mu.Lock()
	plan := s.plan.Clone()
	global := s.settings.GlobalSystemPrompt
	s.mu.Unlock()

	if plan == nil {
		return &UserError{Message: "A plan must be generated before it can be refined."}
	}
	if !s.coord.TryStartPlanning() {
		return nil
	}
	defer s.coord.FinishPlanning()

	refined, err := s.planner.Refine(ctx, plan, instruction, global)
	if err != nil {
		s.setState(novel.StateError)
		s.logger.Error("plan refinement failed", "error", err)
		return &UserError{Message: "Failed to refine the plan. Please try again.", Err: err}
	}

	s.mu.Lock()
	s.plan = refined
	s.state = novel.StatePlanning
	s.mu.Unlock()
	return nil
}

// UpdatePlan applies a manual plan edit. Refused while any task is active.
func (s *Session) UpdatePlan(plan *novel.Plan) error {
	if s.coord.AnyActive() {
		return &UserError{Message: "Cannot edit the plan while a task is running."}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan
	return nil
}

// StartWriting approves the plan and moves into the writing state.
func (s *Session) StartWriting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return &UserError{Message: "A plan must be generated before writing can start."}
	}
	s.state = novel.StateWriting
	return nil
}

// WriteChapter appends the next chapter. The optional instruction may carry
// @-references, which are expanded before the prompt is built. No-op if a
// write is already in flight.
func (s *Session) WriteChapter(ctx context.Context, instruction string) error {
	s.mu.Lock()
	plan := s.plan.Clone()
	chapters := novel.CloneChapters(s.chapters)
	settings := s.settings
	s.mu.Unlock()

	if plan == nil {
		return &UserError{Message: "A plan must be generated before writing can start."}
	}
	if !s.coord.TryStartWriting() {
		return nil
	}
	defer s.coord.FinishWriting()

	s.setState(novel.StateWriting)

	expanded := instruction
	if instruction != "" {
		var unresolved []string
		expanded, unresolved = novel.ExpandMentions(instruction, plan, chapters)
		for _, ref := range unresolved {
			s.logger.Warn("unresolved mention", "reference", ref)
		}
	}

	number := len(chapters) + 1
	req := phase.WriteRequest{
		Plan:            plan,
		ChapterNumber:   number,
		PreviousSummary: phase.SummarizePrevious(chapters, s.limits.SummaryPrefixChars),
		GlobalPrompt:    settings.GlobalSystemPrompt,
		UserInstruction: expanded,
	}
	if settings.ContinueFromLastChapter {
		req.ContinueSnippet = phase.ContinuationSnippet(chapters, s.limits.ContinuationChars)
	}

	content, err := s.writer.Write(ctx, req)
	if err != nil {
		s.setState(novel.StateError)
		s.logger.Error("chapter write failed", "chapter", number, "error", err)
		return &UserError{Message: "Failed to write the chapter. Please try again.", Err: err}
	}

	s.mu.Lock()
	s.chapters = append(s.chapters, novel.Chapter{
		ID:      number,
		Title:   fmt.Sprintf("Chapter %d", number),
		Content: content,
	})
	s.selected = len(s.chapters) - 1
	s.mu.Unlock()
	return nil
}

// CheckChapter reviews one chapter and attaches the feedback. Silent no-op
// when that chapter is already being checked.
func (s *Session) CheckChapter(ctx context.Context, chapterIndex int) error {
	s.mu.Lock()
	plan := s.plan.Clone()
	var content string
	ok := chapterIndex >= 0 && chapterIndex < len(s.chapters)
	if ok {
		content = s.chapters[chapterIndex].Content
	}
	global := s.settings.GlobalSystemPrompt
	s.mu.Unlock()

	if plan == nil || !ok {
		return &UserError{Message: "Cannot check a non-existent chapter."}
	}
	if !s.coord.TryStartChecking(chapterIndex) {
		return nil
	}
	defer s.coord.FinishChecking(chapterIndex)

	feedback, err := s.checker.Check(ctx, plan, content, global)
	if err != nil {
		s.setState(novel.StateError)
		s.logger.Error("chapter check failed", "chapter_index", chapterIndex, "error", err)
		return &UserError{Message: "Failed to get feedback for the chapter. Please try again.", Err: err}
	}

	s.mu.Lock()
	if chapterIndex < len(s.chapters) {
		s.chapters[chapterIndex].Feedback = feedback
	}
	s.mu.Unlock()
	return nil
}

// CheckAllChapters checks every chapter concurrently. Chapters already being
// checked are skipped; the first failure is returned after all checks settle.
func (s *Session) CheckAllChapters(ctx context.Context) error {
	s.mu.Lock()
	count := len(s.chapters)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			return s.CheckChapter(ctx, i)
		})
	}
	return g.Wait()
}

// ReviseChapter rewrites one chapter through the revision agent. The new
// content replaces the old and any prior feedback is discarded as stale.
func (s *Session) ReviseChapter(ctx context.Context, chapterIndex int, instruction string) error {
	s.mu.Lock()
	plan := s.plan.Clone()
	chapters := novel.CloneChapters(s.chapters)
	global := s.settings.GlobalSystemPrompt
	s.mu.Unlock()

	if plan == nil || chapterIndex < 0 || chapterIndex >= len(chapters) || strings.TrimSpace(instruction) == "" {
		return &UserError{Message: "Cannot revise without a plan, chapter, or revision prompt."}
	}
	if !s.coord.TryStartRevising(chapterIndex) {
		return nil
	}
	defer s.coord.FinishRevising(chapterIndex)

	revised, err := s.reviser.Revise(ctx, plan, chapters, chapterIndex, instruction, global)
	if err != nil {
		s.setState(novel.StateError)
		s.logger.Error("chapter revision failed", "chapter_index", chapterIndex, "error", err)
		return &UserError{Message: "Failed to revise the chapter. Please try again.", Err: err}
	}

	s.mu.Lock()
	if chapterIndex < len(s.chapters) {
		s.chapters[chapterIndex].Content = revised
		s.chapters[chapterIndex].Feedback = nil
	}
	s.mu.Unlock()
	return nil
}

// SyncPlan updates the plan's plot point for one chapter to match its
// current content.
func (s *Session) SyncPlan(ctx context.Context, chapterIndex int) error {
	s.mu.Lock()
	plan := s.plan.Clone()
	var chapter novel.Chapter
	ok := chapterIndex >= 0 && chapterIndex < len(s.chapters)
	if ok {
		chapter = s.chapters[chapterIndex]
	}
	global := s.settings.GlobalSystemPrompt
	s.mu.Unlock()

	if plan == nil || !ok {
		return &UserError{Message: "Cannot sync plan for a non-existent chapter."}
	}
	if !s.coord.TryStartSyncing(chapterIndex) {
		return nil
	}
	defer s.coord.FinishSyncing(chapterIndex)

	updated, err := s.planner.SyncWithChapter(ctx, plan, chapter, global)
	if err != nil {
		s.setState(novel.StateError)
		s.logger.Error("plan sync failed", "chapter_index", chapterIndex, "error", err)
		return &UserError{Message: "Failed to sync the plan with the chapter. Please try again.", Err: err}
	}

	s.mu.Lock()
	s.plan = updated
	s.mu.Unlock()
	return nil
}

// RunAgent executes a free-form task, applying plan and chapter updates to
// the document incrementally as they stream in. Updates already applied when
// a later turn fails are kept. Log entries are forwarded to sink.
func (s *Session) RunAgent(ctx context.Context, task string, sink phase.Sink) error {
	s.mu.Lock()
	plan := s.plan.Clone()
	chapters := novel.CloneChapters(s.chapters)
	global := s.settings.GlobalSystemPrompt
	s.mu.Unlock()

	if plan == nil {
		return &UserError{Message: "A plan must be generated before the agent can run."}
	}
	if strings.TrimSpace(task) == "" {
		return &UserError{Message: "Please describe a task for the agent first."}
	}
	if !s.coord.TryStartAgent() {
		return nil
	}
	defer s.coord.FinishAgent()

	apply := func(update phase.RunnerUpdate) {
		s.mu.Lock()
		if update.Plan != nil {
			s.plan = update.Plan
		}
		if update.Chapters != nil {
			s.chapters = update.Chapters
			// The selected chapter may no longer exist after this update.
			if s.selected >= len(s.chapters) {
				s.selected = len(s.chapters) - 1
			}
		}
		s.mu.Unlock()
		if sink != nil {
			sink(update)
		}
	}

	if _, _, err := s.runner.Run(ctx, plan, chapters, task, global, apply); err != nil {
		s.logger.Error("agent run failed", "error", err)
		return &UserError{Message: "The agent run failed. Please try again.", Err: err}
	}
	return nil
}

// UpdateChapterContent applies a manual content edit. Existing feedback is
// kept; it refers to the pre-edit text until the chapter is re-checked.
func (s *Session) UpdateChapterContent(chapterIndex int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chapterIndex < 0 || chapterIndex >= len(s.chapters) {
		return &UserError{Message: "Cannot edit a non-existent chapter."}
	}
	s.chapters[chapterIndex].Content = content
	return nil
}

// SelectChapter sets the focused chapter, clamped to the valid range.
func (s *Session) SelectChapter(chapterIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chapterIndex < 0 || chapterIndex >= len(s.chapters) {
		s.selected = len(s.chapters) - 1
		return
	}
	s.selected = chapterIndex
}

// SelectedChapter returns the focused chapter index, or -1 when none exists.
func (s *Session) SelectedChapter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// UpdateSettings replaces the app settings.
func (s *Session) UpdateSettings(settings novel.AppSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() novel.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Plan returns a deep copy of the current plan, or nil before planning.
func (s *Session) Plan() *novel.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Clone()
}

// Chapters returns a deep copy of the manuscript.
func (s *Session) Chapters() []novel.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return novel.CloneChapters(s.chapters)
}

// State returns the coarse app state.
func (s *Session) State() novel.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tasks returns the current busy-state snapshot.
func (s *Session) Tasks() novel.ActiveTasks {
	return s.coord.Tasks()
}

// Snapshot captures the persistable session state. In-flight tasks are never
// part of a snapshot.
func (s *Session) Snapshot() novel.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return novel.Snapshot{
		InitialIdea: s.idea,
		Plan:        s.plan.Clone(),
		Chapters:    novel.CloneChapters(s.chapters),
		Settings:    s.settings,
		AppState:    s.state,
	}
}

// Restore replaces the document from a loaded snapshot. Missing ids and
// settings defaults are expected to have been backfilled by the loader.
func (s *Session) Restore(snap novel.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idea = snap.InitialIdea
	s.plan = snap.Plan
	s.chapters = snap.Chapters
	s.settings = snap.Settings
	s.state = snap.AppState
	s.selected = len(s.chapters) - 1
}

func (s *Session) setState(state novel.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
