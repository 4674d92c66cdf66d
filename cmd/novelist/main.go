package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/config"
	"github.com/vampirenirmal/novelist/internal/core"
	"github.com/vampirenirmal/novelist/internal/novel"
	"github.com/vampirenirmal/novelist/internal/phase"
	"github.com/vampirenirmal/novelist/internal/storage"
)

func main() {
	logLevel := slog.LevelWarn
	if os.Getenv("NOVELIST_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	client := agent.NewClient(cfg.AI.APIKey,
		agent.WithModel(cfg.AI.Model),
		agent.WithBaseURL(cfg.AI.BaseURL),
		agent.WithTimeout(time.Duration(cfg.AI.Timeout)*time.Second),
		agent.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize),
	)

	session := core.NewSession(
		phase.NewPlanner(client),
		phase.NewWriter(client),
		phase.NewChecker(client),
		phase.NewReviser(client, cfg.Limits.MaxRevisionTurns),
		phase.NewRunner(client, cfg.Limits.MaxAgentTurns),
		core.Limits{
			SummaryPrefixChars: cfg.Limits.SummaryPrefixChars,
			ContinuationChars:  cfg.Limits.ContinuationChars,
		},
	)

	store := storage.NewFileSystem(cfg.Paths.DataDir)
	snapshots := storage.NewSnapshotStore(store)

	fmt.Println("novelist - interactive novel co-writing")
	fmt.Println("Type 'help' for commands.")

	repl(session, store, snapshots)
}

func repl(session *core.Session, store storage.Storage, snapshots *storage.SnapshotStore) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "help":
			printHelp()

		case "idea":
			if rest == "" {
				fmt.Println("Usage: idea <your story idea>")
				continue
			}
			session.SetIdea(rest)
			fmt.Println("Idea recorded. Run 'plan' to generate the blueprint.")

		case "plan":
			fmt.Println("Planner is generating your novel's blueprint...")
			report(session.GeneratePlan(ctx))

		case "refine":
			if rest == "" {
				fmt.Println("Usage: refine <what to change about the plan>")
				continue
			}
			fmt.Println("Planner is refining the blueprint...")
			report(session.RefinePlan(ctx, rest))

		case "start":
			report(session.StartWriting())

		case "write":
			fmt.Println("Writing the next chapter...")
			if err := session.WriteChapter(ctx, rest); err != nil {
				report(err)
				continue
			}
			chapters := session.Chapters()
			if len(chapters) > 0 {
				last := chapters[len(chapters)-1]
				fmt.Printf("--- %s ---\n%s\n", last.Title, last.Content)
			}

		case "check":
			if rest == "all" {
				fmt.Println("Checking all chapters...")
				report(session.CheckAllChapters(ctx))
				printFeedback(session.Chapters())
				continue
			}
			idx, ok := chapterIndex(rest, session)
			if !ok {
				continue
			}
			fmt.Printf("Checking chapter %d...\n", idx+1)
			if err := session.CheckChapter(ctx, idx); err != nil {
				report(err)
				continue
			}
			printFeedback(session.Chapters()[idx : idx+1])

		case "revise":
			numStr, instruction, _ := strings.Cut(rest, " ")
			idx, ok := chapterIndex(numStr, session)
			if !ok {
				continue
			}
			fmt.Printf("Revising chapter %d...\n", idx+1)
			if err := session.ReviseChapter(ctx, idx, instruction); err != nil {
				report(err)
				continue
			}
			fmt.Println("Chapter revised.")

		case "sync":
			idx, ok := chapterIndex(rest, session)
			if !ok {
				continue
			}
			fmt.Printf("Syncing plan with chapter %d...\n", idx+1)
			report(session.SyncPlan(ctx, idx))

		case "agent":
			if rest == "" {
				fmt.Println("Usage: agent <task description>")
				continue
			}
			report(session.RunAgent(ctx, rest, func(update phase.RunnerUpdate) {
				printLogEntry(update.Entry)
			}))

		case "show":
			show(session, rest)

		case "export":
			idx, ok := chapterIndex(rest, session)
			if !ok {
				continue
			}
			path, err := storage.ExportChapter(ctx, store, session.Chapters()[idx])
			if err != nil {
				report(err)
				continue
			}
			fmt.Printf("Exported to %s\n", path)

		case "save":
			name := rest
			if name == "" {
				name = "session"
			}
			report(snapshots.Save(ctx, name, session.Snapshot()))

		case "load":
			name := rest
			if name == "" {
				name = "session"
			}
			snap, err := snapshots.Load(ctx, name)
			if err != nil {
				fmt.Println("Failed to load or parse the session file.")
				slog.Error("session load failed", "name", name, "error", err)
				continue
			}
			session.Restore(snap)
			fmt.Printf("Session %q loaded: %d chapters.\n", name, len(snap.Chapters))

		case "quit", "exit":
			return

		default:
			fmt.Printf("Unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  idea <text>            Record your story idea
  plan                   Generate the novel plan from the idea
  refine <text>          Refine the current plan
  start                  Approve the plan and start writing
  write [instruction]    Write the next chapter
  check <n> | check all  Get editorial feedback on chapter(s)
  revise <n> <text>      Revise a chapter (supports @chapter(n), @character(name),
                         @world(field), @plot(title) references)
  sync <n>               Update the plan to match an edited chapter
  agent <task>           Run a free-form task across the whole manuscript
  show plan|chapter <n>|tasks
  export <n>             Export a chapter as a text file
  save [name]            Save the session
  load [name]            Load a saved session
  quit`)
}

func report(err error) {
	if err == nil {
		fmt.Println("Done.")
		return
	}
	fmt.Println(err.Error())
}

func chapterIndex(arg string, session *core.Session) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		fmt.Println("Expected a chapter number.")
		return 0, false
	}
	if n < 1 || n > len(session.Chapters()) {
		fmt.Printf("No such chapter: %d\n", n)
		return 0, false
	}
	return n - 1, true
}

func show(session *core.Session, what string) {
	switch {
	case what == "plan":
		plan := session.Plan()
		if plan == nil {
			fmt.Println("No plan yet. Run 'plan' first.")
			return
		}
		fmt.Println(plan.FormatForPrompt())

	case strings.HasPrefix(what, "chapter"):
		idx, ok := chapterIndex(strings.TrimPrefix(what, "chapter"), session)
		if !ok {
			return
		}
		ch := session.Chapters()[idx]
		fmt.Printf("--- %s ---\n%s\n", ch.Title, ch.Content)

	case what == "tasks":
		tasks := session.Tasks()
		fmt.Printf("writing=%v agent=%v checking=%d revising=%d syncing=%d\n",
			tasks.WritingChapter, tasks.AgentRunning,
			len(tasks.CheckingChapter), len(tasks.RevisingChapter), len(tasks.SyncingPlan))

	default:
		fmt.Println("Usage: show plan | show chapter <n> | show tasks")
	}
}

func printFeedback(chapters []novel.Chapter) {
	for _, ch := range chapters {
		if ch.Feedback == nil {
			continue
		}
		fmt.Printf("%s: %s\n  %s\n", ch.Title, ch.Feedback.Verdict, ch.Feedback.Thoughts.OverallImpression)
		for _, point := range ch.Feedback.Thoughts.DetailedFeedback {
			fmt.Printf("  - %s\n", point)
		}
	}
}

func printLogEntry(entry novel.AgentLogEntry) {
	switch entry.Kind {
	case novel.LogThought:
		fmt.Printf("[thought] %s\n", entry.Content)
	case novel.LogAction:
		fmt.Printf("[action]  %s\n", entry.Content)
	case novel.LogResult:
		fmt.Printf("[result]  %s\n", entry.Content)
	case novel.LogError:
		fmt.Printf("[error]   %s\n", entry.Content)
	case novel.LogFinish:
		fmt.Printf("[finish]  %s\n", entry.Content)
	}
}
