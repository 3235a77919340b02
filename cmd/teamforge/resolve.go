package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teamforge/engine/internal/db"
	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/observability"
	"github.com/teamforge/engine/internal/resolve"
	"github.com/teamforge/engine/internal/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run the auto-resolve batch for a semester",
	Long:  "Matches every unplaced student of a semester to a group, forms new groups from the leftover pool, and assigns topics to full groups. Without --commit the run is a dry run that only prints the plan.",
	RunE:  runResolve,
}

var (
	resolveSemester     string
	resolveMajor        string
	resolveCommit       bool
	resolveBaselineOnly bool
	resolveVerbose      bool
)

func init() {
	resolveCmd.Flags().StringVarP(&resolveSemester, "semester", "s", "", "Semester UUID to resolve (required)")
	resolveCmd.Flags().StringVarP(&resolveMajor, "major", "m", "", "Restrict the run to one major UUID")
	resolveCmd.Flags().BoolVar(&resolveCommit, "commit", false, "Persist the plan instead of dry-running")
	resolveCmd.Flags().BoolVar(&resolveBaselineOnly, "baseline-only", false, "Skip LLM reranking")
	resolveCmd.Flags().BoolVarP(&resolveVerbose, "verbose", "v", false, "Print a formatted summary instead of JSON")

	if err := resolveCmd.MarkFlagRequired("semester"); err != nil {
		panic(fmt.Sprintf("failed to mark semester flag as required: %v", err))
	}

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(_ *cobra.Command, _ []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	semesterID, err := uuid.Parse(resolveSemester)
	if err != nil {
		return fmt.Errorf("invalid semester UUID %q: %w", resolveSemester, err)
	}
	scope := resolve.Scope{SemesterID: semesterID}
	if resolveMajor != "" {
		majorID, err := uuid.Parse(resolveMajor)
		if err != nil {
			return fmt.Errorf("invalid major UUID %q: %w", resolveMajor, err)
		}
		scope.MajorID = &majorID
	}

	// Interrupt cancels the run; the resolver reports the partial plan.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	var client llm.Client
	if cfg.APIKey != "" && !resolveBaselineOnly && !cfg.RerankOff {
		client, err = llm.NewClient(ctx, nil, cfg.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		defer func() {
			_ = client.Close()
		}()
	}

	resolver := resolve.NewResolver(database, client, cfg.Scoring)
	result, err := resolver.Run(ctx, scope)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	if resolveVerbose {
		observability.NewPrinter(os.Stdout).PrintResolveResult(result)
	} else {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(output))
	}

	if !resolveCommit {
		return nil
	}
	return commitResolvePlan(ctx, database, semesterID, result)
}

// commitResolvePlan persists the plan entity by entity. A failed entity is
// reported and skipped; the plan may be stale against concurrent edits and
// each guard rejection only loses that one entry.
func commitResolvePlan(ctx context.Context, committer resolve.Committer, semesterID uuid.UUID, result *types.AutoResolveResult) error {
	committed := 0
	failed := 0

	for _, a := range result.Assignments {
		if err := committer.CommitAssignment(ctx, semesterID, a); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: assignment of student %s failed: %v\n", a.StudentID, err)
			failed++
			continue
		}
		committed++
	}

	for _, g := range result.NewGroups {
		if err := committer.CommitNewGroup(ctx, semesterID, g); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: new group %s failed: %v\n", g.GroupID, err)
			failed++
			continue
		}
		committed++
	}

	for _, ta := range result.TopicAssignments {
		if err := committer.CommitTopicAssignment(ctx, ta); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: topic %s for group %s failed: %v\n", ta.TopicID, ta.GroupID, err)
			failed++
			continue
		}
		committed++
	}

	fmt.Printf("Committed %d plan entries (%d failed)\n", committed, failed)
	if failed > 0 {
		return fmt.Errorf("%d plan entries could not be committed", failed)
	}
	return nil
}
