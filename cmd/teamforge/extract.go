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
	"github.com/teamforge/engine/internal/extraction"
	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/observability"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a skill profile from a document",
	Long:  "Runs the chunked skill extraction pipeline over a text or HTML document and optionally stores the derived profile on a student record.",
	RunE:  runExtract,
}

var (
	extractFile       string
	extractSourceType string
	extractSourceID   string
	extractStudent    string
	extractVerbose    bool
)

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Path to the input document (required)")
	extractCmd.Flags().StringVar(&extractSourceType, "source-type", "free_text", "Document kind hint passed to the model (resume, free_text, html)")
	extractCmd.Flags().StringVar(&extractSourceID, "source-id", "", "Identifier used in logs and prompts (defaults to the file name)")
	extractCmd.Flags().StringVar(&extractStudent, "student", "", "Student UUID to store the derived profile on")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print a formatted summary as well as JSON")

	if err := extractCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, _ []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required for extraction")
	}

	content, err := os.ReadFile(extractFile)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", extractFile, err)
	}

	sourceID := extractSourceID
	if sourceID == "" {
		sourceID = extractFile
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	extractor := extraction.NewExtractor(client, cfg.Scoring.ChunkSizeChars)
	skills, err := extractor.ExtractSkills(ctx, extractSourceType, sourceID, string(content))
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if extractVerbose {
		observability.NewPrinter(os.Stdout).PrintExtractedSkills(sourceID, skills)
	}

	output, err := json.MarshalIndent(skills, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	fmt.Println(string(output))

	if extractStudent == "" {
		return nil
	}

	studentID, err := uuid.Parse(extractStudent)
	if err != nil {
		return fmt.Errorf("invalid student UUID %q: %w", extractStudent, err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required to store a profile")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	student, err := database.GetStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("student %s not found", studentID)
	}

	doc, err := extraction.ProfileDocument(skills)
	if err != nil {
		return err
	}
	if err := database.UpdateStudentProfile(ctx, studentID, doc); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	fmt.Printf("Stored profile with %d skill tags on student %s\n", len(skills), studentID)
	return nil
}
