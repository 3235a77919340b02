package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/extraction"
	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/ranking"
	"github.com/teamforge/engine/internal/resolve"
	"github.com/teamforge/engine/internal/types"
)

// tokenRequest is the body of POST /auth/token.
type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// tokenResponse carries the issued service token.
type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// handleToken exchanges service credentials for a JWT.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		s.errorResponse(w, http.StatusBadRequest, "client_id and client_secret are required")
		return
	}

	if err := s.credentials.Verify(req.ClientID, req.ClientSecret); err != nil {
		credErr := &ErrInvalidCredentials{}
		s.errorResponse(w, HTTPStatus(credErr), credErr.Error())
		return
	}

	token, err := s.jwtService.GenerateToken(req.ClientID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.jsonResponse(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(s.jwtService.TokenTTL().Seconds()),
	})
}

// resolveRequest is the body of POST /resolve.
type resolveRequest struct {
	SemesterID string `json:"semester_id"`
	MajorID    string `json:"major_id,omitempty"`
	// Commit persists the plan after the run. Without it the endpoint is a
	// dry run returning the plan only.
	Commit bool `json:"commit,omitempty"`
}

// commitReport summarizes persisting one plan. Entities commit
// independently; one stale entry does not abort the rest.
type commitReport struct {
	AssignmentsCommitted int      `json:"assignments_committed"`
	GroupsCommitted      int      `json:"groups_committed"`
	TopicsCommitted      int      `json:"topics_committed"`
	Errors               []string `json:"errors,omitempty"`
}

// resolveResponse is the body returned by POST /resolve.
type resolveResponse struct {
	Result *types.AutoResolveResult `json:"result"`
	Commit *commitReport            `json:"commit,omitempty"`
}

// handleResolve runs the auto-resolve batch for a semester scope.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	semesterID, err := uuid.Parse(req.SemesterID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "semester_id must be a valid UUID")
		return
	}

	scope := resolve.Scope{SemesterID: semesterID}
	if req.MajorID != "" {
		majorID, err := uuid.Parse(req.MajorID)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "major_id must be a valid UUID")
			return
		}
		scope.MajorID = &majorID
	}

	resolver := resolve.NewResolver(s.store, s.resolveLLMClient(), s.scoring)
	result, err := resolver.Run(r.Context(), scope)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := resolveResponse{Result: result}
	if req.Commit {
		resp.Commit = s.commitPlan(r.Context(), semesterID, result)
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// resolveLLMClient returns the client the resolver should rerank with, nil
// when reranking is switched off.
func (s *Server) resolveLLMClient() llm.Client {
	if s.rerankOff {
		return nil
	}
	return s.llmClient
}

// commitPlan persists a resolve plan entity by entity. Failures are
// collected, not fatal: the plan may be stale against concurrent manual
// edits and every guard rejection only loses that one entry.
func (s *Server) commitPlan(ctx context.Context, semesterID uuid.UUID, result *types.AutoResolveResult) *commitReport {
	report := &commitReport{}

	for _, a := range result.Assignments {
		if err := s.store.CommitAssignment(ctx, semesterID, a); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("assignment of student %s: %v", a.StudentID, err))
			continue
		}
		report.AssignmentsCommitted++
	}

	for _, g := range result.NewGroups {
		if err := s.store.CommitNewGroup(ctx, semesterID, g); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("new group %s: %v", g.GroupID, err))
			continue
		}
		report.GroupsCommitted++
		if g.TopicID != nil {
			// The topic commits inside the group transaction.
			report.TopicsCommitted++
		}
	}

	for _, ta := range result.TopicAssignments {
		if err := s.store.CommitTopicAssignment(ctx, ta); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("topic %s for group %s: %v", ta.TopicID, ta.GroupID, err))
			continue
		}
		report.TopicsCommitted++
	}

	return report
}

// rankRequest is the body of POST /rank. The caller supplies the candidate
// list; the engine scores and optionally reranks it.
type rankRequest struct {
	QueryType   string             `json:"query_type"`
	QueryText   string             `json:"query_text"`
	TeamContext *types.TeamContext `json:"team_context,omitempty"`
	Candidates  []types.Candidate  `json:"candidates"`
}

// rankResponse is the body returned by POST /rank.
type rankResponse struct {
	Results []types.RankedResult `json:"results"`
}

// handleRank scores the supplied candidates against the query profile and
// reranks them when an LLM client is configured.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QueryType != "group" && req.QueryType != "topic" && req.QueryType != "student" {
		s.errorResponse(w, http.StatusBadRequest, "query_type must be group, topic, or student")
		return
	}
	if strings.TrimSpace(req.QueryText) == "" {
		s.errorResponse(w, http.StatusBadRequest, "query_text is required")
		return
	}
	if len(req.Candidates) == 0 {
		s.jsonResponse(w, http.StatusOK, rankResponse{Results: []types.RankedResult{}})
		return
	}
	keys := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		if c.Key == "" || keys[c.Key] {
			s.errorResponse(w, http.StatusBadRequest, "candidate keys must be unique and non-empty")
			return
		}
		keys[c.Key] = true
	}

	query := profile.FromJSON(req.QueryText)
	if query.IsEmpty() {
		query = profile.FromText(req.QueryText)
	}

	scorer := ranking.NewBaselineScorer(s.scoring)
	ranked := scorer.Rank(query, req.Candidates)

	reranker := ranking.NewReranker(s.resolveLLMClient(), s.scoring)
	results := reranker.Rerank(r.Context(), req.QueryType, req.QueryText, query, ranked, req.TeamContext)

	s.jsonResponse(w, http.StatusOK, rankResponse{Results: results})
}

// extractRequest is the body of POST /extract.
type extractRequest struct {
	SourceType string `json:"source_type,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	Content    string `json:"content"`
	// StudentID, when set, persists the extracted profile document onto the
	// student record.
	StudentID string `json:"student_id,omitempty"`
}

// extractResponse is the body returned by POST /extract.
type extractResponse struct {
	Skills      []extraction.Skill `json:"skills"`
	ProfileJSON string             `json:"profile_json,omitempty"`
	Persisted   bool               `json:"persisted,omitempty"`
}

// handleExtract runs the skill extraction pipeline over submitted text and
// optionally stores the derived profile on a student.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.errorResponse(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.SourceType == "" {
		req.SourceType = "free_text"
	}

	if s.llmClient == nil {
		llmErr := &ErrLLMUnavailable{}
		s.errorResponse(w, HTTPStatus(llmErr), llmErr.Error())
		return
	}

	extractor := extraction.NewExtractor(s.llmClient, s.scoring.ChunkSizeChars)
	skills, err := extractor.ExtractSkills(r.Context(), req.SourceType, req.SourceID, req.Content)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	resp := extractResponse{Skills: skills}

	if req.StudentID != "" {
		studentID, err := uuid.Parse(req.StudentID)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "student_id must be a valid UUID")
			return
		}

		student, err := s.store.GetStudent(r.Context(), studentID)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		if student == nil {
			notFound := &ErrStudentNotFound{StudentID: studentID}
			s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
			return
		}

		doc, err := extraction.ProfileDocument(skills)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := s.store.UpdateStudentProfile(r.Context(), studentID, doc); err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.ProfileJSON = doc
		resp.Persisted = true
	}

	s.jsonResponse(w, http.StatusOK, resp)
}
