package scanner

import (
	"fmt"
	"time"
)

// ApplyProgress moves a session forward. Progress never decreases and is
// capped at 100; a pending session becomes running.
func (s *Session) ApplyProgress(progress int, message string, now time.Time) error {
	if s.Status.Terminal() {
		return fmt.Errorf("update %s: %w", s.ID, ErrSessionFinished)
	}
	s.Status = SessionRunning
	s.Progress = max(s.Progress, min(max(progress, 0), 100))
	s.Message = message
	s.UpdatedAt = now
	return nil
}

// Finish moves a session to a terminal status. A completed session reports
// 100% progress.
func (s *Session) Finish(status SessionStatus, message string, results []AnalyzedTarget, now time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("finish %s: status %q is not terminal", s.ID, status)
	}
	if s.Status.Terminal() {
		return fmt.Errorf("finish %s: %w", s.ID, ErrSessionFinished)
	}
	s.Status = status
	s.Message = message
	if status == SessionComplete {
		s.Progress = 100
	}
	s.Results = cloneResults(results)
	s.UpdatedAt = now
	return nil
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	s.Results = cloneResults(s.Results)
	return s
}

func cloneResults(src []AnalyzedTarget) []AnalyzedTarget {
	if src == nil {
		return nil
	}
	out := make([]AnalyzedTarget, len(src))
	for i, r := range src {
		issues := make([]string, len(r.SEOIssues))
		copy(issues, r.SEOIssues)
		r.SEOIssues = issues
		if r.SEODetails != nil {
			details := make(map[string]any, len(r.SEODetails))
			for k, v := range r.SEODetails {
				details[k] = v
			}
			r.SEODetails = details
		}
		out[i] = r
	}
	return out
}
