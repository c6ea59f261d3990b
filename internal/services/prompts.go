package services

import (
	"fmt"
	"strings"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
)

const interviewerName = "Ava"

const (
	cvSummaryPrompt = "You condense CVs for interview preparation. Write at most 120 words. " +
		"Leave out personal and contact details. Keep relevant roles, standout skills and education."

	descriptionSummaryPrompt = "You condense job descriptions for interviewers. Keep the context, core " +
		"responsibilities and must-have skills in at most 300 characters. No filler."

	summaryMarker = "[SUMMARY]"
)

func firstMessagePrompt(cfg interview.SessionConfig) string {
	return fmt.Sprintf(`You are %s, a friendly, professional interviewer.
Open the interview with %s, who is applying for the %s role at %s.
Sound natural and not overly formal: introduce yourself or the company and ask how they are doing.
Do not ask interview questions yet.`, interviewerName, cfg.CandidateName, cfg.Role, cfg.Company)
}

func interviewerPrompt(req interview.TurnRequest) string {
	cfg := req.Config
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a realistic interviewer for %s, interviewing %s for the %s role.\n\n",
		interviewerName, cfg.Company, cfg.CandidateName, cfg.Role)
	b.WriteString(`Reply to every candidate answer with one JSON object and nothing else:
{"message": "<follow-up or closing, conversational and concise>",
 "note": {"strength": "<one strength, max 20 words, or 'None'>",
          "criticism": "<one actionable suggestion, max 30 words, or 'None'>",
          "score": <integer 0-5>},
 "ended": <true|false>}

Behaviour:
- Friendly and human; light sarcasm is fine when the candidate is vague or unserious.
- Politely steer off-topic or personal answers back to the job.
- Ask open-ended, role-relevant questions and follow up like a real conversation.
- Finish around the scheduled time (plus or minus 10%), or when the candidate asks; then set "ended": true.

`)
	if cfg.CVSummary != "" {
		fmt.Fprintf(&b, "CV: \"\"\"%s\"\"\"\n", cfg.CVSummary)
	}
	if cfg.DescriptionSummary != "" {
		fmt.Fprintf(&b, "Job description: \"\"\"%s\"\"\"\n", cfg.DescriptionSummary)
	}
	fmt.Fprintf(&b, "Duration: %d minutes. Time remaining: %d seconds.\n", cfg.Minutes(), req.RemainingSeconds)
	if req.NearEnd {
		b.WriteString("The interview is nearly over. Start wrapping up.\n")
	}
	return b.String()
}

func summaryPrompt(cfg interview.SessionConfig, notes []interview.Note) string {
	return fmt.Sprintf(`You are %s, a supportive and honest interview coach.
%s just finished an interview for the %q role at %q.
The interviewer's notes (each scored 0-5):

%s

Write the final feedback as one JSON object:
{"intro": "<short summary of how it went>",
 "score": <overall score out of 10, one decimal>,
 "strengths": ["<key strength>"],
 "improvements": ["<practical advice>"],
 "finalNote": "<short encouraging close>"}

Speak to the candidate directly. Reflect on the notes instead of repeating them.
Keep every strength and improvement to one or two short lines. JSON only.`,
		interviewerName, cfg.CandidateName, cfg.Role, cfg.Company, FormatNotes(notes))
}

// FormatNotes renders notes one per line, numbered from 1.
func FormatNotes(notes []interview.Note) string {
	lines := make([]string, len(notes))
	for i, n := range notes {
		n = n.Normalize()
		lines[i] = fmt.Sprintf("Note %d: Strength: %s | Criticism: %s | Score: %d/5", i+1, n.Strength, n.Criticism, n.Score)
	}
	return strings.Join(lines, "\n")
}

func fallbackFirstMessage(cfg interview.SessionConfig) string {
	return fmt.Sprintf("Hi %s, welcome! I'm %s, and I'll be conducting your interview for the %s role at %s. Let's get started.",
		cfg.CandidateName, interviewerName, cfg.Role, cfg.Company)
}

func fallbackFollowUp(cfg interview.SessionConfig) string {
	return fmt.Sprintf("Thank you for your response, can you please elaborate on your experience with %s at %s?", cfg.Role, cfg.Company)
}

const fallbackCVSummary = "AI disabled: CV summarization skipped."

func fallbackSummary() Summary {
	return Summary{
		Intro:        "Thanks for completing your interview! Here's a quick summary based on your responses.",
		OverallScore: 7.3,
		Strengths:    []string{"Clear communication", "Good understanding of the role", "Professional tone"},
		Improvements: []string{"Provide more specific examples", "Be more concise when answering"},
		FinalNote:    "You're on the right track! Focus on refining your answers with real-world examples, and you'll improve quickly.",
	}
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
