package ai

import "fmt"

const institution = "ASM Nextgen Technical Campus"

func classifyPrompt(subject, description string) string {
	return fmt.Sprintf(`Analyze the following student/faculty grievance for %s.
Subject: %s
Description: %s

You MUST classify this grievance into EXACTLY ONE of the following categories:
- Academic (for course content, exams, faculty issues, ERP access)
- Infrastructure (for labs, wifi, classrooms, canteen, physical facilities)
- Financial (for fees, scholarships, refunds)
- Administrative (for documents, ID cards, certificates, policy)
- Hostel (for room issues, mess food, hostel discipline)
- General (anything else)

Provide a structured JSON analysis including:
1. category: The exact category name from the list above.
2. priority: Low, Medium, or High based on urgency.
3. summary: A short summary (max 20 words).
4. sentiment: Positive, Neutral, or Negative.
5. suggestedAction: Immediate step for the assigned cell lead.`, institution, subject, description)
}

func draftPrompt(req DraftRequest) string {
	return fmt.Sprintf(`Draft a professional, empathetic, and formal response to the following grievance from a %s named %s at %s.
Subject: %s
Description: %s
Status update to: %s
Assigned Cell: %s

Ensure the tone reflects the institution's commitment to student welfare.`,
		req.UserRole, req.UserName, institution, req.Subject, req.Description, req.Status, req.Category)
}

// TemplateReply is the offline reply used when no model is available.
func TemplateReply(req DraftRequest) string {
	return fmt.Sprintf("Dear %s,\n\nThank you for bringing this matter to our attention. Our %s team is reviewing your concern regarding \"%s\".\n\nWe will update you shortly.\n\nBest regards,\n%s",
		req.UserName, req.Category, req.Subject, institution)
}

// FallbackReply is used when a remote drafter fails mid-request.
const FallbackReply = "Thank you for bringing this to our attention. Our specialized cell is looking into the matter."
