// Package mail delivers outbound email. Delivery is best effort: callers
// hand off a message and never learn whether it arrived.
package mail

import (
	"context"
	"fmt"
	"html"
)

// AssignmentSubject is the subject line of the task assignment email.
const AssignmentSubject = "New Task Assigned"

// Sender delivers the assignment email to one recipient.
type Sender interface {
	SendAssignmentEmail(ctx context.Context, address, taskTitle string) error
}

// assignmentBody renders the HTML body with the title escaped.
func assignmentBody(taskTitle string) string {
	return fmt.Sprintf(`<h3>You've been assigned a new task</h3>
<p><strong>Task Title:</strong> %s</p>
<p>Please check your task dashboard for details.</p>`, html.EscapeString(taskTitle))
}
