package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// CreateTaskRequest defines the payload for POST /tasks.
type CreateTaskRequest struct {
	Title        string     `json:"title"          validate:"required,min=3,max=100"`
	Description  string     `json:"description"    validate:"max=500"`
	DueDate      *time.Time `json:"due_date"       validate:"required"`
	Priority     string     `json:"priority"       validate:"required,oneof=LOW MEDIUM HIGH"`
	Status       string     `json:"status"         validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Recurrence   string     `json:"recurrence"     validate:"omitempty,oneof=NONE DAILY WEEKLY MONTHLY"`
	AssignedToID *uuid.UUID `json:"assigned_to_id"`
}

// toInput converts the request to the service input.
func (req *CreateTaskRequest) toInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      *req.DueDate,
		Priority:     domain.Priority(req.Priority),
		Status:       domain.TaskStatus(req.Status),
		Recurrence:   domain.Recurrence(req.Recurrence),
		AssignedToID: req.AssignedToID,
	}
}

// UpdateTaskRequest defines the payload for PUT /tasks/{id}. Absent fields
// are left unchanged; "assigned_to_id": null removes the assignee.
type UpdateTaskRequest struct {
	Title        *string      `json:"title"          validate:"omitempty,min=3,max=100"`
	Description  *string      `json:"description"    validate:"omitempty,max=500"`
	DueDate      *time.Time   `json:"due_date"`
	Priority     *string      `json:"priority"       validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status       *string      `json:"status"         validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Recurrence   *string      `json:"recurrence"     validate:"omitempty,oneof=NONE DAILY WEEKLY MONTHLY"`
	AssignedToID OptionalUUID `json:"assigned_to_id"`
}

// toInput converts the request to the service input.
func (req *UpdateTaskRequest) toInput() service.UpdateTaskInput {
	in := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		in.Status = &s
	}
	if req.Recurrence != nil {
		r := domain.Recurrence(*req.Recurrence)
		in.Recurrence = &r
	}
	if req.AssignedToID.Set {
		if req.AssignedToID.Value == nil {
			in.ClearAssignee = true
		} else {
			in.AssignedToID = req.AssignedToID.Value
		}
	}
	return in
}

// OptionalUUID distinguishes an absent JSON field from an explicit null.
type OptionalUUID struct {
	// Set is true when the field appeared in the payload.
	Set bool
	// Value is nil for an explicit null.
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// ListTasksQuery holds the query parameters of GET /tasks.
type ListTasksQuery struct {
	Search   string `json:"search"   validate:"max=100"`
	Status   string `json:"status"   validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Limit    int    `json:"limit"    validate:"gte=0,lte=100"`
	Offset   int    `json:"offset"   validate:"gte=0"`
}

// toInput converts the query to the service input.
func (q *ListTasksQuery) toInput() service.ListTasksInput {
	in := service.ListTasksInput{Search: q.Search, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		s := domain.TaskStatus(q.Status)
		in.Status = &s
	}
	if q.Priority != "" {
		p := domain.Priority(q.Priority)
		in.Priority = &p
	}
	return in
}

// TaskListResponse is the response of GET /tasks.
type TaskListResponse struct {
	Tasks  []*domain.Task `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}

// NotificationListResponse is the response of GET /notifications.
type NotificationListResponse struct {
	Notifications []*domain.Notification `json:"notifications"`
}

// UnreadCountResponse is the response of GET /notifications/unread-count.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
