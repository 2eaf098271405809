package handler

import (
	"time"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
}

type createTaskRequest struct {
	Title       string  `json:"title" validate:"notblank"`
	Description string  `json:"description"`
	Priority    *string `json:"priority"`
	// OwnerID is accepted for compatibility with older clients and ignored.
	OwnerID string `json:"owner_id"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

type ownerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type taskLinks struct {
	Self string `json:"self"`
}

type taskResponse struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Owner       *ownerResponse `json:"owner,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	Links       taskLinks      `json:"_links"`
}

type listTasksResponse struct {
	Items []taskResponse `json:"items"`
	Total int            `json:"total"`
}

type deleteTaskResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func toTaskResponse(t *domain.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
		Links:       taskLinks{Self: "/v1/tasks/" + t.ID},
	}
	if t.Owner != nil {
		resp.Owner = &ownerResponse{ID: t.Owner.ID, Name: t.Owner.Name, Email: t.Owner.Email}
	}
	return resp
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
