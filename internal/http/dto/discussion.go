// Package dto defines the request and response shapes of the HTTP API.
package dto

import "roundtable.app/roundtable/internal/service"

type StartDiscussionRequest struct {
	Topic               string            `json:"topic" binding:"required"`
	OrganizationContext map[string]string `json:"organization_context"`
}

type StartDiscussionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Enqueued  bool   `json:"enqueued"`
}

type ListSessionsResponse struct {
	Sessions []service.StatusSummary `json:"sessions"`
}

type ReportResponse struct {
	SessionID string `json:"session_id"`
	Report    string `json:"report"`
}
