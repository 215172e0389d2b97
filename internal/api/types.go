package api

import (
	"chromaflow/internal/app"
	"chromaflow/internal/items"
	"chromaflow/internal/query"
)

// ItemsResponse is the filtered, sorted item list.
type ItemsResponse struct {
	Items    []items.Item `json:"items"`
	Total    int          `json:"total"`
	Revision uint64       `json:"revision"`
}

// StateResponse summarizes controller state and the caller's capabilities.
type StateResponse struct {
	Dirty         bool   `json:"dirty"`
	Saving        bool   `json:"saving"`
	PendingRemote bool   `json:"pendingRemote"`
	Revision      uint64 `json:"revision"`
	Count         int    `json:"count"`
	UserID        string `json:"userId,omitempty"`
	Admin         bool   `json:"admin"`
}

// SelectionRequest names the items an operation applies to.
type SelectionRequest struct {
	IDs []string `json:"ids"`
}

// AdvanceRequest advances a selection, with an optional shop for items at a
// branch stage.
type AdvanceRequest struct {
	IDs  []string `json:"ids"`
	Shop string   `json:"shop,omitempty"`
}

// AdvanceResponse reports an advance. NeedsShop is set on a 409.
type AdvanceResponse struct {
	Touched   int `json:"touched"`
	NeedsShop int `json:"needsShop"`
}

// StatusRequest overrides status for a selection. An empty shop keeps each
// item's shop.
type StatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
	Shop   string   `json:"shop,omitempty"`
}

// CountResponse reports how many items an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// ImportResponse reports an import.
type ImportResponse struct {
	Mode       string   `json:"mode"`
	Parsed     int      `json:"parsed"`
	Added      int      `json:"added"`
	Replaced   int      `json:"replaced"`
	Duplicates []string `json:"duplicates"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	NeedsShop int    `json:"needsShop,omitempty"`
}

// StatsResponse is the dashboard over the filtered view.
type StatsResponse = query.DashboardStats

// OptionsResponse lists filter dropdown values.
type OptionsResponse = query.Options

// EventMessage is one websocket frame.
type EventMessage = app.Event

func fromImportResult(result items.ImportResult, parsed int) ImportResponse {
	dups := result.Duplicates
	if dups == nil {
		dups = []string{}
	}
	return ImportResponse{
		Mode:       result.Mode.String(),
		Parsed:     parsed,
		Added:      result.Added,
		Replaced:   result.Replaced,
		Duplicates: dups,
	}
}
