// Package mcpserver exposes exported sideline SQLite files to MCP clients.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/sideline/internal/db"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Store is the read side of an export file.
type Store interface {
	Sessions() ([]db.Session, error)
	LatestSession() (*db.Session, error)
	AnnotationsForSession(sessionID string) ([]db.Annotation, error)
	AnnotationsByType(sessionID, actionType string) ([]db.Annotation, error)
}

// Handler answers tool calls against one store.
type Handler struct {
	store Store
}

// NewHandler creates a handler for store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type sessionJSON struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	ExportName string `json:"exportName"`
	HomeTeam   string `json:"homeTeam,omitempty"`
	AwayTeam   string `json:"awayTeam,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type annotationJSON struct {
	ID            int64   `json:"id"`
	Type          string  `json:"type"`
	Label         string  `json:"label"`
	Timestamp     float64 `json:"timestamp"`
	FormattedTime string  `json:"formattedTime"`
	GameClockTime string  `json:"gameClockTime"`
	Team          string  `json:"team,omitempty"`
}

type annotationsJSON struct {
	Session     sessionJSON      `json:"session"`
	Annotations []annotationJSON `json:"annotations"`
}

func toSessionJSON(s db.Session) sessionJSON {
	return sessionJSON{
		ID:         s.ID,
		Source:     s.Source,
		ExportName: s.ExportName,
		HomeTeam:   s.HomeTeam,
		AwayTeam:   s.AwayTeam,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListSessions handles the list_sessions tool.
func (h *Handler) ListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.store.Sessions()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions: %v", err)), nil
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionJSON(s))
	}
	return jsonResult(out)
}

// ListAnnotations handles the list_annotations tool. Without session_id the
// most recent session is used; type filters by action id.
func (h *Handler) ListAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	actionType := req.GetString("type", "")

	sess, err := h.resolveSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var anns []db.Annotation
	if actionType != "" {
		anns, err = h.store.AnnotationsByType(sess.ID, actionType)
	} else {
		anns, err = h.store.AnnotationsForSession(sess.ID)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list annotations: %v", err)), nil
	}

	out := annotationsJSON{Session: toSessionJSON(*sess), Annotations: make([]annotationJSON, 0, len(anns))}
	for _, a := range anns {
		out.Annotations = append(out.Annotations, annotationJSON{
			ID:            a.ID,
			Type:          a.Type,
			Label:         a.Label,
			Timestamp:     a.Timestamp,
			FormattedTime: a.FormattedTime,
			GameClockTime: a.GameClockTime,
			Team:          a.Team,
		})
	}
	return jsonResult(out)
}

func (h *Handler) resolveSession(id string) (*db.Session, error) {
	if id == "" {
		sess, err := h.store.LatestSession()
		if err != nil {
			return nil, fmt.Errorf("latest session: %w", err)
		}
		if sess == nil {
			return nil, fmt.Errorf("no sessions exported yet")
		}
		return sess, nil
	}

	sessions, err := h.store.Sessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("session %q not found", id)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// New builds an MCP server with the sideline tools registered.
func New(h *Handler) *server.MCPServer {
	s := server.NewMCPServer("sideline", Version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List exported review sessions, newest first"),
	), h.ListSessions)

	s.AddTool(mcp.NewTool("list_annotations",
		mcp.WithDescription("List the annotations of an exported session in timestamp order"),
		mcp.WithString("session_id", mcp.Description("Session id; defaults to the most recent session")),
		mcp.WithString("type", mcp.Description("Only annotations of this action type, e.g. \"Eye Contact\"")),
	), h.ListAnnotations)

	return s
}
