package realtime

import (
	"encoding/json"
	"strings"
)

// Wire event names. These are part of the client contract.
const (
	EventJoinGroup         = "join-group"
	EventLeaveGroup        = "leave-group"
	EventEditNote          = "edit-note"
	EventUpdateOnlineUsers = "update-online-users"
	EventNoteUpdated       = "note-updated"
	EventUpdateStatus      = "update-status"
	EventError             = "error"
)

// Status values published with update-status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Message is one frame sent to a client: {"event": ..., "data": ...}.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// InboundFrame is one frame received from a client.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EditRequest is the edit-note payload.
type EditRequest struct {
	GroupID string `json:"groupId"`
	NoteID  string `json:"noteId"`
	Content string `json:"content"`
}

// NoteUpdated is the note-updated payload.
type NoteUpdated struct {
	NoteID   string `json:"noteId"`
	Content  string `json:"content"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// StatusUpdate is the update-status payload.
type StatusUpdate struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// ErrorPayload is the error payload sent to the originating connection.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// decodeGroupID accepts either a bare JSON string or {"groupId": "..."}.
func decodeGroupID(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		var obj struct {
			GroupID string `json:"groupId"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", ErrBadPayload
		}
		id = obj.GroupID
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrBadPayload
	}
	return id, nil
}

func decodeEdit(raw json.RawMessage) (EditRequest, error) {
	var req EditRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return EditRequest{}, ErrBadPayload
	}
	req.GroupID = strings.TrimSpace(req.GroupID)
	req.NoteID = strings.TrimSpace(req.NoteID)
	if req.GroupID == "" || req.NoteID == "" {
		return EditRequest{}, ErrBadPayload
	}
	return req, nil
}
