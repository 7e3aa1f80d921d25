package dto

// Bulk actions supported on conversations.
const (
	BulkActionMarkRead   = "mark_read"
	BulkActionMarkUnread = "mark_unread"
	BulkActionMove       = "move"
	BulkActionDelete     = "delete"
)

type BulkActionRequest struct {
	Action          string   `json:"action" binding:"required"`
	ConversationIDs []string `json:"conversationIds" binding:"required,min=1"`
	// Folder is only consulted for the move action.
	Folder string `json:"folder,omitempty"`
}

type BulkActionOutcome struct {
	ConversationID string `json:"conversationId"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

type BulkActionResult struct {
	Action    string              `json:"action"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Outcomes  []BulkActionOutcome `json:"outcomes"`
}
