// Package mcp provides the MCP server that lets an assistant preview build
// notifications and inspect mail threads.
package mcp

import "buildmail-agent/src/contracts"

// PreviewResponse is the preview_notification result.
type PreviewResponse struct {
	PreviewID  string    `json:"preview_id"`
	Build      BuildInfo `json:"build"`
	WouldSend  bool      `json:"would_send"`
	Variant    string    `json:"variant,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	InReplyTo  string    `json:"in_reply_to,omitempty"`
	// Transcript is what the build log would show, compacted.
	Transcript []string `json:"transcript"`
}

// BuildInfo contains build metadata.
type BuildInfo struct {
	URL      string `json:"url"`
	Project  string `json:"project"`
	Number   int    `json:"number"`
	Result   string `json:"result"`
	Previous string `json:"previous_result,omitempty"`
	Culprits int    `json:"culprits"`
}

// Preview is a stored preview with the rendered message, if any.
type Preview struct {
	Response PreviewResponse
	// Raw is the RFC 5322 text of the message that would be sent.
	Raw []byte
}

// ThreadResponse is the get_thread result.
type ThreadResponse struct {
	Project string                         `json:"project"`
	Records []contracts.NotificationRecord `json:"records"`
}
