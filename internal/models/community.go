// internal/models/community.go
package models

import "fmt"

// CommunityConfig holds the channel and role bindings an administrator sets up
// per community. All fields are optional; empty means unbound.
type CommunityConfig struct {
	CommunityID        string `json:"communityId"`
	PanelChannelID     string `json:"panelChannelId"`     // where the start button lives
	InterviewChannelID string `json:"interviewChannelId"` // parent channel for interview threads
	StaffChannelID     string `json:"staffChannelId"`     // staff review queue
	RejectLogChannelID string `json:"rejectLogChannelId"` // optional rejection log
	StaffRoleID        string `json:"staffRoleId"`
	PendingRoleID      string `json:"pendingRoleId"`  // interim role while under review
	ApprovedRoleID     string `json:"approvedRoleId"` // grants community access
	RejectedRoleID     string `json:"rejectedRoleId"` // optional marker role
}

// ConfigField enumerates the bindable settings. Writes go through a fixed
// dispatch table of typed setters, never a runtime-computed field name.
type ConfigField string

const (
	FieldPanelChannel     ConfigField = "panel_channel"
	FieldInterviewChannel ConfigField = "interview_channel"
	FieldStaffChannel     ConfigField = "staff_channel"
	FieldRejectLogChannel ConfigField = "reject_log_channel"
	FieldStaffRole        ConfigField = "staff_role"
	FieldPendingRole      ConfigField = "pending_role"
	FieldApprovedRole     ConfigField = "approved_role"
	FieldRejectedRole     ConfigField = "rejected_role"
)

var configSetters = map[ConfigField]func(*CommunityConfig, string){
	FieldPanelChannel:     func(c *CommunityConfig, v string) { c.PanelChannelID = v },
	FieldInterviewChannel: func(c *CommunityConfig, v string) { c.InterviewChannelID = v },
	FieldStaffChannel:     func(c *CommunityConfig, v string) { c.StaffChannelID = v },
	FieldRejectLogChannel: func(c *CommunityConfig, v string) { c.RejectLogChannelID = v },
	FieldStaffRole:        func(c *CommunityConfig, v string) { c.StaffRoleID = v },
	FieldPendingRole:      func(c *CommunityConfig, v string) { c.PendingRoleID = v },
	FieldApprovedRole:     func(c *CommunityConfig, v string) { c.ApprovedRoleID = v },
	FieldRejectedRole:     func(c *CommunityConfig, v string) { c.RejectedRoleID = v },
}

// Apply sets the given field through the dispatch table.
func (c *CommunityConfig) Apply(field ConfigField, value string) error {
	set, ok := configSetters[field]
	if !ok {
		return fmt.Errorf("unknown config field: %s", field)
	}
	set(c, value)
	return nil
}

// ValidConfigField reports whether field is a known binding.
func ValidConfigField(field ConfigField) bool {
	_, ok := configSetters[field]
	return ok
}
