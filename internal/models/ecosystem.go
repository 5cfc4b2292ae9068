package models

import "time"

// EntryType classifies an ecosystem catalog entry.
type EntryType string

const (
	EntryHook        EntryType = "hook"
	EntryPlugin      EntryType = "plugin"
	EntrySkill       EntryType = "skill"
	EntryMCPServer   EntryType = "mcp_server"
	EntryAgentConfig EntryType = "agent_config"
)

// IsValid reports whether the entry type is one of the known values.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryHook, EntryPlugin, EntrySkill, EntryMCPServer, EntryAgentConfig:
		return true
	}
	return false
}

// AgentConfigMeta holds extra attributes for agent_config entries.
type AgentConfigMeta struct {
	ConfigType       string   `json:"configType,omitempty"`
	ModelTier        string   `json:"modelTier,omitempty"`
	ToolRestrictions []string `json:"toolRestrictions,omitempty"`
}

// EcosystemEntry is one tool/extension in the community catalog. GitHubURL is
// the natural key when present; entries without one are deduplicated by name.
type EcosystemEntry struct {
	ID           int64            `json:"id,omitempty"`
	Name         string           `json:"name"`
	Type         EntryType        `json:"type"`
	Author       string           `json:"author,omitempty"`
	Description  string           `json:"description,omitempty"`
	GitHubURL    string           `json:"githubUrl,omitempty"`
	Stars        int              `json:"stars"`
	LastUpdated  *time.Time       `json:"lastUpdated,omitempty"`
	CategoryTags []string         `json:"categoryTags,omitempty"`
	MentionCount int              `json:"mentionCount"`
	AgentMeta    *AgentConfigMeta `json:"agentMeta,omitempty"`
	CreatedAt    time.Time        `json:"createdAt,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt,omitempty"`
}
