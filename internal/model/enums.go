package model

type ConversationStatus string

const (
	ConversationStatusActive ConversationStatus = "active"
	ConversationStatusClosed ConversationStatus = "closed"
)

type MessageRole string

const (
	MessageRoleCustomer MessageRole = "customer"
	MessageRoleAgent    MessageRole = "agent"
	MessageRoleSystem   MessageRole = "system"
)

type CampaignStatus string

const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusSending CampaignStatus = "sending"
	CampaignStatusSent    CampaignStatus = "sent"
	CampaignStatusFailed  CampaignStatus = "failed"
)

type CampaignAudience string

const (
	CampaignAudienceAll    CampaignAudience = "all"
	CampaignAudienceActive CampaignAudience = "active"
)
