package models

type CommunityConfig struct {
	BaseModel

	CommunityID            string  `json:"community_id" gorm:"size:64;uniqueIndex"`
	AnnouncementChannelID  *string `json:"announcement_channel_id"`
	PinPolls               *bool   `json:"pin_polls"`
	AutoCompleteOnDeadline bool    `json:"auto_complete_on_deadline"`
	MatureContentEnabled   bool    `json:"mature_content_enabled"`
}

// ShouldPinPolls reports the pin setting, pinning when it was never set.
func (v CommunityConfig) ShouldPinPolls() bool {
	return v.PinPolls == nil || *v.PinPolls
}
