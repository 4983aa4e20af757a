package transfer

type ChannelCreation struct {
	PlatformType string `json:"platform_type"`
	Alias        string `json:"alias"`
	BlogURL      string `json:"blog_url"`
	ExternalID   string `json:"external_id"`
	Credential   string `json:"credential"`
	Persona      string `json:"persona"`
	DefaultTopic string `json:"default_topic"`
	CustomPrompt string `json:"custom_prompt"`
	PostLength   string `json:"post_length"`
	ImageCount   int    `json:"image_count"`
}
