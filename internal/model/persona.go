package model

// Tone holds the three voice dials, each 1..10.
type Tone struct {
	Professionalism int `json:"professionalism" yaml:"professionalism" mapstructure:"professionalism"`
	Conciseness     int `json:"conciseness" yaml:"conciseness" mapstructure:"conciseness"`
	Empathy         int `json:"empathy" yaml:"empathy" mapstructure:"empathy"`
}

// Authenticity toggles stylistic markers in generated replies.
type Authenticity struct {
	LowercaseI          bool `json:"lowercase_i" yaml:"lowercase_i" mapstructure:"lowercase_i"`
	Contractions        bool `json:"contractions" yaml:"contractions" mapstructure:"contractions"`
	VarySentenceLength  bool `json:"vary_sentence_length" yaml:"vary_sentence_length" mapstructure:"vary_sentence_length"`
	AvoidCorporateSpeak bool `json:"avoid_corporate_speak" yaml:"avoid_corporate_speak" mapstructure:"avoid_corporate_speak"`
}

// Community is a targeted source with its crawl sort mode (new, hot, rising).
type Community struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Sort string `json:"sort" yaml:"sort" mapstructure:"sort"`
}

// Persona is a brand's voice and context used for scoring and reply generation.
type Persona struct {
	ID                 string       `json:"id" yaml:"id" mapstructure:"id"`
	Name               string       `json:"name" yaml:"name" mapstructure:"name"`
	Archetype          string       `json:"archetype" yaml:"archetype" mapstructure:"archetype"`
	ProductName        string       `json:"product_name" yaml:"product_name" mapstructure:"product_name"`
	WebsiteURL         string       `json:"website_url" yaml:"website_url" mapstructure:"website_url"`
	BrandMission       string       `json:"brand_mission" yaml:"brand_mission" mapstructure:"brand_mission"`
	TargetAudience     string       `json:"target_audience" yaml:"target_audience" mapstructure:"target_audience"`
	ProblemDescription string       `json:"problem_description" yaml:"problem_description" mapstructure:"problem_description"`
	PainPoints         []string     `json:"pain_points" yaml:"pain_points" mapstructure:"pain_points"`
	KeyFeatures        []string     `json:"key_features" yaml:"key_features" mapstructure:"key_features"`
	Tone               Tone         `json:"tone" yaml:"tone" mapstructure:"tone"`
	Authenticity       Authenticity `json:"authenticity" yaml:"authenticity" mapstructure:"authenticity"`
	Communities        []Community  `json:"communities" yaml:"communities" mapstructure:"communities"`
	Keywords           []string     `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
}
