package config

type Limits struct {
	MaxRevisionTurns   int             `yaml:"max_revision_turns" validate:"required,min=1,max=25"`
	MaxAgentTurns      int             `yaml:"max_agent_turns" validate:"required,min=1,max=50"`
	SummaryPrefixChars int             `yaml:"summary_prefix_chars" validate:"required,min=50,max=2000"`
	ContinuationChars  int             `yaml:"continuation_chars" validate:"required,min=50,max=2000"`
	RateLimit          RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxRevisionTurns:   5,
		MaxAgentTurns:      10,
		SummaryPrefixChars: 200,
		ContinuationChars:  250,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         15,
		},
	}
}
