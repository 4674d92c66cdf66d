package config

import (
	"strings"
	"testing"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				AI: AIConfig{
					APIKey:  "sk-1234567890abcdef1234567890abcdef",
					Model:   "gpt-4o",
					BaseURL: "https://api.openai.com/v1",
					Timeout: 120,
				},
				Paths: PathsConfig{
					DataDir: "data",
				},
				Limits: DefaultLimits(),
			},
			wantErr: false,
		},
		{
			name: "invalid API key - too short",
			config: Config{
				AI: AIConfig{
					APIKey:  "short",
					Model:   "gpt-4o",
					BaseURL: "https://api.openai.com/v1",
					Timeout: 120,
				},
				Paths: PathsConfig{
					DataDir: "data",
				},
				Limits: DefaultLimits(),
			},
			wantErr: true,
			errMsg:  "APIKey",
		},
		{
			name: "invalid base URL",
			config: Config{
				AI: AIConfig{
					APIKey:  "sk-1234567890abcdef1234567890abcdef",
					Model:   "gpt-4o",
					BaseURL: "not-a-url",
					Timeout: 120,
				},
				Paths: PathsConfig{
					DataDir: "data",
				},
				Limits: DefaultLimits(),
			},
			wantErr: true,
			errMsg:  "BaseURL",
		},
		{
			name: "timeout too high",
			config: Config{
				AI: AIConfig{
					APIKey:  "sk-1234567890abcdef1234567890abcdef",
					Model:   "gpt-4o",
					BaseURL: "https://api.openai.com/v1",
					Timeout: 4000,
				},
				Paths: PathsConfig{
					DataDir: "data",
				},
				Limits: DefaultLimits(),
			},
			wantErr: true,
			errMsg:  "Timeout",
		},
		{
			name: "agent turn budget too high",
			config: Config{
				AI: AIConfig{
					APIKey:  "sk-1234567890abcdef1234567890abcdef",
					Model:   "gpt-4o",
					BaseURL: "https://api.openai.com/v1",
					Timeout: 120,
				},
				Paths: PathsConfig{
					DataDir: "data",
				},
				Limits: Limits{
					MaxRevisionTurns:   5,
					MaxAgentTurns:      200,
					SummaryPrefixChars: 200,
					ContinuationChars:  250,
					RateLimit: RateLimitConfig{
						RequestsPerMinute: 30,
						BurstSize:         15,
					},
				},
			},
			wantErr: true,
			errMsg:  "MaxAgentTurns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("validate() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestDefaultLimits(t *testing.T) {
	cfg := Config{
		AI: AIConfig{
			APIKey:  "sk-1234567890abcdef1234567890abcdef",
			Model:   "gpt-4o",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 120,
		},
		Paths: PathsConfig{
			DataDir: "data",
		},
		Limits: DefaultLimits(),
	}

	if err := cfg.validate(); err != nil {
		t.Errorf("DefaultLimits() should produce valid config, got error: %v", err)
	}

	limits := DefaultLimits()
	if limits.MaxRevisionTurns != 5 {
		t.Errorf("MaxRevisionTurns = %d, want 5", limits.MaxRevisionTurns)
	}
	if limits.MaxAgentTurns != 10 {
		t.Errorf("MaxAgentTurns = %d, want 10", limits.MaxAgentTurns)
	}
}
