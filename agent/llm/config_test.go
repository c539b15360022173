package llm

import (
	"errors"
	"testing"

	contractx "github.com/careloop/careline/agent/contract"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  Config{APIKey: "sk-test", Model: "gpt-4o-mini"},
		},
		{
			name:    "missing api key",
			cfg:     Config{Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name:    "blank api key",
			cfg:     Config{APIKey: "   ", Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name:    "missing model",
			cfg:     Config{APIKey: "sk-test"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("NewClient() error = %v, want ErrValidation", err)
	}
}
