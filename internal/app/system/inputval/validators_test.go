package inputval

import "testing"

func TestIsValidPlatform(t *testing.T) {
	tests := []struct {
		platform string
		want     bool
	}{
		{"netflix", true},
		{"spotify", true},
		{"disney", true},
		{"other", true},

		// Case insensitive
		{"NETFLIX", true},
		{"Hbo", true},

		// Valid with whitespace
		{"  apple  ", true},

		// Invalid
		{"", false},
		{"   ", false},
		{"crunchyroll", false},
		{"netflix premium", false},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			got := IsValidPlatform(tt.platform)
			if got != tt.want {
				t.Errorf("IsValidPlatform(%q) = %v, want %v", tt.platform, got, tt.want)
			}
		})
	}
}

func TestIsValidInviteCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"ZZZZZZ", true},
		{"000000", true},

		{"", false},
		{"ABC12", false},   // too short
		{"ABC1234", false}, // too long
		{"abc123", false},  // lowercase must be normalized first
		{"ABC-12", false},
		{"ABC 12", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := IsValidInviteCode(tt.code)
			if got != tt.want {
				t.Errorf("IsValidInviteCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true},
		{"  507f1f77bcf86cd799439011  ", true},

		{"", false},
		{"507f1f77bcf86cd79943901", false},  // too short
		{"507f1f77bcf86cd79943901g", false}, // invalid hex char
		{"not-a-valid-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := IsValidObjectID(tt.id)
			if got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type TestInput struct {
		Name       string  `validate:"required,max=10" label:"Group name"`
		Cost       float64 `validate:"gt=0" label:"Monthly cost"`
		MaxMembers int     `validate:"min=2,max=6" label:"Max members"`
	}

	tests := []struct {
		name       string
		input      TestInput
		wantErrors bool
		wantFirst  string
	}{
		{
			name:       "valid input",
			input:      TestInput{Name: "Family", Cost: 15.99, MaxMembers: 4},
			wantErrors: false,
		},
		{
			name:       "missing name",
			input:      TestInput{Name: "", Cost: 15.99, MaxMembers: 4},
			wantErrors: true,
			wantFirst:  "Group name is required.",
		},
		{
			name:       "name too long",
			input:      TestInput{Name: "VeryLongNameThatExceedsLimit", Cost: 15.99, MaxMembers: 4},
			wantErrors: true,
			wantFirst:  "Group name must be at most 10 characters.",
		},
		{
			name:       "zero cost",
			input:      TestInput{Name: "Family", Cost: 0, MaxMembers: 4},
			wantErrors: true,
			wantFirst:  "Monthly cost must be greater than 0.",
		},
		{
			name:       "too few members",
			input:      TestInput{Name: "Family", Cost: 10, MaxMembers: 1},
			wantErrors: true,
			wantFirst:  "Max members must be at least 2.",
		},
		{
			name:       "too many members",
			input:      TestInput{Name: "Family", Cost: 10, MaxMembers: 7},
			wantErrors: true,
			wantFirst:  "Max members must be at most 6.",
		},
		{
			name:       "missing name and cost",
			input:      TestInput{Name: "", Cost: 0, MaxMembers: 4},
			wantErrors: true,
			wantFirst:  "Group name is required.", // First error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)

			if result.HasErrors() != tt.wantErrors {
				t.Errorf("Validate() HasErrors = %v, want %v", result.HasErrors(), tt.wantErrors)
			}

			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("Validate() First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestResult_All(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		r := &Result{}
		if r.All() != "" {
			t.Errorf("All() = %q, want empty", r.All())
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		r := &Result{
			Errors: []FieldError{
				{Message: "Error 1"},
				{Message: "Error 2"},
			},
		}
		want := "Error 1; Error 2"
		if r.All() != want {
			t.Errorf("All() = %q, want %q", r.All(), want)
		}
	})
}

func TestResult_First(t *testing.T) {
	r := &Result{}
	if r.First() != "" {
		t.Errorf("First() = %q, want empty", r.First())
	}
	r.Errors = []FieldError{{Message: "First error"}, {Message: "Second error"}}
	if r.First() != "First error" {
		t.Errorf("First() = %q, want %q", r.First(), "First error")
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type PlatformInput struct {
		Platform string `validate:"required,platform" label:"Platform"`
	}

	type CodeInput struct {
		Code string `validate:"required,invitecode" label:"Invite code"`
	}

	type IDInput struct {
		ID string `validate:"required,objectid" label:"Group ID"`
	}

	t.Run("valid platform", func(t *testing.T) {
		result := Validate(PlatformInput{Platform: "spotify"})
		if result.HasErrors() {
			t.Errorf("Validate(valid platform) has errors: %v", result.Errors)
		}
	})

	t.Run("invalid platform", func(t *testing.T) {
		result := Validate(PlatformInput{Platform: "myspace"})
		if !result.HasErrors() {
			t.Fatal("Validate(invalid platform) should have errors")
		}
		if result.First() != "Platform must be one of the supported platforms." {
			t.Errorf("First() = %q", result.First())
		}
	})

	t.Run("valid invite code", func(t *testing.T) {
		result := Validate(CodeInput{Code: "AB12CD"})
		if result.HasErrors() {
			t.Errorf("Validate(valid code) has errors: %v", result.Errors)
		}
	})

	t.Run("invalid invite code", func(t *testing.T) {
		result := Validate(CodeInput{Code: "AB12"})
		if !result.HasErrors() {
			t.Error("Validate(invalid code) should have errors")
		}
	})

	t.Run("valid ObjectID", func(t *testing.T) {
		result := Validate(IDInput{ID: "507f1f77bcf86cd799439011"})
		if result.HasErrors() {
			t.Errorf("Validate(valid ID) has errors: %v", result.Errors)
		}
	})

	t.Run("invalid ObjectID", func(t *testing.T) {
		result := Validate(IDInput{ID: "invalid-id"})
		if !result.HasErrors() {
			t.Error("Validate(invalid ID) should have errors")
		}
	})
}
