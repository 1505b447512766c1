package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderModerationTemplate(t *testing.T) {
	data := ModerationData{
		AppName:     "DeltaProNet",
		ContentKind: "question",
		AuthorName:  "A. Smith",
		Excerpt:     "How do I tune a PID loop?",
		QueueURL:    "https://example.com/moderation",
	}

	html, err := renderTemplate(moderationEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "DeltaProNet") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "A. Smith") {
		t.Error("template should contain author name")
	}
	if !strings.Contains(html, "How do I tune a PID loop?") {
		t.Error("template should contain the excerpt")
	}
	if !strings.Contains(html, "https://example.com/moderation") {
		t.Error("template should contain queue URL")
	}
}

func TestRenderApprovalTemplate(t *testing.T) {
	data := ApprovalData{
		AppName:     "DeltaProNet",
		UserName:    "A. Smith",
		ContentKind: "comment",
		ContentURL:  "https://example.com/people/usr_1",
	}

	html, err := renderTemplate(approvalEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "DeltaProNet") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "A. Smith") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "https://example.com/people/usr_1") {
		t.Error("template should contain content URL")
	}
}
