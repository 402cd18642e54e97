package health

import (
	"testing"
	"time"
)

func TestStatus_StateChecks(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		wantHealthy   bool
		wantDegraded  bool
		wantUnhealthy bool
	}{
		{
			name:        "healthy",
			status:      Status{Status: "healthy"},
			wantHealthy: true,
		},
		{
			name:         "degraded",
			status:       Status{Status: "degraded"},
			wantDegraded: true,
		},
		{
			name:          "unhealthy",
			status:        Status{Status: "unhealthy"},
			wantUnhealthy: true,
		},
		{
			name:   "empty status matches nothing",
			status: Status{Status: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.wantHealthy {
				t.Errorf("Status.IsHealthy() = %v, want %v", got, tt.wantHealthy)
			}
			if got := tt.status.IsDegraded(); got != tt.wantDegraded {
				t.Errorf("Status.IsDegraded() = %v, want %v", got, tt.wantDegraded)
			}
			if got := tt.status.IsUnhealthy(); got != tt.wantUnhealthy {
				t.Errorf("Status.IsUnhealthy() = %v, want %v", got, tt.wantUnhealthy)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name        string
		build       func(component, message string) Status
		wantStatus  string
		wantHealthy bool
	}{
		{
			name:        "NewHealthy",
			build:       NewHealthy,
			wantStatus:  "healthy",
			wantHealthy: true,
		},
		{
			name:       "NewUnhealthy",
			build:      NewUnhealthy,
			wantStatus: "unhealthy",
		},
		{
			name:       "NewDegraded",
			build:      NewDegraded,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.build("broker", "some message")

			if status.Component != "broker" {
				t.Errorf("Expected component broker, got %s", status.Component)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, status.Status)
			}
			if status.Healthy != tt.wantHealthy {
				t.Errorf("Expected healthy=%v, got %v", tt.wantHealthy, status.Healthy)
			}
			if status.Message != "some message" {
				t.Errorf("Expected message to be preserved, got %s", status.Message)
			}
			if status.Timestamp.IsZero() {
				t.Error("Expected timestamp to be set")
			}
		})
	}
}

func TestStatus_WithMetrics(t *testing.T) {
	original := Status{
		Component: "recorder",
		Status:    "healthy",
		Message:   "test message",
	}

	metrics := &Metrics{
		Uptime:     time.Hour,
		ErrorCount: 5,
		QueueDepth: 12,
	}

	result := original.WithMetrics(metrics)

	// Should not modify original
	if original.Metrics != nil {
		t.Error("WithMetrics should not modify original status")
	}

	// Should return copy with metrics
	if result.Metrics == nil {
		t.Fatal("WithMetrics should return status with metrics")
	}

	if result.Metrics.Uptime != time.Hour {
		t.Errorf("Expected uptime %v, got %v", time.Hour, result.Metrics.Uptime)
	}

	if result.Metrics.ErrorCount != 5 {
		t.Errorf("Expected error count 5, got %d", result.Metrics.ErrorCount)
	}

	if result.Metrics.QueueDepth != 12 {
		t.Errorf("Expected queue depth 12, got %d", result.Metrics.QueueDepth)
	}
}

func TestStatus_WithSubStatus(t *testing.T) {
	original := Status{
		Component: "gateway",
		Status:    "healthy",
		Message:   "parent message",
	}

	subStatus := Status{
		Component: "broker",
		Status:    "unhealthy",
		Message:   "child message",
	}

	result := original.WithSubStatus(subStatus)

	// Should not modify original
	if len(original.SubStatuses) != 0 {
		t.Error("WithSubStatus should not modify original status")
	}

	// Should return copy with sub-status
	if len(result.SubStatuses) != 1 {
		t.Fatalf("Expected 1 sub-status, got %d", len(result.SubStatuses))
	}

	if result.SubStatuses[0].Component != "broker" {
		t.Errorf("Expected broker component, got %s", result.SubStatuses[0].Component)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name         string
		subStatuses  []Status
		wantStatus   string
		wantMessage  string
		wantSubCount int
	}{
		{
			name:         "empty sub-statuses",
			subStatuses:  []Status{},
			wantStatus:   "healthy",
			wantMessage:  "No sub-components to aggregate",
			wantSubCount: 0,
		},
		{
			name: "all healthy",
			subStatuses: []Status{
				{Status: "healthy", Component: "broker"},
				{Status: "healthy", Component: "recorder"},
			},
			wantStatus:   "healthy",
			wantMessage:  "All sub-components are healthy",
			wantSubCount: 2,
		},
		{
			name: "one unhealthy wins",
			subStatuses: []Status{
				{Status: "healthy", Component: "broker"},
				{Status: "unhealthy", Component: "recorder"},
				{Status: "degraded", Component: "engine"},
			},
			wantStatus:   "unhealthy",
			wantMessage:  "One or more sub-components are unhealthy",
			wantSubCount: 3,
		},
		{
			name: "degraded without unhealthy",
			subStatuses: []Status{
				{Status: "healthy", Component: "broker"},
				{Status: "degraded", Component: "recorder"},
			},
			wantStatus:   "degraded",
			wantMessage:  "One or more sub-components are degraded",
			wantSubCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Aggregate("gateway", tt.subStatuses)

			if result.Component != "gateway" {
				t.Errorf("Expected component gateway, got %s", result.Component)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, result.Status)
			}
			if result.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, result.Message)
			}
			if len(result.SubStatuses) != tt.wantSubCount {
				t.Errorf("Expected %d sub-statuses, got %d", tt.wantSubCount, len(result.SubStatuses))
			}
		})
	}
}

func TestAggregate_SortsSubStatuses(t *testing.T) {
	result := Aggregate("gateway", []Status{
		{Status: "healthy", Component: "recorder"},
		{Status: "healthy", Component: "broker"},
		{Status: "healthy", Component: "engine"},
	})

	want := []string{"broker", "engine", "recorder"}
	for i, name := range want {
		if result.SubStatuses[i].Component != name {
			t.Errorf("SubStatuses[%d] = %s, want %s", i, result.SubStatuses[i].Component, name)
		}
	}
}

func TestAggregate_CopiesInput(t *testing.T) {
	input := []Status{
		{Status: "healthy", Component: "broker"},
	}

	result := Aggregate("gateway", input)

	input[0].Status = "unhealthy"
	if result.SubStatuses[0].Status != "healthy" {
		t.Error("Aggregate should copy sub-statuses, not alias the input slice")
	}
}
