package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"video-scout/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMetrics string

func (m testMetrics) GetSummary() string { return string(m) }

type fakeAgent struct {
	err     error
	partial error
	runs    int
}

func (f *fakeAgent) Name() string      { return "fake" }
func (f *fakeAgent) Initialize() error { return nil }

func (f *fakeAgent) RunOnce(ctx context.Context, events *AgentEvents) error {
	f.runs++
	if f.partial != nil {
		events.OnPartialFailure(f.partial, time.Millisecond)
	}
	if f.err != nil {
		return f.err
	}
	events.OnSuccess(testMetrics("2 topics, 7 videos reported"), time.Millisecond)
	return nil
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name        string
		agent       *fakeAgent
		wantErr     bool
		wantHealthy bool
		wantStatus  string
	}{
		{"success", &fakeAgent{}, false, true, "7 videos reported"},
		{"partial failure stays healthy", &fakeAgent{partial: errors.New("email failed")}, false, true, "7 videos reported"},
		{"critical failure", &fakeAgent{err: errors.New("all topics failed")}, true, false, "all topics failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&config.Config{}, tt.agent)

			err := s.RunOnce(context.Background())

			if tt.wantErr {
				assert.ErrorIs(t, err, tt.agent.err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantHealthy, s.Monitor().IsHealthy())
			assert.Contains(t, s.Monitor().GetStatusSummary(), tt.wantStatus)
			assert.Equal(t, 1, tt.agent.runs)
		})
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&config.Config{Schedule: "every tuesday"}, &fakeAgent{})

	assert.Error(t, s.Start(context.Background()), "invalid cron expression")
}
