package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mira-ai/sentinel/internal/bus"
	"github.com/mira-ai/sentinel/internal/router"
	"github.com/mira-ai/sentinel/internal/sessions"
	"github.com/mira-ai/sentinel/internal/tools"
	"github.com/mira-ai/sentinel/pkg/models"
)

type fakeAgentRunner struct {
	text string
	err  error
	got  string // last sessionID seen
}

func (f *fakeAgentRunner) RunToCompletion(ctx context.Context, sessionID string) (string, error) {
	f.got = sessionID
	return f.text, f.err
}

func newTestScheduler(t *testing.T, agent AgentRunner) (*Scheduler, *bus.Bus) {
	t.Helper()
	b := bus.New(nil)
	mgr := sessions.NewManager(sessions.NewMemoryStore(), b, nil, 0)
	rtr := router.New(mgr, b)
	toolReg := tools.NewRegistry(nil)
	toolReg.Register(tools.Tool{
		Name: "ping",
		Handler: func(ctx context.Context, session tools.SessionCapability, args json.RawMessage) (any, error) {
			return "pong", nil
		},
	})
	s := New(mgr, rtr, toolReg, agent, NewMemoryRunLogStore(10), b, nil, WithNow(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	return s, b
}

// waitForRunToFinish blocks until the job's asynchronous run has
// finished and cleared its running flag.
func waitForRunToFinish(t *testing.T, s *Scheduler, id string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		s.mu.Lock()
		running := s.running[id]
		s.mu.Unlock()
		if !running {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %q to finish", id)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRegisterJobComputesNextRun(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	err := s.RegisterJob(models.CronJob{
		ID:         "j1",
		Expression: "* * * * *",
		Enabled:    true,
		Actions:    []models.CronAction{{Kind: models.CronActionMessage, Channel: "cli", Text: "hi"}},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	jobs := s.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].NextRun.IsZero() {
		t.Fatalf("expected NextRun to be computed")
	}
}

func TestTickFiresMessageAction(t *testing.T) {
	s, b := newTestScheduler(t, nil)
	var outboundSeen bool
	b.Subscribe(bus.TopicMessageOutbound, func(payload any) {
		outboundSeen = true
	})

	past := s.now().Add(-time.Minute)
	s.mu.Lock()
	s.jobs["j1"] = &models.CronJob{
		ID: "j1", Expression: "* * * * *", Enabled: true, NextRun: past,
		Actions: []models.CronAction{{Kind: models.CronActionMessage, Channel: "cli", Text: "hello"}},
	}
	s.mu.Unlock()

	fired := s.Tick(context.Background())
	if fired != 1 {
		t.Fatalf("expected 1 fired job, got %d", fired)
	}
	// runJob executes asynchronously; wait for the outbound message and
	// then for the run to complete.
	deadline := time.After(time.Second)
	for !outboundSeen {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for outbound message")
		case <-time.After(time.Millisecond):
		}
	}
	waitForRunToFinish(t, s, "j1")

	s.mu.Lock()
	job := s.jobs["j1"]
	s.mu.Unlock()
	if job.RunCount != 1 {
		t.Fatalf("expected run count 1, got %d", job.RunCount)
	}
	if job.NextRun.Before(job.LastRun) || job.NextRun.Equal(job.LastRun) {
		t.Fatalf("expected NextRun recomputed after LastRun")
	}
}

func TestTickSkipsAlreadyRunningJob(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	past := s.now().Add(-time.Minute)
	s.mu.Lock()
	s.jobs["j1"] = &models.CronJob{ID: "j1", Expression: "* * * * *", Enabled: true, NextRun: past}
	s.running["j1"] = true
	s.mu.Unlock()

	fired := s.Tick(context.Background())
	if fired != 0 {
		t.Fatalf("expected 0 fired jobs while running, got %d", fired)
	}
}

func TestTickRebootJobFiresOnlyOnce(t *testing.T) {
	s, b := newTestScheduler(t, nil)
	var outboundCount int
	b.Subscribe(bus.TopicMessageOutbound, func(payload any) {
		outboundCount++
	})

	past := s.now().Add(-time.Minute)
	s.mu.Lock()
	s.jobs["j1"] = &models.CronJob{
		ID: "j1", Expression: "@reboot", Enabled: true, NextRun: past,
		Actions: []models.CronAction{{Kind: models.CronActionMessage, Channel: "cli", Text: "booted"}},
	}
	s.mu.Unlock()

	fired := s.Tick(context.Background())
	if fired != 1 {
		t.Fatalf("expected 1 fired job, got %d", fired)
	}
	deadline := time.After(time.Second)
	for outboundCount == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for outbound message")
		case <-time.After(time.Millisecond):
		}
	}
	waitForRunToFinish(t, s, "j1")

	s.mu.Lock()
	job := s.jobs["j1"]
	nextRun := job.NextRun
	s.mu.Unlock()
	if !nextRun.IsZero() {
		t.Fatalf("expected NextRun cleared after @reboot fires once, got %v", nextRun)
	}

	// A later tick must not find the job due again.
	fired = s.Tick(context.Background())
	if fired != 0 {
		t.Fatalf("expected @reboot job to never be due again, got %d fired", fired)
	}
	if outboundCount != 1 {
		t.Fatalf("expected exactly 1 outbound message, got %d", outboundCount)
	}
}

func TestExecuteToolAction(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	job := &models.CronJob{ID: "j2"}
	out, err := s.executeTool(context.Background(), job, models.CronAction{
		Kind: models.CronActionTool, ToolName: "ping", Channel: "cli",
	})
	if err != nil {
		t.Fatalf("execute tool: %v", err)
	}
	if out != "pong" {
		t.Fatalf("expected pong, got %q", out)
	}
}

func TestExecuteAgentActionStripsRouteDirective(t *testing.T) {
	runner := &fakeAgentRunner{text: "Status is nominal.<route>ops-channel</route>"}
	s, _ := newTestScheduler(t, runner)
	job := &models.CronJob{ID: "j3"}
	out, err := s.executeAgent(context.Background(), job, models.CronAction{
		Kind: models.CronActionAgent, Channel: "cli", Prompt: "Report status.",
	})
	if err != nil {
		t.Fatalf("execute agent: %v", err)
	}
	if out != "Status is nominal." {
		t.Fatalf("expected route directive stripped, got %q", out)
	}
	if runner.got == "" {
		t.Fatalf("expected agent runner to receive a session id")
	}
}

func TestNextRejectsInvalidExpression(t *testing.T) {
	if _, err := Next("not a cron expression", time.Now()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}

func TestNextHandlesDescriptors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := Next("@daily", now)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !next.After(now) {
		t.Fatalf("expected next occurrence after now")
	}
}

func TestFileJobStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileJobStore(dir + "/jobs.json")

	jobs := []models.CronJob{{ID: "j1", Expression: "@hourly", Enabled: true}}
	if err := store.Save(jobs); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "j1" {
		t.Fatalf("expected round-tripped job, got %+v", loaded)
	}
	if loaded[0].NextRun.IsZero() {
		t.Fatalf("expected NextRun recomputed on load")
	}
}
