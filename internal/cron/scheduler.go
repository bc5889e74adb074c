package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mira-ai/sentinel/internal/bus"
	"github.com/mira-ai/sentinel/internal/router"
	"github.com/mira-ai/sentinel/internal/sessions"
	"github.com/mira-ai/sentinel/internal/tools"
	"github.com/mira-ai/sentinel/pkg/models"
)

// defaultTickInterval matches the spec's stated 60s wall-clock tick.
const defaultTickInterval = 60 * time.Second

// defaultJobTimeout bounds a job whose own Timeout field is unset.
const defaultJobTimeout = 5 * time.Minute

var routeDirective = regexp.MustCompile(`(?s)<route>.*?</route>`)

// AgentRunner is the narrow capability the Scheduler needs to
// re-enter the Agent Loop for an "agent" cron action, named locally
// so this package never depends on the agent package's full Loop
// object graph (the cyclic-reference design note in spec.md §9).
type AgentRunner interface {
	RunToCompletion(ctx context.Context, sessionID string) (string, error)
}

// AgentRunnerFactory builds an AgentRunner scoped to a restricted
// tool registry, used when a cron agent action declares a tool
// subset. A nil factory means tool subsets are ignored and the
// default runner is always used.
type AgentRunnerFactory func(toolSubset *tools.Registry) AgentRunner

// sessionCap is the SessionCapability handed to tool handlers invoked
// from a cron tool action.
type sessionCap struct {
	id      string
	channel string
}

func (s sessionCap) SessionID() string { return s.id }
func (s sessionCap) Channel() string   { return s.channel }

// Scheduler is the cron engine: it owns the job and run-log
// collections, parses expressions, and fires due jobs on a 60-second
// tick, re-entering the Session Manager, Tool Registry, and Agent
// Loop via injected capabilities rather than a handle to the full
// object graph.
type Scheduler struct {
	sessions     *sessions.Manager
	router       *router.Router
	toolReg      *tools.Registry
	agent        AgentRunner
	agentFactory AgentRunnerFactory
	runLogs      RunLogStore
	jobStore     JobStore
	bus          *bus.Bus
	log          *slog.Logger
	now          func() time.Time

	tickInterval time.Duration
	jobTimeout   time.Duration

	mu      sync.Mutex
	jobs    map[string]*models.CronJob
	running map[string]bool

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithTickInterval overrides the 60s default tick.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithJobTimeout overrides the default per-job timeout used when a
// job does not declare its own.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithJobStore enables loading/saving the job collection from/to
// durable storage.
func WithJobStore(store JobStore) Option {
	return func(s *Scheduler) {
		s.jobStore = store
	}
}

// WithAgentRunnerFactory enables agent actions that declare a tool
// subset to run against a restricted Tool Registry view.
func WithAgentRunnerFactory(f AgentRunnerFactory) Option {
	return func(s *Scheduler) {
		s.agentFactory = f
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Scheduler over its collaborators.
func New(
	sessionMgr *sessions.Manager,
	rtr *router.Router,
	toolReg *tools.Registry,
	agentRunner AgentRunner,
	runLogs RunLogStore,
	b *bus.Bus,
	log *slog.Logger,
	opts ...Option,
) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if runLogs == nil {
		runLogs = NewMemoryRunLogStore(100)
	}
	s := &Scheduler{
		sessions:     sessionMgr,
		router:       rtr,
		toolReg:      toolReg,
		agent:        agentRunner,
		runLogs:      runLogs,
		bus:          b,
		log:          log,
		now:          time.Now,
		tickInterval: defaultTickInterval,
		jobTimeout:   defaultJobTimeout,
		jobs:         make(map[string]*models.CronJob),
		running:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load populates the job collection from the configured JobStore, if
// any. It is a no-op when no store was configured.
func (s *Scheduler) Load() error {
	if s.jobStore == nil {
		return nil
	}
	jobs, err := s.jobStore.Load()
	if err != nil {
		return fmt.Errorf("cron: load jobs: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range jobs {
		job := jobs[i]
		s.jobs[job.ID] = &job
	}
	return nil
}

// RegisterJob adds or replaces a job, computing its initial NextRun.
func (s *Scheduler) RegisterJob(job models.CronJob) error {
	if strings.TrimSpace(job.ID) == "" {
		return fmt.Errorf("cron: job id required")
	}
	if job.Enabled {
		next, err := Next(job.Expression, s.now())
		if err != nil {
			return err
		}
		job.NextRun = next
	}
	s.mu.Lock()
	s.jobs[job.ID] = &job
	s.mu.Unlock()
	return s.persist()
}

// UnregisterJob removes a job by id.
func (s *Scheduler) UnregisterJob(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	_ = s.persist()
}

// Jobs returns a value snapshot of every registered job.
func (s *Scheduler) Jobs() []models.CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CronJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// Start begins the tick loop in a background goroutine, returning
// immediately. Stop must be called to release it.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
}

// Stop halts the tick loop and waits for any in-flight tick to
// finish dispatching (individual job runs may still be executing in
// their own goroutines).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()
	<-s.doneCh
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every due, non-running job once and returns how many it
// fired. Exported so tests and a "cron run-once" CLI command can
// drive it without waiting on the ticker.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()
	var due []*models.CronJob

	s.mu.Lock()
	for _, job := range s.jobs {
		if !job.Enabled || job.NextRun.IsZero() || now.Before(job.NextRun) {
			continue
		}
		if s.running[job.ID] {
			continue
		}
		s.running[job.ID] = true
		due = append(due, job)
	}
	s.mu.Unlock()

	for _, job := range due {
		go func(job *models.CronJob) {
			defer func() {
				s.mu.Lock()
				delete(s.running, job.ID)
				s.mu.Unlock()
			}()
			s.runJob(ctx, job)
		}(job)
	}
	return len(due)
}

func (s *Scheduler) runJob(ctx context.Context, job *models.CronJob) {
	runID := uuid.NewString()
	start := s.now()
	runLog := models.RunLog{ID: runID, JobID: job.ID, StartedAt: start, Status: models.RunRunning}
	if err := s.runLogs.Append(runLog); err != nil {
		s.log.Warn("cron: append run log failed", "job", job.ID, "error", err)
	}
	s.publish(bus.TopicCronJobStarted, bus.CronJobPayload{JobID: job.ID, RunID: runID})

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = s.jobTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := s.executeActions(runCtx, job)

	end := s.now()
	runLog.EndedAt = end
	runLog.Duration = end.Sub(start)
	runLog.Output = output

	s.mu.Lock()
	job.LastRun = end
	switch {
	case err != nil && runCtx.Err() == context.DeadlineExceeded:
		runLog.Status = models.RunTimedOut
		runLog.Error = err.Error()
		job.FailCount++
	case err != nil:
		runLog.Status = models.RunFailed
		runLog.Error = err.Error()
		job.FailCount++
	default:
		runLog.Status = models.RunCompleted
		job.RunCount++
	}
	if job.Expression == "@reboot" {
		// @reboot fires once per process lifetime: after it has run,
		// it never becomes due again until the process restarts.
		job.NextRun = time.Time{}
	} else if next, nextErr := Next(job.Expression, end); nextErr != nil {
		job.Enabled = false
		job.NextRun = time.Time{}
	} else {
		job.NextRun = next
	}
	s.mu.Unlock()

	if updErr := s.runLogs.Update(runLog); updErr != nil {
		s.log.Warn("cron: update run log failed", "job", job.ID, "error", updErr)
	}
	if err != nil {
		s.log.Warn("cron job failed", "job", job.ID, "error", err)
		s.publish(bus.TopicCronJobFailed, bus.CronJobPayload{JobID: job.ID, RunID: runID, Error: err.Error()})
	}
	_ = s.persist()
}

func (s *Scheduler) executeActions(ctx context.Context, job *models.CronJob) (string, error) {
	var outputs []string
	for i, action := range job.Actions {
		out, err := s.executeAction(ctx, job, action)
		if err != nil {
			return strings.Join(outputs, "\n"), fmt.Errorf("action %d (%s): %w", i, action.Kind, err)
		}
		if out != "" {
			outputs = append(outputs, out)
		}
	}
	return strings.Join(outputs, "\n"), nil
}

func (s *Scheduler) executeAction(ctx context.Context, job *models.CronJob, action models.CronAction) (string, error) {
	switch action.Kind {
	case models.CronActionMessage:
		return "", s.executeMessage(job, action)
	case models.CronActionTool:
		return s.executeTool(ctx, job, action)
	case models.CronActionAgent:
		return s.executeAgent(ctx, job, action)
	default:
		return "", fmt.Errorf("unsupported cron action kind %q", action.Kind)
	}
}

func (s *Scheduler) executeMessage(job *models.CronJob, action models.CronAction) error {
	if strings.TrimSpace(action.Text) == "" {
		return fmt.Errorf("message action missing text")
	}
	sessionID, err := s.synthSession(job, action.Channel)
	if err != nil {
		return err
	}
	s.router.HandleOutbound(sessionID, action.Text)
	return nil
}

func (s *Scheduler) executeTool(ctx context.Context, job *models.CronJob, action models.CronAction) (string, error) {
	if strings.TrimSpace(action.ToolName) == "" {
		return "", fmt.Errorf("tool action missing tool name")
	}
	sessionID, err := s.synthSession(job, action.Channel)
	if err != nil {
		return "", err
	}
	args := json.RawMessage(action.ToolArgs)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	cap := sessionCap{id: sessionID, channel: action.Channel}
	result := s.toolReg.Execute(ctx, cap, action.ToolName, args)
	if !result.Success {
		if result.Error != nil {
			return "", fmt.Errorf("%s: %s", result.Error.Code, result.Error.Message)
		}
		return "", fmt.Errorf("tool %q failed", action.ToolName)
	}

	var output string
	if str, ok := result.Data.(string); ok {
		output = str
	} else if raw, err := json.Marshal(result.Data); err == nil {
		output = string(raw)
	}

	if action.SendOutput && output != "" && action.Channel != "" {
		s.router.HandleOutbound(sessionID, output)
	}
	return output, nil
}

func (s *Scheduler) executeAgent(ctx context.Context, job *models.CronJob, action models.CronAction) (string, error) {
	if strings.TrimSpace(action.Prompt) == "" {
		return "", fmt.Errorf("agent action missing prompt")
	}
	seeded, err := s.router.HandleInbound(sessions.Inbound{
		SenderID: "cron:" + job.ID,
		Channel:  action.Channel,
	}, action.Prompt)
	if err != nil {
		return "", fmt.Errorf("seed agent prompt: %w", err)
	}
	sessionID := seeded.ID

	runner := s.agent
	if len(action.ToolSubset) > 0 && s.agentFactory != nil {
		runner = s.agentFactory(s.toolReg.Subset(action.ToolSubset))
	}
	if runner == nil {
		return "", fmt.Errorf("no agent runner configured")
	}

	text, err := runner.RunToCompletion(ctx, sessionID)
	if err != nil {
		return "", err
	}
	text = routeDirective.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text != "" && action.Channel != "" {
		s.router.HandleOutbound(sessionID, text)
	}
	return text, nil
}

// synthSession resolves (creating if needed) a throwaway per-job
// session on the given channel, keyed off the job id so repeated
// runs reuse the same synthetic session rather than leaking a new
// one on every tick.
func (s *Scheduler) synthSession(job *models.CronJob, channel string) (string, error) {
	sess, err := s.sessions.Resolve(sessions.Inbound{
		SenderID: "cron:" + job.ID,
		Channel:  channel,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize cron session: %w", err)
	}
	return sess.ID, nil
}

func (s *Scheduler) publish(topic string, payload any) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}

func (s *Scheduler) persist() error {
	if s.jobStore == nil {
		return nil
	}
	return s.jobStore.Save(s.Jobs())
}
