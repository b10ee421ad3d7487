package overhaul

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/guildforge/guildforge/pkg/remote"
	"github.com/guildforge/guildforge/pkg/telemetry"
)

// barWidth is the number of segments in the rendered progress bar.
const barWidth = 20

// ProgressSink receives the rendered status artifact. The run edits one
// artifact in place rather than emitting a new one per transition, so a
// sink should overwrite its previous content on every call.
type ProgressSink interface {
	Publish(ctx context.Context, content string) error
}

// ProgressState is the reporter's view of a run at one transition.
type ProgressState struct {
	CurrentStepIndex int // completed steps, 0..TotalSteps
	TotalSteps       int
	StepLabel        string
	StartedAt        time.Time
	LastError        string
	Cancelled        bool
	Done             bool
}

// Percentage is floor(100 * completed / total).
func (s ProgressState) Percentage() int {
	if s.TotalSteps == 0 {
		return 0
	}
	return 100 * s.CurrentStepIndex / s.TotalSteps
}

// Reporter maintains the single live status artifact for one run. Updates
// carry a monotonically increasing sequence derived from the step index;
// a write whose sequence is not greater than the last committed one is
// rejected, so a stale transition can never overwrite a later one.
type Reporter struct {
	sink ProgressSink
	log  *telemetry.Logger
	now  func() time.Time

	mu      sync.Mutex
	state   ProgressState
	lastSeq int
}

// NewReporter builds a reporter over the given sink. A nil sink is valid
// and makes every publish a no-op, for callers that only want the state.
func NewReporter(sink ProgressSink, log *telemetry.Logger) *Reporter {
	return &Reporter{sink: sink, log: log, now: time.Now, lastSeq: -1}
}

// State returns a copy of the current progress state.
func (r *Reporter) State() ProgressState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Begin announces the run before its first step.
func (r *Reporter) Begin(ctx context.Context, totalSteps int) {
	r.publish(ctx, 0, ProgressState{
		TotalSteps: totalSteps,
		StepLabel:  "starting",
		StartedAt:  r.now(),
	})
}

// StepStarted announces that step index (1-based) is running.
func (r *Reporter) StepStarted(ctx context.Context, index int, label string) {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()
	st.CurrentStepIndex = index - 1
	st.StepLabel = label
	r.publish(ctx, 2*index-1, st)
}

// StepCompleted announces that step index (1-based) succeeded.
func (r *Reporter) StepCompleted(ctx context.Context, index int) {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()
	st.CurrentStepIndex = index
	r.publish(ctx, 2*index, st)
}

// Failed renders the terminal failure artifact for step index (1-based).
func (r *Reporter) Failed(ctx context.Context, index int, stepErr error) {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()
	st.CurrentStepIndex = index - 1
	st.LastError = stepErr.Error()
	st.Done = true
	r.publish(ctx, 2*st.TotalSteps+1, st)
}

// CancelledAt renders the terminal cancellation artifact after completed
// steps.
func (r *Reporter) CancelledAt(ctx context.Context, completed int) {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()
	st.CurrentStepIndex = completed
	st.Cancelled = true
	st.Done = true
	r.publish(ctx, 2*st.TotalSteps+1, st)
}

// Completed renders the terminal success artifact.
func (r *Reporter) Completed(ctx context.Context) {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()
	st.CurrentStepIndex = st.TotalSteps
	st.StepLabel = "done"
	st.Done = true
	r.publish(ctx, 2*st.TotalSteps+1, st)
}

func (r *Reporter) publish(ctx context.Context, seq int, st ProgressState) {
	r.mu.Lock()
	if seq <= r.lastSeq {
		r.mu.Unlock()
		if r.log != nil {
			r.log.WithField("seq", seq).WithField("last_seq", r.lastSeq).
				Debug("rejecting stale progress update")
		}
		return
	}
	r.lastSeq = seq
	r.state = st
	r.mu.Unlock()

	if r.sink == nil {
		return
	}
	if err := r.sink.Publish(ctx, renderProgress(st, r.now())); err != nil && r.log != nil {
		// Progress delivery failures never abort the run.
		r.log.WithError(err).Warn("failed to publish progress update")
	}
}

func renderProgress(st ProgressState, now time.Time) string {
	var b strings.Builder
	b.WriteString("Server Overhaul\n")

	pct := st.Percentage()
	filled := barWidth * pct / 100
	fmt.Fprintf(&b, "[%s%s] %d%% (%d/%d)\n",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled),
		pct, st.CurrentStepIndex, st.TotalSteps)

	switch {
	case st.LastError != "":
		fmt.Fprintf(&b, "Failed at step %d of %d: %s\n",
			st.CurrentStepIndex+1, st.TotalSteps, st.LastError)
	case st.Cancelled:
		fmt.Fprintf(&b, "Cancelled after %d of %d steps\n",
			st.CurrentStepIndex, st.TotalSteps)
	case st.Done:
		b.WriteString("Completed\n")
	default:
		fmt.Fprintf(&b, "Current: %s\n", st.StepLabel)
	}

	if !st.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Elapsed: %s\n", now.Sub(st.StartedAt).Round(time.Second))
	}
	return b.String()
}

// MessageSink delivers progress into a channel message on the remote
// platform: the first publish creates the message, every later publish
// edits it in place.
type MessageSink struct {
	client    remote.Client
	channelID string

	mu        sync.Mutex
	messageID string
}

// NewMessageSink builds a sink that writes into the given channel.
func NewMessageSink(client remote.Client, channelID string) *MessageSink {
	return &MessageSink{client: client, channelID: channelID}
}

// Publish creates the status message on first call and edits it afterwards.
func (s *MessageSink) Publish(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messageID == "" {
		msg, err := s.client.CreateMessage(ctx, s.channelID, content)
		if err != nil {
			return err
		}
		s.messageID = msg.ID
		return nil
	}
	return s.client.EditMessage(ctx, s.channelID, s.messageID, content)
}
