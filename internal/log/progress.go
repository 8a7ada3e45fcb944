// Package log provides console progress output for the study commands: a
// spinner-backed indicator for downloads and a step logger for the run
// pipeline's fixed stages. Structured events still go through zerolog; this
// package only owns the transient terminal line.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// ProgressIndicator provides visual feedback for long-running operations
type ProgressIndicator struct {
	mu          sync.Mutex
	name        string
	total       int
	current     int
	startTime   time.Time
	spinner     *Spinner
	showSpinner bool
	showBar     bool
}

// Spinner provides rotating visual feedback
type Spinner struct {
	chars    []string
	current  int
	interval time.Duration
	stop     chan bool
	running  bool
	mu       sync.Mutex
}

// ProgressConfig configures progress indicator behavior
type ProgressConfig struct {
	ShowSpinner  bool
	ShowBar      bool
	SpinnerStyle SpinnerStyle
}

// SpinnerStyle defines different spinner animations
type SpinnerStyle string

const (
	SpinnerDots     SpinnerStyle = "dots"
	SpinnerLine     SpinnerStyle = "line"
	SpinnerPipeline SpinnerStyle = "pipeline"
)

// DefaultProgressConfig returns the full-fat indicator configuration
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		ShowSpinner:  true,
		ShowBar:      true,
		SpinnerStyle: SpinnerDots,
	}
}

// QuietProgressConfig disables all terminal drawing, leaving only the
// zerolog events
func QuietProgressConfig() ProgressConfig {
	return ProgressConfig{}
}

// AutoProgressConfig picks the full indicator on a terminal and the quiet
// one when output is piped
func AutoProgressConfig() ProgressConfig {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return DefaultProgressConfig()
	}
	return QuietProgressConfig()
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(name string, total int, config ProgressConfig) *ProgressIndicator {
	pi := &ProgressIndicator{
		name:        name,
		total:       total,
		startTime:   time.Now(),
		showSpinner: config.ShowSpinner,
		showBar:     config.ShowBar,
	}

	if config.ShowSpinner {
		pi.spinner = NewSpinner(config.SpinnerStyle)
		pi.spinner.Start()
	}

	return pi
}

// NewSpinner creates a new spinner with the specified style
func NewSpinner(style SpinnerStyle) *Spinner {
	s := &Spinner{
		interval: 100 * time.Millisecond,
		stop:     make(chan bool, 1),
	}

	switch style {
	case SpinnerLine:
		s.chars = []string{"-", "\\", "|", "/"}
	case SpinnerPipeline:
		s.chars = []string{"📥", "📈", "🌡️", "🔗", "🧮", "📝"}
		s.interval = 200 * time.Millisecond
	default:
		s.chars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	}

	return s
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	go s.spin()
}

// Stop terminates the spinner animation
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.stop <- true
}

// spin runs the spinner animation loop
func (s *Spinner) spin() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.current = (s.current + 1) % len(s.chars)
			s.mu.Unlock()
		}
	}
}

// Current returns the current spinner character
func (s *Spinner) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chars[s.current]
}

// Increment advances progress by one step
func (pi *ProgressIndicator) Increment() {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.setLocked(pi.current+1, "")
}

// UpdateWithMessage sets progress and displays a custom message
func (pi *ProgressIndicator) UpdateWithMessage(current int, message string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.setLocked(current, message)
}

// Current returns the current progress value
func (pi *ProgressIndicator) Current() int {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.current
}

func (pi *ProgressIndicator) setLocked(current int, message string) {
	pi.current = current
	if pi.showSpinner || pi.showBar {
		pi.draw(message)
	}
}

// Finish completes the progress indicator
func (pi *ProgressIndicator) Finish() {
	pi.FinishWithMessage(fmt.Sprintf("%d items", pi.total))
}

// FinishWithMessage completes the progress indicator with a custom message
func (pi *ProgressIndicator) FinishWithMessage(message string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if pi.spinner != nil {
		pi.spinner.Stop()
	}

	duration := time.Since(pi.startTime)
	if pi.showSpinner || pi.showBar {
		fmt.Printf("\r\033[K✅ %s: %s (%v)\n", pi.name, message, duration.Round(time.Millisecond))
	}
}

// Fail marks the progress as failed
func (pi *ProgressIndicator) Fail(reason string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if pi.spinner != nil {
		pi.spinner.Stop()
	}

	duration := time.Since(pi.startTime)
	if pi.showSpinner || pi.showBar {
		fmt.Printf("\r\033[K❌ %s failed: %s (%v)\n", pi.name, reason, duration.Round(time.Millisecond))
	}
}

// draw renders the transient terminal line. Callers hold pi.mu.
func (pi *ProgressIndicator) draw(message string) {
	var output strings.Builder

	output.WriteString("\r\033[K")

	if pi.spinner != nil && pi.showSpinner {
		output.WriteString(pi.spinner.Current())
		output.WriteString(" ")
	}

	output.WriteString(pi.name)

	if pi.showBar && pi.total > 0 {
		barWidth := 20
		filled := barWidth * pi.current / pi.total
		if filled > barWidth {
			filled = barWidth
		}

		output.WriteString(" [")
		for i := 0; i < barWidth; i++ {
			if i < filled {
				output.WriteString("█")
			} else {
				output.WriteString("░")
			}
		}
		output.WriteString(fmt.Sprintf("] %d/%d", pi.current, pi.total))
	}

	if message != "" {
		output.WriteString(" - ")
		output.WriteString(message)
	}

	fmt.Print(output.String())
}

// StepLogger drives the banner and timing for the run command's fixed
// pipeline stages
type StepLogger struct {
	steps       []string
	currentStep int
	startTime   time.Time
	stepStarted time.Time
	stepTimes   []time.Duration
	progress    *ProgressIndicator
}

// NewStepLogger creates a step logger over an ordered list of stage names
func NewStepLogger(name string, steps []string, config ProgressConfig) *StepLogger {
	config.SpinnerStyle = SpinnerPipeline

	return &StepLogger{
		steps:       steps,
		currentStep: -1,
		startTime:   time.Now(),
		stepTimes:   make([]time.Duration, len(steps)),
		progress:    NewProgressIndicator(name, len(steps), config),
	}
}

// StartStep begins the named stage, completing the previous one first
func (sl *StepLogger) StartStep(stepName string) {
	stepIndex := -1
	for i, step := range sl.steps {
		if step == stepName {
			stepIndex = i
			break
		}
	}

	if stepIndex == -1 {
		log.Warn().Str("step", stepName).Msg("Unknown pipeline step")
		return
	}

	sl.CompleteStep()

	sl.currentStep = stepIndex
	sl.stepStarted = time.Now()
	sl.progress.UpdateWithMessage(stepIndex+1, stepName)

	log.Info().
		Str("step", stepName).
		Int("step_number", stepIndex+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting pipeline step")
}

// CompleteStep marks the current step as completed
func (sl *StepLogger) CompleteStep() {
	if sl.currentStep < 0 {
		return
	}

	duration := time.Since(sl.stepStarted)
	sl.stepTimes[sl.currentStep] = duration

	log.Info().
		Str("step", sl.steps[sl.currentStep]).
		Dur("duration", duration).
		Msg("Pipeline step completed")

	sl.currentStep = -1
}

// Finish completes the step logger and logs the per-stage timing summary
func (sl *StepLogger) Finish() {
	sl.CompleteStep()
	totalDuration := time.Since(sl.startTime)

	sl.progress.FinishWithMessage(fmt.Sprintf("all %d steps completed", len(sl.steps)))

	log.Info().Dur("total_duration", totalDuration).Msg("Pipeline completed")
	for i, step := range sl.steps {
		log.Debug().
			Str("step", step).
			Dur("duration", sl.stepTimes[i]).
			Msgf("  %d. %s", i+1, step)
	}
}

// Fail marks the step logger as failed
func (sl *StepLogger) Fail(reason string) {
	step := "unknown"
	if sl.currentStep >= 0 && sl.currentStep < len(sl.steps) {
		step = sl.steps[sl.currentStep]
	}

	sl.progress.Fail(reason)

	log.Error().
		Str("failed_step", step).
		Int("total_steps", len(sl.steps)).
		Str("reason", reason).
		Msg("Pipeline failed")
}

// StepTime returns the recorded duration for a completed stage
func (sl *StepLogger) StepTime(stepName string) time.Duration {
	for i, step := range sl.steps {
		if step == stepName {
			return sl.stepTimes[i]
		}
	}
	return 0
}
