package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	orchestration "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"github.com/koscakluka/ema-ivr/core/workflow"
)

var (
	simulateCallID        string
	simulateTranscript    string
	simulateChoice        string
	simulateFailRecording bool
	simulateWidth         int
)

var (
	stepStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	actionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay one call through the call flow against stub backends",
	Long: `simulate walks a single call through answer, main menu, recording and
hangup, printing every workflow the transport would receive. Transcription
and notification are stubbed: the transcript comes from --transcript and
the notification is printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simulate(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCallID, "call-id", "c1", "call id")
	simulateCmd.Flags().StringVar(&simulateTranscript, "transcript", "my pipe is broken", "transcript the stub recognizer returns")
	simulateCmd.Flags().StringVar(&simulateChoice, "choice", string(orchestration.MenuOptionSupport), "key the caller presses in the main menu")
	simulateCmd.Flags().BoolVar(&simulateFailRecording, "fail-recording", false, "report the recording as failed")
	simulateCmd.Flags().IntVar(&simulateWidth, "width", 72, "wrap prompts at this width")
	rootCmd.AddCommand(simulateCmd)
}

type stubTranscriber struct{ transcript string }

func (s stubTranscriber) Transcribe(context.Context, []byte, ...speechtotext.TranscriptionOption) string {
	return s.transcript
}

type printingNotifier struct{ out io.Writer }

func (n printingNotifier) Notify(_ context.Context, target *notifications.Target, text string) error {
	fmt.Fprintf(n.out, "%s %s\n", stepStyle.Render("notify"), dimStyle.Render(fmt.Sprintf("to %s on %s", target.User.ID, target.ChannelID)))
	fmt.Fprintln(n.out, "  "+wrap(text))
	return nil
}

func simulate(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	o := orchestration.NewOrchestrator(
		orchestration.WithTranscriber(stubTranscriber{transcript: simulateTranscript}),
		orchestration.WithNotifier(printingNotifier{out: out}),
	)

	participants := []events.Participant{
		{Identity: "u1", Originator: true},
		{Identity: "bot", Originator: false},
	}

	wf := o.Handle(ctx, events.NewIncomingCall(simulateCallID, participants, nil))
	printWorkflow(out, "incoming call", wf)
	if wf == nil || len(wf.Actions) < 2 {
		return fmt.Errorf("call was not answered")
	}

	wf = o.Handle(ctx, events.NewPromptCompleted(simulateCallID, wf.Actions[1].OperationID(), events.OutcomeSuccess, nil))
	printWorkflow(out, "welcome played", wf)

	wf = o.Handle(ctx, events.NewRecognizeCompleted(simulateCallID, "", events.OutcomeSuccess, simulateChoice, nil))
	printWorkflow(out, "pressed "+simulateChoice, wf)
	if call, ok := o.Call(simulateCallID); !ok || call.State != orchestration.CallStateRecording {
		fmt.Fprintln(out, dimStyle.Render("caller did not reach the recording; stopping"))
		return nil
	}

	outcome := events.OutcomeSuccess
	if simulateFailRecording {
		outcome = events.OutcomeFailure
	}
	wf = o.Handle(ctx, events.NewRecordCompleted(simulateCallID, "", outcome, bytes.NewReader([]byte("simulated recording"))))
	printWorkflow(out, "recording "+string(outcome), wf)

	wf = o.Handle(ctx, events.NewHangupCompleted(simulateCallID, "", events.OutcomeSuccess))
	printWorkflow(out, "hung up", wf)

	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("active calls: %d", len(o.ActiveCalls()))))
	return nil
}

func printWorkflow(out io.Writer, step string, wf *workflow.Workflow) {
	fmt.Fprintln(out, stepStyle.Render(step))
	if wf == nil {
		fmt.Fprintln(out, dimStyle.Render("  (no workflow)"))
		return
	}

	for _, action := range wf.Actions {
		fmt.Fprintf(out, "  %s %s\n", actionStyle.Render(string(action.Kind())), dimStyle.Render(action.OperationID()))
		switch a := action.(type) {
		case *workflow.PlayPrompt:
			printPrompts(out, a)
		case *workflow.Recognize:
			printPrompts(out, a.PlayPrompt)
			keys := make([]string, 0, len(a.Choices))
			for _, choice := range a.Choices {
				keys = append(keys, choice.TriggerKey)
			}
			fmt.Fprintln(out, dimStyle.Render("    keys: "+strings.Join(keys, " ")))
		case *workflow.Record:
			printPrompts(out, a.PlayPrompt)
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("    max %ds, stop on %s, %s", a.MaxDurationInSeconds, strings.Join(a.StopTones, ""), a.RecordingFormat)))
		}
	}
}

func printPrompts(out io.Writer, prompt *workflow.PlayPrompt) {
	if prompt == nil {
		return
	}
	for _, p := range prompt.Prompts {
		for _, line := range strings.Split(wrap(p.Value), "\n") {
			fmt.Fprintln(out, "    "+line)
		}
	}
}

func wrap(text string) string {
	if simulateWidth <= 0 {
		return text
	}
	return wordwrap.String(text, simulateWidth)
}
