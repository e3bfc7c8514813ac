// Package ocr implements the OCR mode: every image sent is run through the
// text extractor.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"
)

const StepAwaitingImage workflow.Step = "AWAITING_IMAGE"

const (
	CmdCancel = "cancel"
	CmdStatus = "status"
)

const evImage = "image"

var errNoExtractor = errors.New("no text extractor configured")

type State struct {
	Step      workflow.Step
	Extracted int
}

// ExtractedText is the text read from one image.
type ExtractedText struct {
	Image workflow.FileRef `json:"image"`
	Text  string           `json:"text"`
}

func (ExtractedText) ResultType() string { return "extracted_text" }

type Workflow struct {
	states    *workflow.States[State]
	machine   *workflow.Machine
	extractor workflow.TextExtractor
	remover   workflow.FileRemover
}

func New(extractor workflow.TextExtractor, remover workflow.FileRemover, opts ...memory.Option) *Workflow {
	return &Workflow{
		states: workflow.NewStates[State](store.ModeOCR, opts...),
		machine: workflow.NewMachine(StepAwaitingImage,
			workflow.Transition{Event: evImage, From: []workflow.Step{StepAwaitingImage}, To: StepAwaitingImage},
		),
		extractor: extractor,
		remover:   remover,
	}
}

func (w *Workflow) Intro() string {
	return "OCR mode. Send an image and I will reply with the text found in it."
}

func (w *Workflow) Initialize(userID string) workflow.Step {
	w.states.Save(userID, State{Step: w.machine.Initial()})
	return w.machine.Initial()
}

func (w *Workflow) Cleanup(userID string) {
	w.states.Delete(userID)
}

func (w *Workflow) Step(userID string) (workflow.Step, bool) {
	st, ok := w.states.Load(userID)
	return st.Step, ok
}

func (w *Workflow) HandleEvent(ctx context.Context, userID string, ev workflow.Event) (workflow.Reply, workflow.Step) {
	st, ok := w.states.Load(userID)
	if !ok {
		st = State{Step: w.machine.Initial()}
	}

	var reply workflow.Reply
	switch ev.Kind {
	case workflow.EventFile:
		reply, st = w.handleImage(ctx, st, ev.File)
	case workflow.EventCommand:
		switch ev.CommandName() {
		case CmdCancel:
			reply = workflow.Corrective(workflow.ErrNothingToCancel, "Nothing to cancel. Send an image, or /exit to leave OCR mode.")
		case CmdStatus:
			reply = workflow.Reply{Text: fmt.Sprintf("Images processed: %d", st.Extracted)}
		default:
			reply = workflow.Corrective(workflow.Invalid("command", ev.Command), fmt.Sprintf("Unknown command /%s. Send an image.", ev.CommandName()))
		}
	default:
		reply = workflow.Corrective(workflow.Invalid("event", string(ev.Kind)), "OCR mode expects an image.")
	}

	w.states.Save(userID, st)
	return reply, st.Step
}

func (w *Workflow) handleImage(ctx context.Context, st State, f *workflow.FileRef) (workflow.Reply, State) {
	if f == nil || !f.IsImage() {
		return workflow.Corrective(workflow.Invalid("image", "file is not an image"), "Only images can be read. Send a photo or a scan."), st
	}
	if w.extractor == nil {
		return workflow.Corrective(&workflow.CollaboratorError{Collaborator: "extractor", Op: "extract", Err: errNoExtractor},
			"Text extraction is not available right now."), st
	}

	text, err := w.extractor.ExtractText(ctx, *f)
	workflow.RemoveFiles(w.remover, *f)
	if err != nil {
		return workflow.Corrective(&workflow.CollaboratorError{Collaborator: "extractor", Op: "extract", Err: err},
			"Could not read that image. Try another one."), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evImage)
	if err != nil {
		return workflow.Corrective(err, "Send an image."), st
	}
	st.Step = next
	st.Extracted++

	text = strings.TrimSpace(text)
	if text == "" {
		return workflow.Reply{Text: "No text found in that image."}, st
	}
	return workflow.Reply{
		Text:    "Extracted text:\n" + text,
		Results: []workflow.Result{ExtractedText{Image: *f, Text: text}},
	}, st
}
