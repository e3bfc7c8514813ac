// Package archive implements the ARCHIVE mode: queue files, compress them into
// a zip, extract uploaded archives and search the queue by name.
package archive

import (
	"context"
	"fmt"
	"strings"

	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"
)

const (
	StepCollecting      workflow.Step = "COLLECTING"
	StepAwaitingArchive workflow.Step = "AWAITING_ARCHIVE"
)

const (
	CmdZip     = "zip"
	CmdExtract = "extract"
	CmdSearch  = "search"
	CmdList    = "list"
	CmdClear   = "clear"
	CmdCancel  = "cancel"
	CmdStatus  = "status"
)

const (
	evQueue   = "queue"
	evZip     = "zip"
	evSearch  = "search"
	evClear   = "clear"
	evExtract = "extract"
	evArchive = "archive"
	evCancel  = "cancel"
)

const (
	MaxQueued       = 50
	defaultZipName  = "archive"
	listPreviewSize = 20
)

type State struct {
	Step          workflow.Step
	Queued        []workflow.FileRef
	SearchResults []workflow.FileRef
	// zips built this session; the transport reads them until the mode ends
	Built []workflow.FileRef
}

// Archive is a zip built from the queued files.
type Archive struct {
	File  workflow.FileRef   `json:"file"`
	Files []workflow.FileRef `json:"files"`
}

func (Archive) ResultType() string { return "archive" }

// Extraction lists the entries unpacked from an uploaded archive.
type Extraction struct {
	Archive workflow.FileRef   `json:"archive"`
	Files   []workflow.FileRef `json:"files"`
}

func (Extraction) ResultType() string { return "archive_extraction" }

type Workflow struct {
	states     *workflow.States[State]
	machine    *workflow.Machine
	compressor workflow.Compressor
	remover    workflow.FileRemover
}

func New(compressor workflow.Compressor, remover workflow.FileRemover, opts ...memory.Option) *Workflow {
	return &Workflow{
		states: workflow.NewStates[State](store.ModeArchive, opts...),
		machine: workflow.NewMachine(StepCollecting,
			workflow.Transition{Event: evQueue, From: []workflow.Step{StepCollecting}, To: StepCollecting},
			workflow.Transition{Event: evZip, From: []workflow.Step{StepCollecting}, To: StepCollecting},
			workflow.Transition{Event: evSearch, From: []workflow.Step{StepCollecting}, To: StepCollecting},
			workflow.Transition{Event: evClear, From: []workflow.Step{StepCollecting}, To: StepCollecting},
			workflow.Transition{Event: evExtract, From: []workflow.Step{StepCollecting}, To: StepAwaitingArchive},
			workflow.Transition{Event: evArchive, From: []workflow.Step{StepAwaitingArchive}, To: StepCollecting},
			workflow.Transition{Event: evCancel, From: []workflow.Step{StepAwaitingArchive}, To: StepCollecting},
		),
		compressor: compressor,
		remover:    remover,
	}
}

func (w *Workflow) Intro() string {
	return "Archive mode. Send files to queue them, /zip [name] to compress the queue, " +
		"/extract to unpack a zip, /search <term> to find queued files."
}

func (w *Workflow) Commands() []string {
	return []string{CmdZip, CmdExtract, CmdSearch, CmdList, CmdClear}
}

func (w *Workflow) Initialize(userID string) workflow.Step {
	w.states.Save(userID, State{Step: w.machine.Initial()})
	return w.machine.Initial()
}

// Cleanup drops the state and deletes every queued file and built zip.
func (w *Workflow) Cleanup(userID string) {
	st, ok := w.states.Load(userID)
	if !ok {
		return
	}
	w.states.Delete(userID)
	workflow.RemoveFiles(w.remover, append(append([]workflow.FileRef{}, st.Queued...), st.Built...)...)
}

func (w *Workflow) Step(userID string) (workflow.Step, bool) {
	st, ok := w.states.Load(userID)
	return st.Step, ok
}

func (w *Workflow) State(userID string) (State, bool) {
	return w.states.Load(userID)
}

func (w *Workflow) HandleEvent(ctx context.Context, userID string, ev workflow.Event) (workflow.Reply, workflow.Step) {
	st, ok := w.states.Load(userID)
	if !ok {
		st = State{Step: w.machine.Initial()}
	}

	var reply workflow.Reply
	switch {
	case ev.Kind == workflow.EventCommand:
		reply, st = w.handleCommand(ctx, st, ev)
	case ev.Kind == workflow.EventFile && ev.File != nil && st.Step == StepCollecting:
		reply, st = w.queue(ctx, st, *ev.File)
	case ev.Kind == workflow.EventFile && ev.File != nil && st.Step == StepAwaitingArchive:
		reply, st = w.extract(ctx, st, *ev.File)
	default:
		reply = workflow.Corrective(workflow.Invalid("event", string(ev.Kind)), "Archive mode works with files and commands. "+w.prompt(st))
	}

	w.states.Save(userID, st)
	return reply, st.Step
}

func (w *Workflow) queue(ctx context.Context, st State, f workflow.FileRef) (workflow.Reply, State) {
	if len(st.Queued) >= MaxQueued {
		return workflow.Corrective(workflow.Invalid("queue", "queue is full"),
			fmt.Sprintf("The queue holds at most %d files. /zip or /clear it first.", MaxQueued)), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evQueue)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}
	st.Queued = appendFile(st.Queued, f)
	st.Step = next
	return workflow.Reply{
		Text:     fmt.Sprintf("Queued %s (%d file(s) in queue).", f.Name, len(st.Queued)),
		Keyboard: []string{"/zip", "/list", "/clear"},
	}, st
}

func (w *Workflow) extract(ctx context.Context, st State, f workflow.FileRef) (workflow.Reply, State) {
	if !f.IsZip() {
		return workflow.Corrective(workflow.Invalid("archive", "file is not a zip archive"), "Send a .zip file, or /cancel."), st
	}
	if w.compressor == nil {
		return workflow.Corrective(&workflow.CollaboratorError{Collaborator: "compressor", Op: "extract", Err: errNoCompressor},
			"Archive extraction is not available right now."), st
	}

	files, err := w.compressor.Extract(ctx, f)
	if err != nil {
		return workflow.Corrective(&workflow.CollaboratorError{Collaborator: "compressor", Op: "extract", Err: err},
			"Could not extract that archive. Send another one, or /cancel."), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evArchive)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}
	workflow.RemoveFiles(w.remover, f)

	// extracted entries join the queue up to its capacity, the rest is deleted
	room := MaxQueued - len(st.Queued)
	if room < 0 {
		room = 0
	}
	kept, dropped := files, []workflow.FileRef(nil)
	if len(files) > room {
		kept, dropped = files[:room], files[room:]
		workflow.RemoveFiles(w.remover, dropped...)
	}
	queued := make([]workflow.FileRef, 0, len(st.Queued)+len(kept))
	st.Queued = append(append(queued, st.Queued...), kept...)
	st.Step = next

	text := fmt.Sprintf("Extracted %d file(s) from %s:\n%s", len(kept), f.Name, listFiles(kept))
	if len(dropped) > 0 {
		text += fmt.Sprintf("\n%d more file(s) did not fit in the queue (max %d) and were discarded.", len(dropped), MaxQueued)
	}
	return workflow.Reply{
		Text:    text,
		Results: []workflow.Result{Extraction{Archive: f, Files: kept}},
	}, st
}

func (w *Workflow) handleCommand(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	cmd := ev.CommandName()
	switch cmd {
	case CmdZip:
		return w.zip(ctx, st, strings.TrimSpace(ev.Args))

	case CmdExtract:
		next, err := w.machine.Fire(ctx, st.Step, evExtract)
		if err != nil {
			return workflow.Corrective(err, "Already waiting for an archive. Send a .zip file, or /cancel."), st
		}
		st.Step = next
		return workflow.Reply{Text: "Send the .zip file to extract.", Keyboard: []string{"/cancel"}}, st

	case CmdSearch:
		term := strings.ToLower(strings.TrimSpace(ev.Args))
		if term == "" {
			return workflow.Corrective(workflow.Invalid("term", "search term is required"), "Usage: /search <term>"), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evSearch)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		var found []workflow.FileRef
		for _, f := range st.Queued {
			if strings.Contains(strings.ToLower(f.Name), term) {
				found = append(found, f)
			}
		}
		st.SearchResults = found
		st.Step = next
		if len(found) == 0 {
			return workflow.Reply{Text: fmt.Sprintf("No queued file matches \"%s\".", term)}, st
		}
		return workflow.Reply{Text: fmt.Sprintf("%d match(es):\n%s", len(found), listFiles(found))}, st

	case CmdList, CmdStatus:
		if len(st.Queued) == 0 {
			return workflow.Reply{Text: fmt.Sprintf("Step: %s\nThe queue is empty.", st.Step)}, st
		}
		return workflow.Reply{Text: fmt.Sprintf("Step: %s\n%d queued file(s):\n%s", st.Step, len(st.Queued), listFiles(st.Queued))}, st

	case CmdClear:
		next, err := w.machine.Fire(ctx, st.Step, evClear)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		if len(st.Queued) == 0 {
			return workflow.Corrective(workflow.ErrNothingToCancel, "The queue is already empty."), st
		}
		n := len(st.Queued)
		workflow.RemoveFiles(w.remover, st.Queued...)
		st = State{Step: next, Built: st.Built}
		return workflow.Reply{Text: fmt.Sprintf("Removed %d file(s) from the queue.", n)}, st

	case CmdCancel:
		if st.Step == StepCollecting {
			return workflow.Corrective(workflow.ErrNothingToCancel, "Nothing to cancel. Use /clear to empty the queue."), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evCancel)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		st.Step = next
		return workflow.Reply{Text: "Extraction cancelled. " + w.prompt(st)}, st
	}

	return workflow.Corrective(workflow.Invalid("command", ev.Command),
		fmt.Sprintf("Unknown command /%s. %s", cmd, w.prompt(st))), st
}

func (w *Workflow) zip(ctx context.Context, st State, name string) (workflow.Reply, State) {
	if !w.machine.Can(st.Step, evZip) {
		return workflow.Corrective(fmt.Errorf("%w: zip at %s", workflow.ErrIllegalTransition, st.Step),
			"Finish or /cancel the extraction first."), st
	}
	if len(st.Queued) == 0 {
		return workflow.Corrective(workflow.Invalid("queue", "queue is empty"), "Send some files before /zip."), st
	}
	if w.compressor == nil {
		return workflow.Corrective(&workflow.CollaboratorError{Collaborator: "compressor", Op: "compress", Err: errNoCompressor},
			"Compression is not available right now."), st
	}
	if name == "" {
		name = defaultZipName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".zip") {
		name += ".zip"
	}

	out, err := w.compressor.Compress(ctx, name, st.Queued)
	if err != nil {
		return workflow.Corrective(&workflow.CollaboratorError{Collaborator: "compressor", Op: "compress", Err: err},
			"Could not build the archive. Your queue is kept, try /zip again."), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evZip)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}

	result := Archive{File: out, Files: st.Queued}
	workflow.RemoveFiles(w.remover, st.Queued...)
	st = State{Step: next, Built: appendFile(st.Built, out)}

	return workflow.Reply{
		Text:    fmt.Sprintf("Created %s with %d file(s).", out.Name, len(result.Files)),
		Results: []workflow.Result{result},
	}, st
}

func (w *Workflow) prompt(st State) string {
	if st.Step == StepAwaitingArchive {
		return "Send the .zip file to extract."
	}
	return "Send files to queue them."
}

// appendFile copies before appending; stored state is shared with readers.
func appendFile(files []workflow.FileRef, f workflow.FileRef) []workflow.FileRef {
	out := make([]workflow.FileRef, len(files), len(files)+1)
	copy(out, files)
	return append(out, f)
}

func listFiles(files []workflow.FileRef) string {
	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == listPreviewSize {
			fmt.Fprintf(&b, "... and %d more", len(files)-listPreviewSize)
			break
		}
		b.WriteString("- " + f.Name)
	}
	return b.String()
}
