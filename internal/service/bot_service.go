package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"geoassist-be/internal/dto"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/mode"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"
)

const (
	cmdExit = "exit"
	cmdMode = "mode"
	cmdHelp = "help"
	// /start doubles as the chat client's greeting when no mode is active
	cmdStart = "start"
)

var modeDescriptions = map[store.Mode]string{
	store.ModeLocation: "measure distance and travel time between two points",
	store.ModeWorkbook: "record labelled locations",
	store.ModeArchive:  "zip, unzip and search files",
	store.ModeGeotags:  "attach locations to photos",
	store.ModeKML:      "draw lines and export KML",
	store.ModeOCR:      "read text from images",
}

type IBotService interface {
	HandleRequest(ctx context.Context, req *dto.BotEventRequest) (*dto.BotReplyResponse, error)
	HandleEvent(ctx context.Context, userID string, ev workflow.Event) (*dto.BotReplyResponse, error)
	Session(userID string) *dto.SessionResponse
	Exit(ctx context.Context, userID string) (*dto.BotReplyResponse, error)
}

// botService routes classified chat updates: global commands are answered
// here, everything else goes to the user's active mode through the manager.
type botService struct {
	manager *mode.Manager
	sender  workflow.Sender
	logger  logger.ILogger

	entries map[string]store.Mode // "/kml" -> KML
	owners  map[string]store.Mode // mode-scoped command -> owning mode
}

func NewBotService(manager *mode.Manager, sender workflow.Sender, log logger.ILogger) IBotService {
	s := &botService{
		manager: manager,
		sender:  sender,
		logger:  log,
		entries: make(map[string]store.Mode),
		owners:  make(map[string]store.Mode),
	}

	shared := make(map[string]bool)
	for _, m := range manager.RegisteredModes() {
		s.entries[strings.ToLower(string(m))] = m

		wf, _ := manager.Workflow(m)
		cs, ok := wf.(workflow.CommandSet)
		if !ok {
			continue
		}
		for _, c := range cs.Commands() {
			c = workflow.NormalizeCommand(c)
			if owner, taken := s.owners[c]; taken && owner != m {
				shared[c] = true
				continue
			}
			s.owners[c] = m
		}
	}
	// commands claimed by several modes always go to the active one
	for c := range shared {
		delete(s.owners, c)
	}
	return s
}

func (s *botService) HandleRequest(ctx context.Context, req *dto.BotEventRequest) (*dto.BotReplyResponse, error) {
	ev, err := eventFromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.HandleEvent(ctx, req.UserId, ev)
}

func eventFromRequest(req *dto.BotEventRequest) (workflow.Event, error) {
	var ev workflow.Event
	switch workflow.EventKind(req.Kind) {
	case workflow.EventText:
		ev = workflow.Text(req.Text)
	case workflow.EventCommand:
		ev = workflow.Command(req.Command, req.Args)
	case workflow.EventLocation:
		if req.Latitude == nil || req.Longitude == nil {
			return ev, workflow.Invalid("location", "latitude and longitude are required")
		}
		ev = workflow.Location(geo.NewPoint(*req.Latitude, *req.Longitude))
	case workflow.EventFile:
		if req.File == nil {
			return ev, workflow.Invalid("file", "file is required")
		}
		ev = workflow.File(workflow.FileRef{
			ID:       req.File.Id,
			Name:     req.File.Name,
			Path:     req.File.Path,
			MimeType: req.File.MimeType,
			Size:     req.File.Size,
		})
	default:
		return ev, workflow.Invalid("kind", fmt.Sprintf("unsupported event kind %q", req.Kind))
	}
	return ev, nil
}

func (s *botService) HandleEvent(ctx context.Context, userID string, ev workflow.Event) (*dto.BotReplyResponse, error) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}

	var (
		reply workflow.Reply
		err   error
	)
	if cmd := ev.CommandName(); cmd != "" {
		reply, err = s.handleCommand(ctx, userID, cmd, ev)
	} else {
		reply, err = s.route(ctx, userID, s.manager.CurrentMode(userID), ev)
	}
	if err != nil {
		return nil, err
	}

	return s.deliver(ctx, userID, reply), nil
}

func (s *botService) handleCommand(ctx context.Context, userID, cmd string, ev workflow.Event) (workflow.Reply, error) {
	current := s.manager.CurrentMode(userID)

	if target, ok := s.entries[cmd]; ok {
		return s.enter(ctx, userID, current, target)
	}

	switch cmd {
	case cmdExit:
		return s.exit(ctx, userID)
	case cmdMode:
		return workflow.Reply{Text: s.describe(userID)}, nil
	case cmdHelp:
		return s.help(), nil
	case cmdStart:
		if current == store.ModeNone {
			return s.help(), nil
		}
	}

	if owner, ok := s.owners[cmd]; ok && owner != current {
		// dispatching to the owner yields the mismatch guidance
		return s.route(ctx, userID, owner, ev)
	}
	return s.route(ctx, userID, current, ev)
}

func (s *botService) enter(ctx context.Context, userID string, current, target store.Mode) (workflow.Reply, error) {
	if _, err := s.manager.EnterMode(ctx, userID, target); err != nil {
		return workflow.Reply{}, err
	}
	wf, _ := s.manager.Workflow(target)

	text := wf.Intro()
	if current == target {
		text = fmt.Sprintf("You are already in %s mode.\n%s", strings.ToLower(string(target)), text)
	}
	return workflow.Reply{Text: text, Keyboard: s.keyboard(target)}, nil
}

func (s *botService) keyboard(m store.Mode) []string {
	var keys []string
	if wf, ok := s.manager.Workflow(m); ok {
		if cs, ok := wf.(workflow.CommandSet); ok {
			for _, c := range cs.Commands() {
				keys = append(keys, "/"+c)
			}
		}
	}
	return append(keys, "/cancel", "/exit")
}

// route dispatches ev to target and turns mode errors into guidance.
func (s *botService) route(ctx context.Context, userID string, target store.Mode, ev workflow.Event) (workflow.Reply, error) {
	if target == store.ModeNone {
		stale, ok := s.manager.StaleSession(userID)
		if !ok {
			return s.idle(), nil
		}
		// reports the timeout and drops the leftover state
		target = stale.CurrentMode
	}

	reply, err := s.manager.Dispatch(ctx, userID, target, ev)
	var mismatch *mode.ModeMismatchError
	if errors.As(err, &mismatch) {
		if mismatch.Current == store.ModeNone && !mismatch.Expired && ev.CommandName() == "" {
			return s.idle(), nil
		}
		return workflow.Reply{Text: mismatch.Guidance(), Err: err}, nil
	}
	if err != nil {
		return workflow.Reply{}, err
	}
	return reply, nil
}

func (s *botService) idle() workflow.Reply {
	r := s.help()
	r.Text = "No mode is active.\n" + r.Text
	r.Err = &mode.ModeMismatchError{Current: store.ModeNone}
	return r
}

func (s *botService) help() workflow.Reply {
	var b strings.Builder
	b.WriteString("Pick a mode:")
	keys := make([]string, 0, len(s.entries))
	for _, m := range s.manager.RegisteredModes() {
		cmd := mode.EntryCommand(m)
		keys = append(keys, cmd)
		fmt.Fprintf(&b, "\n%s - %s", cmd, modeDescriptions[m])
	}
	b.WriteString("\n/mode shows the active mode, /exit leaves it.")
	return workflow.Reply{Text: b.String(), Keyboard: keys}
}

func (s *botService) describe(userID string) string {
	sess, ok := s.manager.Session(userID)
	if !ok {
		return "No mode is active."
	}
	text := fmt.Sprintf("Active mode: %s", strings.ToLower(string(sess.CurrentMode)))
	if step, ok := s.step(userID, sess.CurrentMode); ok {
		text += fmt.Sprintf(" (%s)", strings.ToLower(strings.ReplaceAll(string(step), "_", " ")))
	}
	return text
}

func (s *botService) step(userID string, m store.Mode) (workflow.Step, bool) {
	wf, ok := s.manager.Workflow(m)
	if !ok {
		return "", false
	}
	in, ok := wf.(workflow.Inspector)
	if !ok {
		return "", false
	}
	return in.Step(userID)
}

func (s *botService) exit(ctx context.Context, userID string) (workflow.Reply, error) {
	current := s.manager.CurrentMode(userID)
	if _, err := s.manager.ExitToNone(ctx, userID); err != nil {
		return workflow.Reply{}, err
	}
	if current == store.ModeNone {
		return workflow.Reply{Text: "No mode is active.", Err: workflow.ErrNothingToCancel}, nil
	}
	return workflow.Reply{
		Text:     fmt.Sprintf("Left %s mode.", strings.ToLower(string(current))),
		Keyboard: s.help().Keyboard,
	}, nil
}

func (s *botService) Exit(ctx context.Context, userID string) (*dto.BotReplyResponse, error) {
	reply, err := s.exit(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, userID, reply), nil
}

// deliver sends the reply once; a transport failure is logged and the
// reply is still returned to the caller.
func (s *botService) deliver(ctx context.Context, userID string, reply workflow.Reply) *dto.BotReplyResponse {
	if s.sender != nil {
		if err := s.sender.Send(ctx, userID, reply.Text, reply.Keyboard); err != nil {
			s.logger.Warn("BOT", "Failed to send reply", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	res := &dto.BotReplyResponse{
		UserId:   userID,
		Mode:     s.manager.CurrentMode(userID).String(),
		Text:     reply.Text,
		Keyboard: reply.Keyboard,
		Rejected: reply.Rejected(),
	}
	for _, r := range reply.Results {
		res.Results = append(res.Results, r.ResultType())
	}
	return res
}

func (s *botService) Session(userID string) *dto.SessionResponse {
	sess, ok := s.manager.Session(userID)
	if !ok {
		return &dto.SessionResponse{UserId: userID, CurrentMode: store.ModeNone.String()}
	}

	res := &dto.SessionResponse{
		UserId:       userID,
		CurrentMode:  sess.CurrentMode.String(),
		PreviousMode: sess.PreviousMode.String(),
	}
	if step, ok := s.step(userID, sess.CurrentMode); ok {
		res.Step = string(step)
	}
	entered, active := sess.EnteredAt, sess.LastActivityAt
	expires := active.Add(s.manager.TTL(sess.CurrentMode))
	res.EnteredAt, res.LastActivityAt, res.ExpiresAt = &entered, &active, &expires
	return res
}
