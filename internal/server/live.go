package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/pipeline"
	"github.com/matzehuels/kinship/pkg/reveal"
	"github.com/matzehuels/kinship/pkg/telemetry"
)

const (
	maxMessageSize = 4 << 10
	writeWait      = 5 * time.Second
	minFPS         = 1
	maxFPS         = 240
)

// Command types accepted on a live socket.
const (
	CmdPreset  = "preset"
	CmdCluster = "cluster"
	CmdFPS     = "fps"
	CmdMode    = "mode"
	CmdPick    = "pick"
)

// Message types sent on a live socket.
const (
	MsgHello  = "hello"
	MsgFrame  = "frame"
	MsgCamera = "camera"
	MsgFPS    = "fps"
	MsgPicked = "picked"
	MsgError  = "error"
)

// Command is a client → server message.
type Command struct {
	Type    string            `json:"type"`
	Preset  *telemetry.Preset `json:"preset,omitempty"`
	Cluster string            `json:"cluster,omitempty"`
	FPS     int               `json:"fps,omitempty"`
	Mode    string            `json:"mode,omitempty"`
	Name    string            `json:"name,omitempty"`
}

// Message is a server → client message. Only the fields of its Type are set.
type Message struct {
	Type    string                 `json:"type"`
	Session string                 `json:"session,omitempty"`
	Mode    layout.Mode            `json:"mode,omitempty"`
	Cluster string                 `json:"cluster,omitempty"`
	Frame   *Frame                 `json:"frame,omitempty"`
	Camera  *telemetry.CameraState `json:"camera,omitempty"`
	FPS     float32                `json:"fps,omitempty"`
	Name    string                 `json:"name,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Frame is one tick of the reveal engine.
type Frame struct {
	Time    float32            `json:"t"`
	Field   float32            `json:"field"`
	Settled bool               `json:"settled"`
	Nodes   []reveal.NodeState `json:"nodes"`
	Edges   []reveal.EdgeState `json:"edges"`
}

func errorMessage(err error) Message {
	return Message{Type: MsgError, Error: kerrors.UserMessage(err)}
}

// liveSession owns one engine. Only the session's run loop touches it.
type liveSession struct {
	id      string
	srv     *Server
	g       lineage.Graph
	rec     *lineage.Record
	opts    pipeline.Options
	engine  *reveal.Engine
	camera  telemetry.Camera
	tracker *telemetry.CameraTracker
	sampler *telemetry.FPSSampler
	fps     int
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	g, rec, err := s.graph(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fps := s.settings.Server.FPS
	if v := r.URL.Query().Get("fps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minFPS || n > maxFPS {
			s.writeError(w, r, kerrors.New(kerrors.ErrCodeInvalidInput, "fps must be between %d and %d", minFPS, maxFPS))
			return
		}
		fps = n
	}
	if fps < minFPS || fps > maxFPS {
		fps = 30
	}

	sess := &liveSession{
		id:   uuid.NewString(),
		srv:  s,
		g:    g,
		rec:  rec,
		opts: opts,
		engine: reveal.NewEngine(reveal.Options{
			LongCycle: s.settings.Reveal.LongCycle,
			NodeSize:  s.settings.Reveal.NodeSize,
		}),
		tracker: telemetry.NewCameraTracker(nil),
		sampler: telemetry.NewFPSSampler(nil),
		fps:     fps,
	}
	l, err := sess.load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		return
	}
	defer conn.Close()

	s.logger.Info("live session started", "session", sess.id, "record", chiID(r), "mode", opts.Mode, "fps", fps)
	sess.resetCamera(l)
	err = sess.run(r.Context(), conn)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
		!errors.Is(err, context.Canceled) {
		s.logger.Warn("live session ended", "session", sess.id, "err", err)
		return
	}
	s.logger.Info("live session ended", "session", sess.id)
}

// load computes the layout for the session options and hands it to the
// engine. Loading a ring cluster with a new id supersedes the running
// reveal sequence.
func (ls *liveSession) load(ctx context.Context) (graph.Layout, error) {
	l, err := ls.srv.runner.ComputeLayout(ctx, ls.g, ls.rec, ls.opts)
	if err != nil {
		return graph.Layout{}, err
	}
	if err := pipeline.Load(ls.engine, l); err != nil {
		return graph.Layout{}, err
	}
	if ls.srv.aspects != nil {
		if err := ls.srv.aspects.Resolve(ctx, ls.engine); err != nil {
			return graph.Layout{}, err
		}
	}
	ls.engine.ResolveAll()
	return l, nil
}

// resetCamera frames the layout: phylogeny layouts carry their own camera,
// the animated modes get a fixed three-quarter view.
func (ls *liveSession) resetCamera(l graph.Layout) {
	state := telemetry.CameraState{Position: geom.V(0, 8, 42), Target: geom.V(0, 0, 0)}
	if l.Phylogeny != nil && l.Phylogeny.Camera != nil {
		state = telemetry.CameraState{
			Position: l.Phylogeny.Camera.Position.Vec3(),
			Target:   l.Phylogeny.Camera.Target.Vec3(),
		}
	}
	telemetry.ApplyPreset(&ls.camera, state)
}

func (ls *liveSession) interval() time.Duration {
	return time.Second / time.Duration(ls.fps)
}

func (ls *liveSession) hello() Message {
	return Message{Type: MsgHello, Session: ls.id, Mode: ls.opts.Mode, Cluster: ls.opts.ClusterID, FPS: float32(ls.fps)}
}

// tick advances the engine by dt seconds and returns the messages to send:
// always a frame, plus telemetry when it changed.
func (ls *liveSession) tick(dt float32) []Message {
	ls.engine.Step(dt)
	e := ls.engine
	out := []Message{{
		Type: MsgFrame,
		Frame: &Frame{
			Time:    e.Time(),
			Field:   e.Field(),
			Settled: e.Settled(),
			Nodes:   e.Nodes(),
			Edges:   e.Edges(),
		},
	}}
	if fps, ok := ls.sampler.Sample(dt); ok {
		out = append(out, Message{Type: MsgFPS, FPS: fps})
	}
	out = append(out, ls.observeCamera()...)
	return out
}

func (ls *liveSession) observeCamera() []Message {
	if !ls.tracker.Observe(ls.camera.State) {
		return nil
	}
	state := ls.camera.State
	return []Message{{Type: MsgCamera, Camera: &state}}
}

// handle applies a command. It returns the replies and whether the tick rate
// changed.
func (ls *liveSession) handle(ctx context.Context, cmd Command) ([]Message, bool) {
	switch cmd.Type {
	case CmdPreset:
		if cmd.Preset == nil {
			return []Message{errorMessage(kerrors.New(kerrors.ErrCodeInvalidInput, "preset requires position and target"))}, false
		}
		telemetry.ApplyPreset(&ls.camera, *cmd.Preset)
		return ls.observeCamera(), false

	case CmdFPS:
		if cmd.FPS < minFPS || cmd.FPS > maxFPS {
			return []Message{errorMessage(kerrors.New(kerrors.ErrCodeInvalidInput, "fps must be between %d and %d", minFPS, maxFPS))}, false
		}
		ls.fps = cmd.FPS
		return nil, true

	case CmdCluster:
		if ls.opts.Mode != layout.ModeRing {
			return []Message{errorMessage(kerrors.New(kerrors.ErrCodeUnsupported, "cluster selection needs ring mode"))}, false
		}
		if cmd.Cluster == "" || cmd.Cluster == ls.opts.ClusterID {
			return nil, false
		}
		prev := ls.opts.ClusterID
		ls.opts.ClusterID = cmd.Cluster
		if _, err := ls.load(ctx); err != nil {
			ls.opts.ClusterID = prev
			return []Message{errorMessage(err)}, false
		}
		return []Message{ls.hello()}, false

	case CmdMode:
		m, err := layout.ParseMode(cmd.Mode)
		if err != nil {
			return []Message{errorMessage(kerrors.Wrap(kerrors.ErrCodeInvalidMode, err, "invalid mode %q", cmd.Mode))}, false
		}
		if m == ls.opts.Mode {
			return nil, false
		}
		prev := ls.opts.Mode
		ls.opts.Mode = m
		l, err := ls.load(ctx)
		if err != nil {
			ls.opts.Mode = prev
			return []Message{errorMessage(err)}, false
		}
		ls.resetCamera(l)
		return append([]Message{ls.hello()}, ls.observeCamera()...), false

	case CmdPick:
		if !ls.engine.Pick(cmd.Name) {
			return []Message{errorMessage(kerrors.New(kerrors.ErrCodeNotFound, "%q is not a visible node", cmd.Name))}, false
		}
		return []Message{{Type: MsgPicked, Name: cmd.Name}}, false
	}
	if cmd.Type == "" {
		return []Message{errorMessage(kerrors.New(kerrors.ErrCodeInvalidInput, "message has no command type"))}, false
	}
	return []Message{errorMessage(kerrors.New(kerrors.ErrCodeInvalidInput, "unknown command %q", cmd.Type))}, false
}

// run drives the session until the client goes away. A reader goroutine
// decodes commands; everything else happens on this goroutine.
func (ls *liveSession) run(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmds := make(chan Command, 8)
	readErr := make(chan error, 1)
	conn.SetReadLimit(maxMessageSize)
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var cmd Command
			if err := json.Unmarshal(data, &cmd); err != nil {
				cmd = Command{}
			}
			select {
			case cmds <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	write := func(msgs ...Message) error {
		for _, m := range msgs {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(append([]Message{ls.hello()}, ls.observeCamera()...)...); err != nil {
		return err
	}

	ticker := time.NewTicker(ls.interval())
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			select {
			case err := <-readErr:
				return err
			default:
				return ctx.Err()
			}
		case cmd := <-cmds:
			msgs, retime := ls.handle(ctx, cmd)
			if retime {
				ticker.Reset(ls.interval())
			}
			if err := write(msgs...); err != nil {
				return err
			}
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if err := write(ls.tick(dt)...); err != nil {
				return err
			}
		}
	}
}
