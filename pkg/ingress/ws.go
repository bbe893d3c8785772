package ingress

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"nhooyr.io/websocket"

	"github.com/periscope-sim/periscope/pkg/agent"
	"github.com/periscope-sim/periscope/pkg/controls"
	"github.com/periscope-sim/periscope/pkg/locomotion"
	"github.com/periscope-sim/periscope/pkg/scene"
	"github.com/periscope-sim/periscope/pkg/utils"
)

const CLIENT_MESSAGE_LIMIT = 256

// Simulation is what the ingress drives.
type Simulation interface {
	Attach(identity agent.Identity, position, scale mgl32.Vec3) (agent.Handle, error)
	Detach(id uuid.UUID) error
	Submit(event controls.Event) bool
	Size() float32
	Master() uuid.UUID
}

type WSClient struct {
	host      string
	send      chan []byte
	closeSlow func()

	// Agents attached through this connection, detached when it closes.
	agents map[uuid.UUID]struct{}
}

func NewWSClient(host string) *WSClient {
	return &WSClient{
		host:   host,
		send:   make(chan []byte, CLIENT_MESSAGE_LIMIT),
		agents: make(map[uuid.UUID]struct{}),
	}
}

func (c *WSClient) Reference() string {
	return fmt.Sprintf("ws:%s", c.host)
}

// WSIngress carries control events from websocket clients into a simulation
// and broadcasts scene updates back to them. Messages are CBOR encoded.
type WSIngress struct {
	simulation Simulation
	clients    map[*WSClient]struct{}
	mutex      deadlock.Mutex
	httpServer *http.Server
}

func NewWSIngress(simulation Simulation) *WSIngress {
	return &WSIngress{
		simulation: simulation,
		clients:    make(map[*WSClient]struct{}),
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, msg)
}

func (server *WSIngress) AddClient(client *WSClient) {
	server.mutex.Lock()
	server.clients[client] = struct{}{}
	server.mutex.Unlock()
}

func (server *WSIngress) RemoveClient(client *WSClient) {
	server.mutex.Lock()
	delete(server.clients, client)
	server.mutex.Unlock()
}

func (server *WSIngress) NumClients() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return len(server.clients)
}

func (server *WSIngress) HandleClient(ctx context.Context, c *websocket.Conn, host string) error {
	client := NewWSClient(host)
	client.closeSlow = func() {
		c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
	}

	logger := log.With().Str("client", client.Reference()).Logger()
	logger.Info().Msg("client joined")

	defer server.detachAll(client, logger)

	connected, err := cbor.Marshal(ConnectedMessage{
		Op:         ConnectedOp,
		RegionSize: server.simulation.Size(),
		Master:     server.simulation.Master().String(),
	})
	if err != nil {
		return err
	}
	client.send <- connected

	server.AddClient(client)
	defer server.RemoveClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	receive := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		for {
			typ, message, err := c.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}

			select {
			case receive <- message:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case msg := <-receive:
			server.handleMessage(client, msg, logger)
		case msg := <-client.send:
			err := WriteTimeout(ctx, time.Second*5, c, msg)
			if err != nil {
				logger.Error().Msg("client missed write timeout; disconnecting")
				return err
			}
		case err := <-readErr:
			logger.Info().Msg("client left")
			return err
		case <-ctx.Done():
			logger.Info().Msg("client left")
			return ctx.Err()
		}
	}
}

func (server *WSIngress) detachAll(client *WSClient, logger zerolog.Logger) {
	for id := range client.agents {
		err := server.simulation.Detach(id)
		if err != nil && !errors.Is(err, agent.ErrNotFound) {
			logger.Warn().Err(err).Str("agent", id.String()).Msg("could not detach agent")
		}
	}
}

func (server *WSIngress) respond(client *WSClient, id int, err error) {
	response := ResponseMessage{
		Op:      ResponseOp,
		Id:      id,
		Success: err == nil,
	}
	if err != nil {
		response.Response = err.Error()
	}

	bytes, _ := cbor.Marshal(response)
	select {
	case client.send <- bytes:
	default:
	}
}

func (server *WSIngress) handleMessage(client *WSClient, msg []byte, logger zerolog.Logger) {
	var generic GenericMessage
	if err := cbor.Unmarshal(msg, &generic); err != nil {
		logger.Debug().Err(err).Msg("malformed message")
		return
	}

	switch generic.Op {
	case AttachOp:
		var attach AttachMessage
		if err := cbor.Unmarshal(msg, &attach); err != nil {
			logger.Debug().Err(err).Msg("malformed attach")
			return
		}

		id, err := server.attach(attach)
		if err == nil {
			client.agents[id] = struct{}{}
		}
		server.respond(client, attach.Id, err)
	case DetachOp:
		var detach DetachMessage
		if err := cbor.Unmarshal(msg, &detach); err != nil {
			logger.Debug().Err(err).Msg("malformed detach")
			return
		}

		id, err := uuid.Parse(detach.Agent)
		if err == nil {
			if _, ok := client.agents[id]; !ok {
				err = fmt.Errorf("agent %s was not attached by this connection", id)
			} else {
				err = server.simulation.Detach(id)
				delete(client.agents, id)
			}
		}
		server.respond(client, detach.Id, err)
	case AgentUpdateOp:
		var update AgentUpdateMessage
		if err := cbor.Unmarshal(msg, &update); err != nil {
			logger.Debug().Err(err).Msg("malformed agent update")
			return
		}

		id, err := uuid.Parse(update.Agent)
		if err != nil {
			logger.Debug().Err(err).Msg("agent update with invalid id")
			return
		}

		server.simulation.Submit(controls.AgentUpdate{
			AgentID:      id,
			BodyRotation: quat(update.Rotation),
			ControlFlags: update.ControlFlags,
			State:        update.State,
			Flags:        update.Flags,
		})
	case AlwaysRunOp:
		var run AlwaysRunMessage
		if err := cbor.Unmarshal(msg, &run); err != nil {
			logger.Debug().Err(err).Msg("malformed always run")
			return
		}

		id, err := uuid.Parse(run.Agent)
		if err != nil {
			logger.Debug().Err(err).Msg("always run with invalid id")
			return
		}

		server.simulation.Submit(controls.SetAlwaysRun{
			AgentID:   id,
			AlwaysRun: run.AlwaysRun,
		})
	default:
		logger.Debug().Int("op", generic.Op).Msg("unknown op")
	}
}

func (server *WSIngress) attach(msg AttachMessage) (uuid.UUID, error) {
	id, err := uuid.Parse(msg.Agent)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid agent id: %w", err)
	}

	session := uuid.Nil
	if msg.Session != "" {
		session, err = uuid.Parse(msg.Session)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session id: %w", err)
		}
	}

	_, err = server.simulation.Attach(
		agent.Identity{ID: id, Session: session},
		mgl32.Vec3(msg.Position),
		mgl32.Vec3(msg.Scale),
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func quat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{
		W: v[3],
		V: mgl32.Vec3{v[0], v[1], v[2]},
	}
}

func quatArray(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

func (server *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})

	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault during relay")

	hostname := r.RemoteAddr

	original, ok := r.Header["X-Forwarded-For"]
	if ok {
		hostname = original[0]
	}

	err = server.HandleClient(r.Context(), c, hostname)
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to close client port")
		return
	}
}

func (server *WSIngress) Broadcast(msg []byte) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	for client := range server.clients {
		select {
		case client.send <- msg:
		default:
			go client.closeSlow()
		}
	}
}

// Watch broadcasts scene updates to every client until ctx is done.
func (server *WSIngress) Watch(ctx context.Context, animations *utils.Subscriber[scene.AnimationUpdate], objects *utils.Subscriber[scene.ObjectUpdate]) {
	defer animations.Done()
	defer objects.Done()

	for {
		var (
			bytes []byte
			err   error
		)

		select {
		case <-ctx.Done():
			return
		case update := <-animations.Recv():
			bytes, err = cbor.Marshal(AnimationMessage{
				Op:        AnimationOp,
				Agent:     update.Agent.String(),
				Animation: update.Animation.String(),
				Name:      locomotion.AnimationName(update.Animation),
			})
		case update := <-objects.Recv():
			object := update.Object
			bytes, err = cbor.Marshal(ObjectMessage{
				Op:           ObjectOp,
				ID:           object.ID.String(),
				Flags:        uint8(update.Flags),
				Position:     object.Position,
				Rotation:     quatArray(object.Rotation),
				Velocity:     object.Velocity,
				Acceleration: object.Acceleration,
				Scale:        object.Scale,
			})
		}

		if err != nil {
			log.Error().Err(err).Msg("could not encode scene update")
			continue
		}

		server.Broadcast(bytes)
	}
}

func (server *WSIngress) Serve(ctx context.Context, port int) error {
	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Error().Err(err).Msg("failed to bind WebSocket port")
		return err
	}

	log.Info().Msgf("listening on http://%v", listen.Addr())

	server.mutex.Lock()
	server.httpServer = &http.Server{
		Handler: server,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	httpServer := server.httpServer
	server.mutex.Unlock()

	err = httpServer.Serve(listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (server *WSIngress) Shutdown(ctx context.Context) {
	server.mutex.Lock()
	httpServer := server.httpServer
	server.mutex.Unlock()

	if httpServer != nil {
		httpServer.Shutdown(ctx)
	}
}
