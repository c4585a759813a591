// Package hub runs the live half of the room core: the connection registry,
// the single event loop that orders every broadcast, and the join sync that
// reconciles durable state with live peers.
package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"codecast/internal/protocol"
	"codecast/internal/registry"
	"codecast/internal/repository"
	"codecast/internal/service"
)

// DefaultLivePullWait bounds how long a joining client waits for a live peer
// to answer its state pull before falling back to the durable snapshot alone.
const DefaultLivePullWait = 5 * time.Second

type messageKind int

const (
	msgRegister messageKind = iota
	msgUnregister
	msgFrame

	// Internal kinds posted back into the loop by hub goroutines. Routing
	// them through the same channel keeps all state mutation, including
	// every send on a client channel, single-threaded.
	msgDurableState
	msgLivePullTimeout
	msgPresenceUpdate
)

// hubMessage is the only thing that travels on the hub's internal channel.
type hubMessage struct {
	kind   messageKind
	client *Client
	raw    []byte

	// msgDurableState carries the encoded durable frames so the run loop
	// both delivers them and keeps them for the pull timeout fallback.
	pull *pendingPull

	// msgLivePullTimeout names the waiting connection.
	connID string

	// msgPresenceUpdate carries the refreshed global identity set.
	identities []string
}

// pendingPull tracks one joining connection waiting for a live peer answer.
type pendingPull struct {
	client *Client
	roomID string

	// Encoded durable frames, kept for the timeout fallback.
	files    []byte
	elements []byte
	history  []byte
	timer    *time.Timer
}

// Hub owns every live connection. All membership changes, broadcasts, and
// sync decisions happen on the Run goroutine; everything else posts messages.
type Hub struct {
	messageChan chan hubMessage

	// connID -> client, maintained only by the run loop.
	clients map[string]*Client

	// connID -> in-flight live pull, maintained only by the run loop.
	pulls map[string]*pendingPull

	reg      *registry.Registry
	presence repository.PresenceRepository

	syncService   *service.SyncService
	collabService *service.CollabService
	chatService   *service.ChatService

	livePullWait time.Duration
}

func NewHub(
	reg *registry.Registry,
	presence repository.PresenceRepository,
	syncService *service.SyncService,
	collabService *service.CollabService,
	chatService *service.ChatService,
	livePullWait time.Duration,
) *Hub {
	if reg == nil {
		panic("Registry cannot be nil for Hub")
	}
	if presence == nil {
		panic("PresenceRepository cannot be nil for Hub")
	}
	if syncService == nil || collabService == nil || chatService == nil {
		panic("services cannot be nil for Hub")
	}
	if livePullWait <= 0 {
		livePullWait = DefaultLivePullWait
	}
	return &Hub{
		messageChan:   make(chan hubMessage, 512),
		clients:       make(map[string]*Client),
		pulls:         make(map[string]*pendingPull),
		reg:           reg,
		presence:      presence,
		syncService:   syncService,
		collabService: collabService,
		chatService:   chatService,
		livePullWait:  livePullWait,
	}
}

// Run drives the hub's event loop. It must run in exactly one goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.kind {
		case msgRegister:
			h.registerClient(msg.client)
		case msgUnregister:
			h.unregisterClient(msg.client)
		case msgFrame:
			h.handleFrame(msg.client, msg.raw)
		case msgDurableState:
			h.deliverDurableState(msg.pull)
		case msgLivePullTimeout:
			h.finishPullByTimeout(msg.connID)
		case msgPresenceUpdate:
			h.broadcastPresence(msg.identities)
		default:
			log.Warnf("Received unknown message kind: %d", msg.kind)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage places a message on the hub channel without blocking. Returns
// false when the channel is full.
func (h *Hub) QueueMessage(msg hubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("kind", msg.kind).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Register hands a freshly upgraded connection to the run loop.
func (h *Hub) Register(client *Client) bool {
	return h.QueueMessage(hubMessage{kind: msgRegister, client: client})
}

// ActiveRoomIDs lists rooms with at least one live member.
func (h *Hub) ActiveRoomIDs() []string {
	return h.reg.ActiveRoomIDs()
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.clients[client.connID] = client
	logrus.WithFields(logrus.Fields{
		"conn_id":  client.connID,
		"username": client.username,
	}).Info("Client registered to hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	if _, ok := h.clients[client.connID]; !ok {
		return
	}
	delete(h.clients, client.connID)
	h.cancelPull(client.connID)

	affected := h.reg.Remove(client.connID)
	frame, err := protocol.Encode(protocol.EventDisconnected, protocol.DisconnectedPayload{
		ConnectionID: client.connID,
		Username:     client.username,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode disconnected event")
	} else {
		for _, roomID := range affected {
			h.broadcastRoom(roomID, frame, "")
		}
	}

	// The run loop is the only sender and the only closer, so a plain close
	// cannot race with a queue.
	close(client.send)

	logrus.WithFields(logrus.Fields{
		"conn_id":  client.connID,
		"username": client.username,
		"rooms":    len(affected),
	}).Info("Client unregistered from hub")

	go h.refreshPresenceAfterDisconnect(client.connID)
}

// handleFrame decodes one inbound frame and dispatches on its event name.
// Malformed payloads and unknown events are answered with an error event
// instead of being silently dropped.
func (h *Hub) handleFrame(client *Client, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		h.sendError(client, protocol.ErrCodeMalformed, err.Error())
		return
	}

	switch env.Event {
	case protocol.EventJoin:
		h.handleJoin(client, env.Payload)
	case protocol.EventUserOnline:
		h.handleUserOnline(client, env.Payload)
	case protocol.EventSyncRequest:
		h.handleSyncRequest(client, env.Payload, raw)
	case protocol.EventSyncCode:
		h.handleSyncCode(client, env.Payload, raw)
	case protocol.EventCodeChange:
		h.handleCodeChange(client, env.Payload, raw)
	case protocol.EventFileCreated, protocol.EventFileUpdated:
		h.handleFileUpsert(client, env.Event, env.Payload, raw)
	case protocol.EventFileRenamed:
		h.handleFileRenamed(client, env.Payload, raw)
	case protocol.EventFileDeleted:
		h.handleFileDeleted(client, env.Payload, raw)
	case protocol.EventElementUpdate:
		h.handleElementUpdate(client, env.Payload, raw)
	case protocol.EventWhiteboardClear:
		h.handleWhiteboardClear(client, env.Payload, raw)
	case protocol.EventCursorPosition:
		h.handleCursorPosition(client, env.Payload, raw)
	case protocol.EventSendMessage:
		h.handleSendMessage(client, env.Payload, raw)
	default:
		h.sendError(client, protocol.ErrCodeUnknownEvent, "unknown event: "+string(env.Event))
	}
}

// handleJoin runs the whole join protocol: membership upsert, joined
// broadcast to the full room, then durable-then-live state delivery.
func (h *Hub) handleJoin(client *Client, payload json.RawMessage) {
	var p protocol.JoinPayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	username := p.Username
	if username == "" {
		username = client.username
	}

	members := h.reg.Join(p.RoomID, client.connID, username)
	logrus.WithFields(logrus.Fields{
		"room_id":  p.RoomID,
		"conn_id":  client.connID,
		"username": username,
		"members":  len(members),
	}).Info("Client joined room")

	clients := make([]protocol.ClientInfo, 0, len(members))
	for _, m := range members {
		clients = append(clients, protocol.ClientInfo{ConnectionID: m.ConnID, Username: m.Username})
	}
	frame, err := protocol.Encode(protocol.EventJoined, protocol.JoinedPayload{
		Clients:      clients,
		Username:     username,
		ConnectionID: client.connID,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode joined event")
		return
	}
	// The joiner is included: the joined frame doubles as its membership ack.
	h.broadcastRoom(p.RoomID, frame, "")

	go h.loadDurableState(client, p.RoomID)
}

// loadDurableState reads the durable snapshot and chat backlog off the run
// loop, encodes the frames, and posts them back in. The run loop is the only
// goroutine allowed to touch a client's send channel, so delivery happens
// there after re-checking that the joiner is still registered.
func (h *Hub) loadDurableState(client *Client, roomID string) {
	ctx := context.Background()
	files, elements := h.syncService.LoadSnapshot(ctx, roomID)

	filesFrame, err := protocol.Encode(protocol.EventSyncCode, protocol.SyncCodePayload{Files: files})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode durable sync-code frame")
		return
	}
	elementsFrame, err := protocol.Encode(protocol.EventElementUpdate, protocol.ElementUpdatePayload{
		BoardID:  roomID,
		Elements: elements,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode durable element-update frame")
		return
	}
	historyFrame, err := protocol.Encode(protocol.EventChatHistory, protocol.ChatHistoryPayload{
		RoomID:   roomID,
		Messages: h.chatService.History(ctx, roomID),
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode chat-history frame")
		return
	}

	h.QueueMessage(hubMessage{kind: msgDurableState, pull: &pendingPull{
		client:   client,
		roomID:   roomID,
		files:    filesFrame,
		elements: elementsFrame,
		history:  historyFrame,
	}})
}

// deliverDurableState queues the durable snapshot and chat backlog onto the
// joining client, then starts the live pull. The send channel is FIFO, so
// every durable frame is on the wire queue before any live peer answer can
// be forwarded. A joiner that disconnected while the snapshot loaded is
// skipped; its channel is already closed.
func (h *Hub) deliverDurableState(pull *pendingPull) {
	if pull == nil || pull.client == nil {
		return
	}
	if _, stillHere := h.clients[pull.client.connID]; !stillHere {
		logrus.WithFields(logrus.Fields{
			"room_id": pull.roomID,
			"conn_id": pull.client.connID,
		}).Debug("Joiner left before durable snapshot delivery")
		return
	}

	pull.client.queue(pull.files)
	pull.client.queue(pull.elements)
	pull.client.queue(pull.history)

	logrus.WithFields(logrus.Fields{
		"room_id": pull.roomID,
		"conn_id": pull.client.connID,
	}).Debug("Durable snapshot delivered, starting live pull")

	h.startLivePull(pull)
}

// startLivePull asks the room's live peers for their current state. With no
// peer to ask, the durable snapshot already delivered is the whole answer.
func (h *Hub) startLivePull(pull *pendingPull) {
	connID := pull.client.connID

	peers := 0
	for _, m := range h.reg.Members(pull.roomID) {
		if m.ConnID != connID {
			peers++
		}
	}
	if peers == 0 {
		logrus.WithFields(logrus.Fields{"room_id": pull.roomID, "conn_id": connID}).Debug("No live peers, durable snapshot is authoritative")
		return
	}

	frame, err := protocol.Encode(protocol.EventSyncRequest, protocol.SyncRequestPayload{
		RoomID:       pull.roomID,
		ConnectionID: connID,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode sync-request frame")
		return
	}
	h.broadcastRoom(pull.roomID, frame, connID)

	pull.timer = time.AfterFunc(h.livePullWait, func() {
		h.QueueMessage(hubMessage{kind: msgLivePullTimeout, connID: connID})
	})
	h.pulls[connID] = pull

	logrus.WithFields(logrus.Fields{
		"room_id": pull.roomID,
		"conn_id": connID,
		"peers":   peers,
		"wait":    h.livePullWait,
	}).Debug("Live pull started")
}

// finishPullByTimeout re-issues the durable snapshot when no peer answered in
// time, so the client converges on durable state instead of hanging.
func (h *Hub) finishPullByTimeout(connID string) {
	pull, ok := h.pulls[connID]
	if !ok {
		return
	}
	delete(h.pulls, connID)

	logrus.WithFields(logrus.Fields{
		"room_id": pull.roomID,
		"conn_id": connID,
	}).Warn("Live pull timed out, falling back to durable snapshot")

	if _, stillHere := h.clients[connID]; !stillHere {
		return
	}
	pull.client.queue(pull.files)
	pull.client.queue(pull.elements)
}

func (h *Hub) cancelPull(connID string) {
	if pull, ok := h.pulls[connID]; ok {
		if pull.timer != nil {
			pull.timer.Stop()
		}
		delete(h.pulls, connID)
	}
}

// handleSyncRequest relays a client-initiated state pull to its room peers.
func (h *Hub) handleSyncRequest(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.SyncRequestPayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.RoomID, raw, client.connID)
}

// handleSyncCode forwards a peer's live state answer to the requesting
// connection and completes its pending pull.
func (h *Hub) handleSyncCode(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.SyncCodePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ConnectionID == "" {
		h.sendError(client, protocol.ErrCodeMalformed, "sync-code requires connectionId")
		return
	}

	target, ok := h.clients[p.ConnectionID]
	if !ok {
		// The requester left before the answer arrived.
		logrus.WithField("conn_id", p.ConnectionID).Debug("Sync-code target gone, dropping answer")
		return
	}
	target.queue(raw)

	if pull, pending := h.pulls[p.ConnectionID]; pending {
		if pull.timer != nil {
			pull.timer.Stop()
		}
		delete(h.pulls, p.ConnectionID)
		logrus.WithFields(logrus.Fields{
			"room_id": pull.roomID,
			"conn_id": p.ConnectionID,
			"from":    client.connID,
		}).Debug("Live pull answered by peer")
	}
}

func (h *Hub) handleCodeChange(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.CodeChangePayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.RoomID, raw, client.connID)
	h.collabService.PersistCodeChange(p)
}

func (h *Hub) handleFileUpsert(client *Client, event protocol.Event, payload json.RawMessage, raw []byte) {
	var p protocol.FilePayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.RoomID, raw, client.connID)
	if event == protocol.EventFileCreated {
		h.collabService.PersistFileCreated(p)
	} else {
		h.collabService.PersistFileUpdated(p)
	}
}

func (h *Hub) handleFileRenamed(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.FileRenamedPayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.RoomID, raw, client.connID)
	h.collabService.PersistFileRenamed(p)
}

func (h *Hub) handleFileDeleted(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.FileDeletedPayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.RoomID, raw, client.connID)
	h.collabService.PersistFileDeleted(p)
}

// handleElementUpdate relays the sender's full element collection and queues
// a wholesale durable replace. Last collection received wins.
func (h *Hub) handleElementUpdate(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.ElementUpdatePayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.BoardID, raw, client.connID)
	h.collabService.PersistWhiteboard(p)
}

// handleWhiteboardClear is broadcast-only. The durable collection is replaced
// by the element-update that follows every clear on the client side.
func (h *Hub) handleWhiteboardClear(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.WhiteboardClearPayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.BoardID, raw, client.connID)
}

// handleCursorPosition relays and never persists.
func (h *Hub) handleCursorPosition(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.CursorPositionPayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	h.broadcastRoom(p.BoardID, raw, client.connID)
}

// handleSendMessage broadcasts to every room member including the sender, so
// all members observe the same receive order, then persists best-effort.
func (h *Hub) handleSendMessage(client *Client, payload json.RawMessage, raw []byte) {
	var p protocol.SendMessagePayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	frame, err := protocol.Encode(protocol.EventReceiveMessage, protocol.ReceiveMessagePayload{
		Username: p.Username,
		Message:  p.Message,
		Time:     p.Time,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode receive-message event")
		return
	}
	h.broadcastRoom(p.RoomID, frame, "")
	h.chatService.Persist(p)
}

// handleUserOnline registers the identity in the shared presence store and
// triggers a global roster broadcast once the store answers.
func (h *Hub) handleUserOnline(client *Client, payload json.RawMessage) {
	var p protocol.UserOnlinePayload
	if !h.decodePayload(client, payload, &p) {
		return
	}
	go func() {
		ctx := context.Background()
		if err := h.presence.SetOnline(ctx, p.UserID, client.connID); err != nil {
			logrus.WithError(err).WithField("user_id", p.UserID).Error("Failed to register identity in presence store")
			return
		}
		h.postPresenceUpdate(ctx)
	}()
}

func (h *Hub) refreshPresenceAfterDisconnect(connID string) {
	ctx := context.Background()
	identity, removed, err := h.presence.RemoveByConn(ctx, connID)
	if err != nil {
		logrus.WithError(err).WithField("conn_id", connID).Error("Failed to remove connection from presence store")
		return
	}
	if !removed {
		return
	}
	logrus.WithFields(logrus.Fields{"conn_id": connID, "user_id": identity}).Debug("Identity removed from presence store")
	h.postPresenceUpdate(ctx)
}

func (h *Hub) postPresenceUpdate(ctx context.Context) {
	identities, err := h.presence.ListOnline(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list online identities")
		return
	}
	h.QueueMessage(hubMessage{kind: msgPresenceUpdate, identities: identities})
}

// broadcastPresence pushes the global roster to every connection.
func (h *Hub) broadcastPresence(identities []string) {
	frame, err := protocol.Encode(protocol.EventOnlineUsersUpdate, identities)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode online-users-update event")
		return
	}
	for _, client := range h.clients {
		client.queue(frame)
	}
}

// broadcastRoom fans a frame out to the room's members. A non-empty
// exceptConnID excludes that connection; a room with no members is a no-op.
func (h *Hub) broadcastRoom(roomID string, frame []byte, exceptConnID string) {
	members := h.reg.Members(roomID)
	for _, m := range members {
		if m.ConnID == exceptConnID {
			continue
		}
		if client, ok := h.clients[m.ConnID]; ok {
			client.queue(frame)
		}
	}
}

// decodePayload unmarshals and validates an event payload, answering the
// sender with an error event when either step fails.
func (h *Hub) decodePayload(client *Client, payload json.RawMessage, out interface{ Validate() error }) bool {
	if err := json.Unmarshal(payload, out); err != nil {
		h.sendError(client, protocol.ErrCodeMalformed, "invalid payload: "+err.Error())
		return false
	}
	if err := out.Validate(); err != nil {
		h.sendError(client, protocol.ErrCodeMalformed, err.Error())
		return false
	}
	return true
}

func (h *Hub) sendError(client *Client, code, message string) {
	logrus.WithFields(logrus.Fields{
		"conn_id": client.connID,
		"code":    code,
	}).Warn("Rejecting client frame: " + message)
	frame, err := protocol.Encode(protocol.EventError, protocol.ErrorPayload{Code: code, Message: message})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode error event")
		return
	}
	client.queue(frame)
}
