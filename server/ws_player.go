package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"soundwave/cache"
	"soundwave/core/auth"
	"soundwave/core/player"
	"soundwave/logger"
	"soundwave/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PlayerMessageType identifies a playback session message.
type PlayerMessageType string

const (
	// Commands from the client.
	MsgTypeSelect PlayerMessageType = "select" // select a track and playlist
	MsgTypeToggle PlayerMessageType = "toggle" // toggle play/pause
	MsgTypeSeek   PlayerMessageType = "seek"   // seek to a position
	MsgTypeVolume PlayerMessageType = "volume" // set volume
	MsgTypeNext   PlayerMessageType = "next"   // next track
	MsgTypePrev   PlayerMessageType = "prev"   // previous track

	// Media element events reported by the client.
	MsgTypeLoadedMetadata PlayerMessageType = "loadedmetadata"
	MsgTypeTimeUpdate     PlayerMessageType = "timeupdate"
	MsgTypeEnded          PlayerMessageType = "ended"
	MsgTypeMediaError     PlayerMessageType = "error"

	// Transport commands pushed to the client's audio element.
	MsgTypeLoad      PlayerMessageType = "load"
	MsgTypePlay      PlayerMessageType = "play"
	MsgTypePause     PlayerMessageType = "pause"
	MsgTypeSeekTo    PlayerMessageType = "seek_to"
	MsgTypeSetVolume PlayerMessageType = "set_volume"
	MsgTypeUnload    PlayerMessageType = "unload"

	// State snapshot pushed after every transition.
	MsgTypeState PlayerMessageType = "state"
)

// PlayerMessage is the websocket frame for the playback session.
type PlayerMessage struct {
	Type      PlayerMessageType `json:"type"`
	Data      json.RawMessage   `json:"data,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// SelectData carries the track to play and the playlist it came from.
type SelectData struct {
	Track    *model.PlayableTrack   `json:"track"`
	Playlist []*model.PlayableTrack `json:"playlist"`
}

// SeekData carries a seek target in seconds.
type SeekData struct {
	Position float64 `json:"position"`
}

// VolumeData carries a volume level.
type VolumeData struct {
	Volume float64 `json:"volume"`
}

// MetadataData carries the duration reported by the media element.
type MetadataData struct {
	Duration float64 `json:"duration"`
}

// MediaErrorData carries a playback failure reported by the media element.
type MediaErrorData struct {
	Message string `json:"message"`
}

// LoadData tells the client which URL to load into its audio element.
type LoadData struct {
	URL string `json:"url"`
}

// playerSession owns one websocket connection and its playback state machine.
type playerSession struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	player  *player.Player
}

func newPlayerSession(conn *websocket.Conn) *playerSession {
	s := &playerSession{
		id:   uuid.New().String(),
		conn: conn,
	}
	s.player = player.New(s.openSource)
	return s
}

func (s *playerSession) send(msgType PlayerMessageType, data interface{}) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			logger.Error("Failed to marshal player message", logger.ErrorField(err))
			return
		}
		raw = encoded
	}

	msg := PlayerMessage{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		logger.Debug("Failed to write player message", logger.ErrorField(err))
	}
}

// openSource is the player's SourceOpener: the client's audio element is the
// actual media source, so loading means telling the client what to load.
func (s *playerSession) openSource(url string) (player.MediaSource, error) {
	if url == "" {
		return nil, errors.New("track has no playback URL")
	}
	s.send(MsgTypeLoad, LoadData{URL: url})
	return &wsMediaSource{session: s}, nil
}

// wsMediaSource relays transport commands to the client's audio element.
// The player holds exactly one of these at a time.
type wsMediaSource struct {
	session *playerSession
}

func (m *wsMediaSource) Play() error {
	m.session.send(MsgTypePlay, nil)
	return nil
}

func (m *wsMediaSource) Pause() {
	m.session.send(MsgTypePause, nil)
}

func (m *wsMediaSource) Seek(seconds float64) {
	m.session.send(MsgTypeSeekTo, SeekData{Position: seconds})
}

func (m *wsMediaSource) SetVolume(v float64) {
	m.session.send(MsgTypeSetVolume, VolumeData{Volume: v})
}

func (m *wsMediaSource) Close() {
	m.session.send(MsgTypeUnload, nil)
}

// WebSocketPlayerHandler runs a per-connection playback session. The token
// comes as a query parameter because browsers cannot set headers on
// websocket dials.
func (h *APIHandler) WebSocketPlayerHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	revoked, err := cache.IsTokenRevoked(r.Context(), token)
	if err != nil || revoked {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	session := newPlayerSession(conn)
	defer session.player.Close()

	logger.Info("Player session started",
		logger.String("sessionId", session.id),
		logger.String("username", claims.Username))

	for {
		var msg PlayerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Player session read error", logger.ErrorField(err))
			}
			break
		}
		session.handle(msg)
	}

	logger.Info("Player session ended",
		logger.String("sessionId", session.id),
		logger.String("username", claims.Username))
}

func (s *playerSession) handle(msg PlayerMessage) {
	switch msg.Type {
	case MsgTypeSelect:
		var data SelectData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Track == nil {
			logger.Warn("Malformed select message")
			return
		}
		s.player.SelectTrack(data.Track, data.Playlist)

	case MsgTypeToggle:
		s.player.TogglePlayPause()

	case MsgTypeSeek:
		var data SeekData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		s.player.Seek(data.Position)

	case MsgTypeVolume:
		var data VolumeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		s.player.SetVolume(data.Volume)

	case MsgTypeNext:
		s.player.NextTrack()

	case MsgTypePrev:
		s.player.PreviousTrack()

	case MsgTypeLoadedMetadata:
		var data MetadataData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		s.player.HandleLoadedMetadata(data.Duration)

	case MsgTypeTimeUpdate:
		var data SeekData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		s.player.HandleTimeUpdate(data.Position)

	case MsgTypeEnded:
		s.player.HandleEnded()

	case MsgTypeMediaError:
		var data MediaErrorData
		json.Unmarshal(msg.Data, &data)
		s.player.HandleError(errors.New(data.Message))

	default:
		logger.Debug("Unknown player message type", logger.String("type", string(msg.Type)))
		return
	}

	s.send(MsgTypeState, s.player.Snapshot())
}
